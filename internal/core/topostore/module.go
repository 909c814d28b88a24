package topostore

import (
	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-linkdisc/pkg/interfaces"
)

// ModuleInput 模块输入依赖
type ModuleInput struct {
	fx.In

	Clock clock.Clock `optional:"true"`
}

// ModuleOutput 模块输出
type ModuleOutput struct {
	fx.Out

	Store *Store
	Sink  interfaces.EdgeSink
}

// ProvideStore 提供拓扑视图
func ProvideStore(in ModuleInput) ModuleOutput {
	s := New(WithClock(in.Clock))
	return ModuleOutput{Store: s, Sink: s}
}

// Module 返回 fx 模块配置
func Module() fx.Option {
	return fx.Module("core/topostore",
		fx.Provide(ProvideStore),
	)
}
