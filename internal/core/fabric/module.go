package fabric

import (
	"context"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-linkdisc/internal/core/inventory"
	"github.com/dep2p/go-linkdisc/pkg/interfaces"
)

// ============================================================================
//                              模块输入依赖
// ============================================================================

// ModuleInput 模块输入依赖
type ModuleInput struct {
	fx.In

	Spec      *Spec                `optional:"true"`
	Inventory *inventory.Inventory `optional:"true"`
	Clock     clock.Clock          `optional:"true"`
}

// ModuleOutput 模块输出
type ModuleOutput struct {
	fx.Out

	Fabric    *Fabric
	Transport interfaces.FrameTransport
}

// ProvideFabric 提供模拟网络，有网络描述时按描述构建
func ProvideFabric(in ModuleInput) (ModuleOutput, error) {
	opts := []Option{WithClock(in.Clock)}
	if in.Spec != nil {
		opts = append(opts, WithEmitInterval(in.Spec.EmitInterval.Duration()))
	}

	f := New(opts...)
	if in.Spec != nil {
		if err := in.Spec.Build(in.Inventory, f); err != nil {
			return ModuleOutput{}, err
		}
	}
	return ModuleOutput{
		Fabric:    f,
		Transport: f,
	}, nil
}

// ============================================================================
//                              模块定义
// ============================================================================

// Module 返回 fx 模块配置
func Module() fx.Option {
	return fx.Module("core/fabric",
		fx.Provide(ProvideFabric),
		fx.Invoke(registerLifecycle),
	)
}

// lifecycleInput 生命周期输入参数
type lifecycleInput struct {
	fx.In
	LC     fx.Lifecycle
	Fabric *Fabric
	Intake interfaces.FrameIntake `optional:"true"`
}

// registerLifecycle 接入帧接收入口并注册生命周期
func registerLifecycle(input lifecycleInput) {
	if input.Intake != nil {
		input.Fabric.Attach(input.Intake)
	}
	input.LC.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return input.Fabric.Start(ctx)
		},
		OnStop: func(_ context.Context) error {
			return input.Fabric.Close()
		},
	})
}
