package inventory

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-linkdisc/pkg/interfaces"
)

// ModuleOutput 模块输出
type ModuleOutput struct {
	fx.Out

	Inventory *Inventory
	Source    interfaces.PortLifecycleSource
}

// ProvideInventory 提供清单
func ProvideInventory() ModuleOutput {
	inv := New()
	return ModuleOutput{
		Inventory: inv,
		Source:    inv,
	}
}

// Module 返回 fx 模块配置
func Module() fx.Option {
	return fx.Module("core/inventory",
		fx.Provide(ProvideInventory),
	)
}
