package linkdisc

import (
	"fmt"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-linkdisc/config"
	"github.com/dep2p/go-linkdisc/internal/core/fabric"
	"github.com/dep2p/go-linkdisc/internal/core/inventory"
	"github.com/dep2p/go-linkdisc/internal/core/topostore"
	"github.com/dep2p/go-linkdisc/internal/debug/introspect"
	"github.com/dep2p/go-linkdisc/internal/discovery/topology"
	"github.com/dep2p/go-linkdisc/pkg/interfaces"
	"github.com/dep2p/go-linkdisc/pkg/types"
)

// buildFxApp 构建 Fx 应用
//
// 加载顺序（按依赖）：
//  1. 清单、拓扑视图
//  2. 帧传输：自定义传输或模拟网络
//  3. 发现引擎
//  4. 自省服务（条件加载）
func buildFxApp(o *options, cfg *config.Config, c *Controller) (*fx.App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	modules := []fx.Option{
		fx.Supply(cfg),
		inventory.Module(),
		topostore.Module(),
	}

	if o.clock != nil {
		clk := o.clock
		modules = append(modules, fx.Provide(func() clock.Clock { return clk }))
	}

	// 帧传输
	if o.transport != nil {
		transport := o.transport
		modules = append(modules, fx.Provide(func() interfaces.FrameTransport { return transport }))
	} else {
		if o.fabricSpec != nil {
			modules = append(modules, fx.Supply(o.fabricSpec))
		}
		modules = append(modules, fabric.Module())
	}

	modules = append(modules, topology.Module())

	if cfg.Diagnostics.EnableIntrospect {
		modules = append(modules, introspect.Module())
	}

	// 额外消费者与拓扑视图一起接收边变更
	if len(o.sinks) > 0 {
		extra := o.sinks
		modules = append(modules, fx.Decorate(func(base interfaces.EdgeSink) interfaces.EdgeSink {
			return fanout(append([]interfaces.EdgeSink{base}, extra...))
		}))
	}

	if len(o.userFxOptions) > 0 {
		modules = append(modules, o.userFxOptions...)
	}

	modules = append(modules,
		fx.Invoke(injectComponents(c)),
		// 禁用 Fx 日志输出（避免干扰用户日志）
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		}),
	)

	app := fx.New(modules...)
	if err := app.Err(); err != nil {
		return nil, err
	}
	return app, nil
}

// fanout 按顺序通知多个消费者
type fanout []interfaces.EdgeSink

// NotifyEdge 实现 EdgeSink
func (f fanout) NotifyEdge(edge types.Edge, update types.UpdateType, props types.PropertySet) {
	for _, s := range f {
		s.NotifyEdge(edge, update, props.Clone())
	}
}

// componentParams Controller 组件注入参数
type componentParams struct {
	fx.In

	Service    *topology.Service
	Inventory  *inventory.Inventory
	Store      *topostore.Store
	Fabric     *fabric.Fabric     `optional:"true"`
	Introspect *introspect.Server `optional:"true"`
}

// injectComponents 将 Fx 构建的组件注入 Controller
func injectComponents(c *Controller) func(componentParams) {
	return func(p componentParams) {
		c.discovery = p.Service
		c.inventory = p.Inventory
		c.topology = p.Store
		c.fabric = p.Fabric
		c.introspect = p.Introspect
	}
}
