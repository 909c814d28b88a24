package topology

import (
	"context"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-linkdisc/config"
	"github.com/dep2p/go-linkdisc/pkg/interfaces"
)

// ============================================================================
//                              模块输入依赖
// ============================================================================

// ModuleInput 模块输入依赖
type ModuleInput struct {
	fx.In

	Config    *config.Config                 `optional:"true"`
	Source    interfaces.PortLifecycleSource `optional:"true"`
	Sink      interfaces.EdgeSink            `optional:"true"`
	Transport interfaces.FrameTransport
	Clock     clock.Clock `optional:"true"`
}

// ============================================================================
//                              模块输出服务
// ============================================================================

// ModuleOutput 模块输出
type ModuleOutput struct {
	fx.Out

	Service   *Service
	Discovery interfaces.DiscoveryService
	Intake    interfaces.FrameIntake
}

// ProvideService 提供拓扑发现服务
func ProvideService(in ModuleInput) (ModuleOutput, error) {
	cfg := config.DefaultDiscoveryConfig()
	if in.Config != nil {
		cfg = in.Config.Discovery
	}

	var opts []ServiceOption
	if in.Clock != nil {
		opts = append(opts, WithClock(in.Clock))
	}

	svc, err := NewService(cfg, in.Source, in.Sink, in.Transport, opts...)
	if err != nil {
		return ModuleOutput{}, err
	}
	return ModuleOutput{
		Service:   svc,
		Discovery: svc,
		Intake:    svc,
	}, nil
}

// ============================================================================
//                              模块定义
// ============================================================================

// Module 返回 fx 模块配置
func Module() fx.Option {
	return fx.Module("discovery/topology",
		fx.Provide(ProvideService),
		fx.Invoke(registerLifecycle),
	)
}

// lifecycleInput 生命周期输入参数
type lifecycleInput struct {
	fx.In
	LC      fx.Lifecycle
	Service *Service
}

// registerLifecycle 注册生命周期
func registerLifecycle(input lifecycleInput) {
	input.LC.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return input.Service.Start(ctx)
		},
		OnStop: func(_ context.Context) error {
			return input.Service.Stop()
		},
	})
}
