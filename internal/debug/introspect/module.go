package introspect

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-linkdisc/config"
	"github.com/dep2p/go-linkdisc/internal/core/fabric"
	"github.com/dep2p/go-linkdisc/internal/core/topostore"
	"github.com/dep2p/go-linkdisc/internal/discovery/topology"
)

// Module 返回自省服务 Fx 模块
func Module() fx.Option {
	return fx.Module("debug/introspect",
		fx.Provide(NewFromParams),
		fx.Invoke(registerLifecycle),
	)
}

// IntrospectParams 自省服务依赖参数
type IntrospectParams struct {
	fx.In

	UnifiedCfg *config.Config    `optional:"true"`
	Discovery  *topology.Service `optional:"true"`
	Topology   *topostore.Store  `optional:"true"`
	Fabric     *fabric.Fabric    `optional:"true"`
}

// IntrospectOutput 自省服务输出
type IntrospectOutput struct {
	fx.Out

	Server *Server `optional:"true"`
}

// ConfigFromUnified 从统一配置创建自省服务配置
func ConfigFromUnified(cfg *config.Config) *Config {
	if cfg == nil || !cfg.Diagnostics.EnableIntrospect {
		return nil // 禁用时返回 nil
	}
	addr := cfg.Diagnostics.IntrospectAddr
	if addr == "" {
		addr = DefaultAddr
	}
	return &Config{
		Addr: addr,
	}
}

// NewFromParams 从参数创建自省服务
func NewFromParams(params IntrospectParams) IntrospectOutput {
	cfg := ConfigFromUnified(params.UnifiedCfg)
	if cfg == nil {
		return IntrospectOutput{} // 禁用时返回空输出
	}

	// 接口字段只在组件存在时赋值，避免 typed nil
	if params.Discovery != nil {
		cfg.Discovery = params.Discovery
		cfg.Gatherer = params.Discovery.Registry()
	}
	if params.Topology != nil {
		cfg.Topology = params.Topology
	}
	if params.Fabric != nil {
		cfg.Fabric = params.Fabric
	}

	return IntrospectOutput{
		Server: New(*cfg),
	}
}

// registerLifecycle 注册生命周期钩子
func registerLifecycle(lc fx.Lifecycle, server *Server) {
	if server == nil {
		return // 禁用时跳过
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return server.Start(ctx)
		},
		OnStop: func(_ context.Context) error {
			return server.Stop()
		},
	})
}
