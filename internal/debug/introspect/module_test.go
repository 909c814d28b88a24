package introspect

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-linkdisc/config"
	"github.com/dep2p/go-linkdisc/internal/core/topostore"
)

func TestConfigFromUnified(t *testing.T) {
	assert.Nil(t, ConfigFromUnified(nil))
	assert.Nil(t, ConfigFromUnified(config.NewConfig()))

	cfg := config.NewConfig()
	cfg.Diagnostics.EnableIntrospect = true
	cfg.Diagnostics.IntrospectAddr = ""
	require.NotNil(t, ConfigFromUnified(cfg))
	assert.Equal(t, DefaultAddr, ConfigFromUnified(cfg).Addr)
}

func TestNewFromParams(t *testing.T) {
	out := NewFromParams(IntrospectParams{})
	assert.Nil(t, out.Server)

	cfg := config.NewConfig()
	cfg.Diagnostics.EnableIntrospect = true
	store := topostore.New()
	out = NewFromParams(IntrospectParams{UnifiedCfg: cfg, Topology: store})
	require.NotNil(t, out.Server)
	assert.Equal(t, store, out.Server.config.Topology)
	// 缺失的组件保持为 nil 接口
	assert.Nil(t, out.Server.config.Discovery)
	assert.Nil(t, out.Server.config.Fabric)
	assert.Nil(t, out.Server.config.Gatherer)
}

func TestModule_Lifecycle(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Diagnostics.EnableIntrospect = true
	cfg.Diagnostics.IntrospectAddr = "127.0.0.1:0"

	var server *Server
	app := fxtest.New(t,
		fx.NopLogger,
		fx.Supply(cfg),
		Module(),
		fx.Populate(&server),
	)
	app.RequireStart()

	require.NotNil(t, server)
	resp, err := http.Get("http://" + server.Addr() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	app.RequireStop()
}

func TestModule_Disabled(t *testing.T) {
	var server *Server
	app := fxtest.New(t,
		fx.NopLogger,
		fx.Supply(config.NewConfig()),
		Module(),
		fx.Populate(&server),
	)
	require.NoError(t, app.Start(context.Background()))
	assert.Nil(t, server)
	require.NoError(t, app.Stop(context.Background()))
}
