package topology

import (
	"context"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-linkdisc/config"
	"github.com/dep2p/go-linkdisc/pkg/interfaces"
	"github.com/dep2p/go-linkdisc/tests/mocks"
)

// TestModule_Provides 测试模块提供的类型
func TestModule_Provides(t *testing.T) {
	var (
		svc       *Service
		discovery interfaces.DiscoveryService
		intake    interfaces.FrameIntake
	)
	source := mocks.NewMockPortSource(p1)

	app := fxtest.New(t,
		fx.NopLogger,
		fx.Supply(config.NewConfig()),
		fx.Provide(func() interfaces.FrameTransport { return mocks.NewMockFrameTransport() }),
		fx.Provide(func() interfaces.PortLifecycleSource { return source }),
		fx.Provide(func() clock.Clock { return clock.NewMock() }),
		Module(),
		fx.Populate(&svc, &discovery, &intake),
	)
	app.RequireStart()

	require.NotNil(t, svc)
	assert.Same(t, svc, discovery)
	assert.Same(t, svc, intake)
	assert.Equal(t, 1, source.SubscribeCalls)

	snap, err := svc.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, config.NewConfig().Discovery.Params(), snap.Params)

	app.RequireStop()
	_, err = svc.Snapshot(context.Background())
	assert.ErrorIs(t, err, ErrServiceClosed)
}

// TestModule_MissingTransport 缺少帧发送接口时启动失败
func TestModule_MissingTransport(t *testing.T) {
	app := fx.New(
		fx.NopLogger,
		Module(),
	)
	assert.Error(t, app.Err())
}
