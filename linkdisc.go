package linkdisc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/fx"
	"go.uber.org/multierr"

	"github.com/dep2p/go-linkdisc/internal/core/fabric"
	"github.com/dep2p/go-linkdisc/internal/core/inventory"
	"github.com/dep2p/go-linkdisc/internal/core/topostore"
	"github.com/dep2p/go-linkdisc/internal/debug/introspect"
	"github.com/dep2p/go-linkdisc/internal/discovery/topology"
	"github.com/dep2p/go-linkdisc/pkg/interfaces"
	"github.com/dep2p/go-linkdisc/pkg/lib/log"
	"github.com/dep2p/go-linkdisc/pkg/types"
)

var logger = log.Logger("linkdisc")

const (
	// startTimeout Fx App 启动超时
	startTimeout = 30 * time.Second

	// stopTimeout Fx App 停止超时
	stopTimeout = 15 * time.Second
)

// ════════════════════════════════════════════════════════════════════════════
//                              Controller
// ════════════════════════════════════════════════════════════════════════════

// Controller 链路发现控制器
//
// 持有 Fx 应用以及由其构建的各组件：清单、模拟网络、发现引擎、拓扑视图、自省服务。
type Controller struct {
	app *fx.App

	discovery  *topology.Service
	inventory  *inventory.Inventory
	topology   *topostore.Store
	fabric     *fabric.Fabric
	introspect *introspect.Server

	mu      sync.Mutex
	started bool
	closed  bool
}

// New 创建控制器但不启动
//
// 示例：
//
//	ctrl, err := linkdisc.New(
//	    linkdisc.WithConfigFile("linkdisc.json"),
//	    linkdisc.WithFabricFile("fabric.json"),
//	)
func New(opts ...Option) (*Controller, error) {
	o := newOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	c := &Controller{}
	app, err := buildFxApp(o, o.finalConfig(), c)
	if err != nil {
		return nil, fmt.Errorf("build fx app: %w", err)
	}
	c.app = app
	return c, nil
}

// Start 快捷启动函数，等价于 New() + Start()
func Start(ctx context.Context, opts ...Option) (*Controller, error) {
	c, err := New(opts...)
	if err != nil {
		return nil, err
	}
	if err := c.Start(ctx); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("start controller: %w", err)
	}
	return c, nil
}

// Start 启动所有组件
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.started {
		return ErrAlreadyStarted
	}

	startCtx, cancel := context.WithTimeout(ctx, startTimeout)
	defer cancel()
	if err := c.app.Start(startCtx); err != nil {
		logger.Error("控制器启动失败", "error", err)
		return fmt.Errorf("start: %w", err)
	}

	c.started = true
	logger.Info("控制器已启动", "fabric", c.fabric != nil, "introspect", c.IntrospectAddr())
	return nil
}

// Close 停止所有组件，可重复调用
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	var err error
	if c.started {
		ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		err = c.app.Stop(ctx)
	} else {
		// 未启动时只释放已构建的组件
		err = multierr.Append(err, c.discovery.Stop())
		if c.fabric != nil {
			err = multierr.Append(err, c.fabric.Close())
		}
	}

	logger.Info("控制器已关闭")
	return err
}

// ════════════════════════════════════════════════════════════════════════════
//                              组件访问
// ════════════════════════════════════════════════════════════════════════════

// Discovery 返回发现引擎
func (c *Controller) Discovery() interfaces.DiscoveryService {
	return c.discovery
}

// Intake 返回帧接收入口，自定义传输在收到帧时调用
func (c *Controller) Intake() interfaces.FrameIntake {
	return c.discovery
}

// Inventory 返回交换机/端口清单
func (c *Controller) Inventory() *inventory.Inventory {
	return c.inventory
}

// Topology 返回拓扑视图
func (c *Controller) Topology() *topostore.Store {
	return c.topology
}

// Fabric 返回模拟网络；使用自定义传输时返回 ErrNoFabric
func (c *Controller) Fabric() (*fabric.Fabric, error) {
	if c.fabric == nil {
		return nil, ErrNoFabric
	}
	return c.fabric, nil
}

// Snapshot 返回发现引擎快照
func (c *Controller) Snapshot(ctx context.Context) (types.DiscoverySnapshot, error) {
	return c.discovery.Snapshot(ctx)
}

// IntrospectAddr 返回自省服务地址，未启用时返回空串
func (c *Controller) IntrospectAddr() string {
	if c.introspect == nil {
		return ""
	}
	return c.introspect.Addr()
}
