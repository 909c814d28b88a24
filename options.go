package linkdisc

import (
	"errors"
	"fmt"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-linkdisc/config"
	"github.com/dep2p/go-linkdisc/internal/core/fabric"
	"github.com/dep2p/go-linkdisc/pkg/interfaces"
)

// Option 用户配置选项函数
type Option func(*options) error

// options 内部选项结构
type options struct {
	// config 完整配置，默认 config.NewConfig()
	config *config.Config

	// fabricSpec 模拟网络描述
	fabricSpec *fabric.Spec

	// transport 自定义帧传输，设置后不加载模拟网络
	transport interfaces.FrameTransport

	// sinks 额外的边变更消费者
	sinks []interfaces.EdgeSink

	clock clock.Clock

	// 自省服务配置
	introspect struct {
		enable *bool
		addr   string
	}

	userFxOptions []fx.Option
}

func newOptions() *options {
	return &options{config: config.NewConfig()}
}

// finalConfig 合并选项后的配置
func (o *options) finalConfig() *config.Config {
	cfg := *o.config
	if o.introspect.enable != nil {
		cfg.Diagnostics.EnableIntrospect = *o.introspect.enable
	}
	if o.introspect.addr != "" {
		cfg.Diagnostics.IntrospectAddr = o.introspect.addr
	}
	return &cfg
}

// WithConfig 使用完整配置
func WithConfig(cfg *config.Config) Option {
	return func(o *options) error {
		if cfg == nil {
			return errors.New("config is nil")
		}
		o.config = cfg
		return nil
	}
}

// WithConfigFile 从 JSON 文件加载配置
func WithConfigFile(path string) Option {
	return func(o *options) error {
		cfg, err := config.LoadFile(path)
		if err != nil {
			return err
		}
		o.config = cfg
		return nil
	}
}

// WithDiscovery 只替换发现引擎配置
func WithDiscovery(dc config.DiscoveryConfig) Option {
	return func(o *options) error {
		o.config.Discovery = dc
		return nil
	}
}

// WithFabric 按描述构建模拟网络
func WithFabric(spec *fabric.Spec) Option {
	return func(o *options) error {
		if spec == nil {
			return errors.New("fabric spec is nil")
		}
		if err := spec.Validate(); err != nil {
			return err
		}
		o.fabricSpec = spec
		return nil
	}
}

// WithFabricFile 从 JSON 或 YAML 文件加载模拟网络描述
func WithFabricFile(path string) Option {
	return func(o *options) error {
		spec, err := fabric.LoadSpec(path)
		if err != nil {
			return err
		}
		o.fabricSpec = spec
		return nil
	}
}

// WithTransport 使用自定义帧传输（真实交换机 I/O 层）
//
// 收到的帧需要交给 Controller.Intake()。
func WithTransport(t interfaces.FrameTransport) Option {
	return func(o *options) error {
		if t == nil {
			return errors.New("transport is nil")
		}
		o.transport = t
		return nil
	}
}

// WithEdgeSink 追加边变更消费者
//
// 消费者在发现引擎事件循环中同步调用，必须快速返回。
func WithEdgeSink(sink interfaces.EdgeSink) Option {
	return func(o *options) error {
		if sink == nil {
			return errors.New("edge sink is nil")
		}
		o.sinks = append(o.sinks, sink)
		return nil
	}
}

// WithClock 设置时钟（测试使用 clock.NewMock）
func WithClock(c clock.Clock) Option {
	return func(o *options) error {
		o.clock = c
		return nil
	}
}

// WithIntrospect 启用/禁用自省服务
func WithIntrospect(enable bool) Option {
	return func(o *options) error {
		o.introspect.enable = &enable
		return nil
	}
}

// WithIntrospectAddr 设置自省服务监听地址
func WithIntrospectAddr(addr string) Option {
	return func(o *options) error {
		if addr == "" {
			return fmt.Errorf("introspect addr is empty")
		}
		o.introspect.addr = addr
		return nil
	}
}

// WithFxOptions 追加 Fx 选项
func WithFxOptions(opts ...fx.Option) Option {
	return func(o *options) error {
		o.userFxOptions = append(o.userFxOptions, opts...)
		return nil
	}
}
