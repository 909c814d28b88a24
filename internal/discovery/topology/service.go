package topology

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/dep2p/go-linkdisc/config"
	"github.com/dep2p/go-linkdisc/internal/core/lldp"
	"github.com/dep2p/go-linkdisc/pkg/interfaces"
	"github.com/dep2p/go-linkdisc/pkg/lib/log"
	"github.com/dep2p/go-linkdisc/pkg/types"
)

var logger = log.Logger("discovery/topology")

// 编译时接口检查
var _ interfaces.DiscoveryService = (*Service)(nil)

// ════════════════════════════════════════════════════════════════════════════
// Service 拓扑发现服务
// ════════════════════════════════════════════════════════════════════════════

// Service 拓扑发现服务
//
// 单个事件循环协程独占引擎状态。Receive 只做解码与非阻塞投递到接收队列，队列满时丢帧并计数；
// 生命周期事件与查询阻塞投递到独立的控制队列，不占用接收队列容量。
// 控制消息执行前先处理已排队的接收帧。启动前的提交在调用方协程上内联执行。
type Service struct {
	cfg       config.DiscoveryConfig
	clock     clock.Clock
	source    interfaces.PortLifecycleSource
	registry  *prometheus.Registry
	metrics   *metrics
	engine    *engine
	tx        *Transmitter
	events    chan func(*engine)
	control   chan func(*engine)
	policy    atomic.Pointer[snoopPolicy]
	dropped   atomic.Uint64
	inlineMu  sync.Mutex
	stateMu   sync.RWMutex
	running   bool
	closed    bool
	ctx       context.Context
	ctxCancel context.CancelFunc
	done      chan struct{}

	unsubscribe func()
}

// ServiceOption 服务选项
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	clock    clock.Clock
	registry *prometheus.Registry
	builder  *lldp.Builder
}

// WithClock 设置时钟（测试使用 clock.NewMock）
func WithClock(c clock.Clock) ServiceOption {
	return func(o *serviceOptions) {
		o.clock = c
	}
}

// WithRegistry 设置指标注册表
func WithRegistry(reg *prometheus.Registry) ServiceOption {
	return func(o *serviceOptions) {
		o.registry = reg
	}
}

// WithBuilder 设置探测帧构造器
func WithBuilder(b *lldp.Builder) ServiceOption {
	return func(o *serviceOptions) {
		o.builder = b
	}
}

// NewService 创建拓扑发现服务
//
// source 可以为 nil（此时所有端口视为已启用，一致性检查不执行）；
// sink 可以为 nil（边变更只记录日志与指标）。
func NewService(cfg config.DiscoveryConfig, source interfaces.PortLifecycleSource, sink interfaces.EdgeSink, transport interfaces.FrameTransport, opts ...ServiceOption) (*Service, error) {
	if transport == nil {
		return nil, ErrNilTransport
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := serviceOptions{
		clock:    clock.New(),
		registry: prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	m := newMetrics(o.registry)
	tx := NewTransmitter(transport, o.builder, m)

	s := &Service{
		cfg:      cfg.Clone(),
		clock:    o.clock,
		source:   source,
		registry: o.registry,
		metrics:  m,
		tx:       tx,
		events:   make(chan func(*engine), cfg.IntakeQueueSize),
		control:  make(chan func(*engine), controlQueueSize),
	}

	e, err := newEngine(cfg.Clone(), source, sink, tx, m)
	if err != nil {
		return nil, err
	}
	s.policy.Store(e.policy)
	e.onConfigApplied = func(_ config.DiscoveryConfig, p *snoopPolicy) {
		s.policy.Store(p)
	}
	s.engine = e
	return s, nil
}

// Registry 返回服务的指标注册表
func (s *Service) Registry() *prometheus.Registry {
	return s.registry
}

// ════════════════════════════════════════════════════════════════════════════
// 生命周期
// ════════════════════════════════════════════════════════════════════════════

// controlQueueSize 控制队列容量
const controlQueueSize = 16

// Start 启动发现时钟与探测发送协程，并订阅端口生命周期事件
//
// 清单中已启用端口的同步在事件循环启动前内联完成。
func (s *Service) Start(_ context.Context) error {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if s.closed {
		return ErrServiceClosed
	}
	if s.running {
		return ErrAlreadyStarted
	}

	s.inlineMu.Lock()
	if s.source != nil {
		s.unsubscribe = s.source.Subscribe(s)
		for _, p := range s.source.EnabledPorts() {
			s.engine.portAdded(p, true)
		}
	}
	params := s.engine.params
	s.inlineMu.Unlock()

	s.ctx, s.ctxCancel = context.WithCancel(context.Background())
	s.done = make(chan struct{})
	s.running = true

	s.tx.Start()
	go s.loop(s.ctx, s.done, params.TickInterval)

	logger.Info("拓扑发现服务已启动",
		"tick", params.TickInterval,
		"restartTicks", params.BatchRestartTicks,
		"timeoutTicks", params.TimeoutTicks)
	return nil
}

// Stop 停止服务，已排队但未发送的探测帧被丢弃
func (s *Service) Stop() error {
	s.stateMu.Lock()
	if s.closed {
		s.stateMu.Unlock()
		return nil
	}
	wasRunning := s.running
	cancel, done := s.ctxCancel, s.done
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.stateMu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}

	var err error
	if wasRunning {
		cancel()
		<-done
		err = multierr.Append(err, s.tx.Stop())
	}

	s.stateMu.Lock()
	s.running = false
	s.closed = true
	s.stateMu.Unlock()

	logger.Info("拓扑发现服务已停止", "droppedFrames", s.dropped.Load())
	return err
}

// loop 事件循环
//
// 定时器在 tick 执行完成后才重置，慢 tick 推迟下一个 tick 而不是跳过。
func (s *Service) loop(ctx context.Context, done chan struct{}, interval time.Duration) {
	defer close(done)

	timer := s.clock.Timer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-s.events:
			fn(s.engine)
		case fn := <-s.control:
			s.drainIntake()
			fn(s.engine)
		case <-timer.C:
			s.engine.runTick()
			timer.Reset(s.engine.params.TickInterval)
		}
	}
}

// drainIntake 处理当前已排队的接收帧，不等待新帧
func (s *Service) drainIntake() {
	for n := len(s.events); n > 0; n-- {
		select {
		case fn := <-s.events:
			fn(s.engine)
		default:
			return
		}
	}
}

// submit 将函数投递到事件循环
//
// 服务未启动时在调用方协程上内联执行。block 为 false 时投递到接收队列，队列满即返回 false；
// 否则阻塞投递到控制队列。
func (s *Service) submit(fn func(*engine), block bool) bool {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()

	if s.closed {
		return false
	}
	if !s.running {
		s.inlineMu.Lock()
		fn(s.engine)
		s.inlineMu.Unlock()
		return true
	}

	if !block {
		select {
		case s.events <- fn:
			return true
		default:
			return false
		}
	}
	select {
	case s.control <- fn:
		return true
	case <-s.ctx.Done():
		return false
	}
}

// query 在事件循环中执行只读查询
func query[T any](ctx context.Context, s *Service, fn func(*engine) T) (T, error) {
	var zero T
	reply := make(chan T, 1)
	if !s.submit(func(e *engine) { reply <- fn(e) }, true) {
		return zero, ErrServiceClosed
	}
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// ════════════════════════════════════════════════════════════════════════════
// 接收路径
// ════════════════════════════════════════════════════════════════════════════

// Receive 处理交换机收到的数据帧
//
// 不是 LLDP、无法解析或未开启监听的帧返回 Ignored，交由其他处理器。
func (s *Service) Receive(ingress types.Port, frame []byte) interfaces.ReceiveResult {
	in, err := classify(ingress, frame)
	if err != nil {
		logger.Debug("忽略接收帧", "ingress", ingress.String(), "err", err)
		s.metrics.frame(frameIgnored)
		return interfaces.Ignored
	}
	if in.class == classForeign && !s.policy.Load().allows(ingress) {
		s.metrics.frame(frameIgnored)
		return interfaces.Ignored
	}

	if !s.submit(func(e *engine) { e.handle(in) }, false) {
		n := s.dropped.Add(1)
		s.metrics.frame(frameDropped)
		logger.Debug("事件队列已满，丢弃接收帧", "ingress", ingress.String(), "dropped", n)
	}
	return interfaces.Consumed
}

// DroppedFrames 返回因事件队列满而丢弃的帧数
func (s *Service) DroppedFrames() uint64 {
	return s.dropped.Load()
}

// ════════════════════════════════════════════════════════════════════════════
// 生命周期事件（PortLifecycleListener）
// ════════════════════════════════════════════════════════════════════════════

// PortAdded 端口加入
func (s *Service) PortAdded(port types.Port, enabled bool) {
	s.submit(func(e *engine) { e.portAdded(port, enabled) }, true)
}

// PortRemoved 端口移除
func (s *Service) PortRemoved(port types.Port) {
	s.submit(func(e *engine) { e.removePort(port) }, true)
}

// PortEnabledChanged 端口启用状态变化
func (s *Service) PortEnabledChanged(port types.Port, enabled bool) {
	s.submit(func(e *engine) { e.portEnabledChanged(port, enabled) }, true)
}

// NodeAdded 节点加入
func (s *Service) NodeAdded(node types.Node) {
	s.submit(func(e *engine) { e.nodeAdded(node) }, true)
}

// NodeRemoved 节点移除
func (s *Service) NodeRemoved(node types.Node) {
	s.submit(func(e *engine) { e.nodeRemoved(node) }, true)
}

// ════════════════════════════════════════════════════════════════════════════
// 运行时配置
// ════════════════════════════════════════════════════════════════════════════

// UpdateConfig 暂存新配置，下一个 tick 开始时生效
func (s *Service) UpdateConfig(cfg config.DiscoveryConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if !s.submit(func(e *engine) { e.stage(cfg) }, true) {
		return ErrServiceClosed
	}
	return nil
}

// SetThrottling 手动节流开关
func (s *Service) SetThrottling(enabled bool) {
	s.modify(func(cfg *config.DiscoveryConfig) { cfg.Throttling = enabled })
}

// SetSnooping 全局 LLDP 监听开关
func (s *Service) SetSnooping(enabled bool) {
	s.modify(func(cfg *config.DiscoveryConfig) { cfg.EnableSnooping = enabled })
}

// SetAging 生产边老化开关
func (s *Service) SetAging(enabled bool) {
	s.modify(func(cfg *config.DiscoveryConfig) { cfg.EnableAging = enabled })
}

// SetPortSnooping 单端口 LLDP 监听开关
func (s *Service) SetPortSnooping(port types.Port, enabled bool) {
	s.submit(func(e *engine) { e.setPortSnooping(port, enabled) }, true)
}

// DisableSnoopingOn 关闭单端口监听
func (s *Service) DisableSnoopingOn(port types.Port) { s.SetPortSnooping(port, false) }

// EnableSnoopingOn 恢复单端口监听
func (s *Service) EnableSnoopingOn(port types.Port) { s.SetPortSnooping(port, true) }

func (s *Service) modify(fn func(cfg *config.DiscoveryConfig)) {
	s.submit(func(e *engine) {
		cfg := e.nextConfig()
		fn(&cfg)
		e.stage(cfg)
	}, true)
}

// ════════════════════════════════════════════════════════════════════════════
// 查询
// ════════════════════════════════════════════════════════════════════════════

// Snapshot 返回引擎状态的只读快照
func (s *Service) Snapshot(ctx context.Context) (types.DiscoverySnapshot, error) {
	snap, err := query(ctx, s, func(e *engine) types.DiscoverySnapshot { return e.snapshot() })
	if err != nil {
		return snap, err
	}
	snap.DroppedFrames = s.dropped.Load()
	return snap, nil
}

// Edges 返回当前主动边与生产边
func (s *Service) Edges(ctx context.Context) ([]types.EdgeRecord, error) {
	return query(ctx, s, func(e *engine) []types.EdgeRecord {
		return append(e.rec.records(e.rec.active), e.rec.records(e.rec.prod)...)
	})
}

// ProbeState 返回端口当前探测状态
func (s *Service) ProbeState(ctx context.Context, port types.Port) (types.ProbeState, error) {
	return query(ctx, s, func(e *engine) types.ProbeState { return e.store.State(port) })
}

// Tick 立即执行一个 tick（调试命令与测试使用），不影响定时器
func (s *Service) Tick(ctx context.Context) error {
	_, err := query(ctx, s, func(e *engine) struct{} {
		e.runTick()
		return struct{}{}
	})
	return err
}
