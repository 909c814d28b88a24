package fabric

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-linkdisc/internal/core/lldp"
	"github.com/dep2p/go-linkdisc/pkg/interfaces"
	"github.com/dep2p/go-linkdisc/pkg/lib/log"
	"github.com/dep2p/go-linkdisc/pkg/types"
)

var logger = log.Logger("core/fabric")

// 编译时接口检查
var _ interfaces.FrameTransport = (*Fabric)(nil)

// Stats 帧统计
type Stats struct {
	Transmitted uint64 `json:"transmitted"`
	Delivered   uint64 `json:"delivered"`
	Lost        uint64 `json:"lost"`
	Foreign     uint64 `json:"foreign"`
}

// Option 配置选项
type Option func(*Fabric)

// WithClock 设置时钟（测试使用 clock.NewMock）
func WithClock(c clock.Clock) Option {
	return func(f *Fabric) {
		if c != nil {
			f.clock = c
		}
	}
}

// WithEmitInterval 设置外部邻居帧的周期发射间隔，0 表示只手动发射
func WithEmitInterval(d time.Duration) Option {
	return func(f *Fabric) {
		f.emitInterval = d
	}
}

// Fabric 模拟交换机网络
type Fabric struct {
	clock        clock.Clock
	builder      *lldp.Builder
	emitInterval time.Duration

	mu        sync.RWMutex
	switches  map[types.Node]bool
	cables    map[types.Port]types.Port
	neighbors map[types.Port][]byte // 外部邻居 LLDP 帧
	intake    interfaces.FrameIntake
	closed    bool

	inflight sync.WaitGroup

	cancel context.CancelFunc
	done   chan struct{}

	transmitted atomic.Uint64
	delivered   atomic.Uint64
	lost        atomic.Uint64
	foreign     atomic.Uint64
}

// New 创建空网络
func New(opts ...Option) *Fabric {
	f := &Fabric{
		clock:     clock.New(),
		builder:   lldp.NewBuilder(),
		switches:  make(map[types.Node]bool),
		cables:    make(map[types.Port]types.Port),
		neighbors: make(map[types.Port][]byte),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Attach 注册帧接收入口
func (f *Fabric) Attach(intake interfaces.FrameIntake) {
	f.mu.Lock()
	f.intake = intake
	f.mu.Unlock()
}

// ============================================================================
//                              交换机与线缆
// ============================================================================

// AddSwitch 加入一台可用的交换机
func (f *Fabric) AddSwitch(node types.Node) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.switches[node]; ok {
		return fmt.Errorf("%w: %s", ErrSwitchExists, node)
	}
	f.switches[node] = true
	return nil
}

// RemoveSwitch 移除交换机，连带拆除其线缆与外部邻居
func (f *Fabric) RemoveSwitch(node types.Node) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.switches[node]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSwitch, node)
	}
	delete(f.switches, node)
	for a, b := range f.cables {
		if a.Node == node || b.Node == node {
			delete(f.cables, a)
		}
	}
	for p := range f.neighbors {
		if p.Node == node {
			delete(f.neighbors, p)
		}
	}
	return nil
}

// SetOperational 设置交换机可用状态
func (f *Fabric) SetOperational(node types.Node, up bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.switches[node]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSwitch, node)
	}
	f.switches[node] = up
	logger.Debug("交换机状态变化", "node", node.String(), "operational", up)
	return nil
}

// Operational 实现 FrameTransport
func (f *Fabric) Operational(node types.Node) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.switches[node]
}

// Connect 用线缆连接两个端口
func (f *Fabric) Connect(a, b types.Port) error {
	if a == b {
		return fmt.Errorf("%w: %s", ErrSelfLoop, a)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range []types.Port{a, b} {
		if _, ok := f.switches[p.Node]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownSwitch, p.Node)
		}
		if _, ok := f.cables[p]; ok {
			return fmt.Errorf("%w: %s", ErrPortCabled, p)
		}
	}
	f.cables[a] = b
	f.cables[b] = a
	logger.Debug("线缆连接", "a", a.String(), "b", b.String())
	return nil
}

// Disconnect 拔掉端口上的线缆，返回是否原本有线缆
func (f *Fabric) Disconnect(port types.Port) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	peer, ok := f.cables[port]
	if !ok {
		return false
	}
	delete(f.cables, port)
	delete(f.cables, peer)
	return true
}

// Peer 返回线缆对端端口
func (f *Fabric) Peer(port types.Port) (types.Port, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	peer, ok := f.cables[port]
	return peer, ok
}

// ============================================================================
//                              帧传输
// ============================================================================

// Transmit 实现 FrameTransport
//
// 帧经线缆异步投递到对端端口；对端不存在或不可用时帧丢失，不返回错误。
func (f *Fabric) Transmit(port types.Port, frame []byte) error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return ErrClosed
	}
	up, ok := f.switches[port.Node]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSwitch, port.Node)
	}
	if !up {
		return fmt.Errorf("%w: %s", ErrSwitchDown, port.Node)
	}
	f.transmitted.Add(1)

	peer, cabled := f.cables[port]
	if !cabled || !f.switches[peer.Node] || f.intake == nil {
		f.lost.Add(1)
		return nil
	}
	f.deliver(f.intake, peer, frame)
	return nil
}

// deliver 调用方必须持有读锁
func (f *Fabric) deliver(intake interfaces.FrameIntake, ingress types.Port, frame []byte) {
	buf := make([]byte, len(frame))
	copy(buf, frame)

	f.inflight.Add(1)
	go func() {
		defer f.inflight.Done()
		if intake.Receive(ingress, buf) == interfaces.Consumed {
			f.delivered.Add(1)
		} else {
			f.lost.Add(1)
		}
	}()
}

// ============================================================================
//                              外部邻居
// ============================================================================

// AddForeignNeighbor 在受控端口上挂接外部 LLDP 设备
func (f *Fabric) AddForeignNeighbor(port types.Port, chassis, sysName, portID string) error {
	frame, err := f.builder.BuildForeign(chassis, sysName, portID)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.switches[port.Node]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSwitch, port.Node)
	}
	f.neighbors[port] = frame
	logger.Debug("外部邻居挂接", "port", port.String(), "chassis", chassis, "sysName", sysName)
	return nil
}

// RemoveForeignNeighbor 移除外部邻居
func (f *Fabric) RemoveForeignNeighbor(port types.Port) {
	f.mu.Lock()
	delete(f.neighbors, port)
	f.mu.Unlock()
}

// EmitForeign 所有外部邻居各发射一帧，返回发射数量
func (f *Fabric) EmitForeign() int {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed || f.intake == nil {
		return 0
	}
	n := 0
	for port, frame := range f.neighbors {
		if !f.switches[port.Node] {
			continue
		}
		f.deliver(f.intake, port, frame)
		n++
	}
	f.foreign.Add(uint64(n))
	return n
}

// ============================================================================
//                              生命周期
// ============================================================================

// Start 启动外部邻居周期发射器
func (f *Fabric) Start(_ context.Context) error {
	if f.emitInterval <= 0 {
		return nil
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return ErrClosed
	}
	if f.done != nil {
		f.mu.Unlock()
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	f.done = make(chan struct{})
	done := f.done
	f.mu.Unlock()

	go f.emitLoop(ctx, done)
	logger.Info("外部邻居发射器已启动", "interval", f.emitInterval)
	return nil
}

func (f *Fabric) emitLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := f.clock.Ticker(f.emitInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.EmitForeign()
		}
	}
}

// Close 停止发射器，不再接受新帧并等待在途帧投递完毕
func (f *Fabric) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	cancel, done := f.cancel, f.done
	f.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	f.inflight.Wait()

	st := f.Stats()
	logger.Info("模拟网络已关闭", "transmitted", st.Transmitted, "delivered", st.Delivered, "lost", st.Lost)
	return nil
}

// Wait 等待在途帧投递完毕，调用方须保证没有并发的 Transmit
func (f *Fabric) Wait() {
	f.inflight.Wait()
}

// Stats 返回帧统计
func (f *Fabric) Stats() Stats {
	return Stats{
		Transmitted: f.transmitted.Load(),
		Delivered:   f.delivered.Load(),
		Lost:        f.lost.Load(),
		Foreign:     f.foreign.Load(),
	}
}
