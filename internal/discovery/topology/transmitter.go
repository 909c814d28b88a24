package topology

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dep2p/go-linkdisc/internal/core/lldp"
	"github.com/dep2p/go-linkdisc/pkg/interfaces"
	"github.com/dep2p/go-linkdisc/pkg/types"
)

// transmitterStopTimeout 等待发送协程退出的最长时间
const transmitterStopTimeout = 5 * time.Second

// ErrTransmitterStuck 发送协程未能在超时内退出（通常是 Transmit 阻塞）
var ErrTransmitterStuck = errors.New("topology: probe transmitter did not stop in time")

// probeSink 探测请求接收方
type probeSink interface {
	Enqueue(port types.Port)
}

// Transmitter 探测帧发送器
//
// 无界 FIFO 队列 + 单个发送协程。交换机不可用或发送失败时探测被静默跳过，
// 下一轮发现会重新探测。
type Transmitter struct {
	transport interfaces.FrameTransport
	builder   *lldp.Builder
	metrics   *metrics

	mu    sync.Mutex
	queue []types.Port
	wake  chan struct{}

	cancel context.CancelFunc
	done   chan struct{}
}

// NewTransmitter 创建探测帧发送器
func NewTransmitter(transport interfaces.FrameTransport, builder *lldp.Builder, m *metrics) *Transmitter {
	if builder == nil {
		builder = lldp.NewBuilder()
	}
	if m == nil {
		m = newMetrics(nil)
	}
	return &Transmitter{
		transport: transport,
		builder:   builder,
		metrics:   m,
		wake:      make(chan struct{}, 1),
	}
}

// Enqueue 排队一个探测请求，不阻塞
func (t *Transmitter) Enqueue(port types.Port) {
	t.mu.Lock()
	t.queue = append(t.queue, port)
	n := len(t.queue)
	t.mu.Unlock()

	t.metrics.probeQueueSize.Set(float64(n))
	select {
	case t.wake <- struct{}{}:
	default:
	}
}

// Pending 返回等待发送的探测数
func (t *Transmitter) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.queue)
}

// Start 启动发送协程
func (t *Transmitter) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	t.done = make(chan struct{})
	go t.run(ctx, t.done)
}

// Stop 停止发送协程，丢弃未发送的探测
func (t *Transmitter) Stop() error {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.cancel, t.done = nil, nil
	dropped := len(t.queue)
	t.queue = nil
	t.mu.Unlock()

	t.metrics.probeQueueSize.Set(0)
	if dropped > 0 {
		logger.Debug("丢弃未发送的探测", "count", dropped)
	}
	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
		return nil
	case <-time.After(transmitterStopTimeout):
		return ErrTransmitterStuck
	}
}

func (t *Transmitter) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		port, ok := t.next()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-t.wake:
				continue
			}
		}
		if ctx.Err() != nil {
			return
		}
		t.send(port)
	}
}

func (t *Transmitter) next() (types.Port, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.queue) == 0 {
		return types.Port{}, false
	}
	port := t.queue[0]
	t.queue[0] = types.Port{}
	t.queue = t.queue[1:]
	t.metrics.probeQueueSize.Set(float64(len(t.queue)))
	return port, true
}

// send 构造并发出一个探测帧，返回是否已交给传输层
func (t *Transmitter) send(port types.Port) bool {
	if t.transport == nil || !t.transport.Operational(port.Node) {
		t.metrics.probesSkipped.WithLabelValues("switch_down").Inc()
		logger.Debug("交换机不可用，跳过探测", "port", port.String())
		return false
	}

	frame, err := t.builder.BuildProbe(port)
	if err != nil {
		t.metrics.probesSkipped.WithLabelValues("encode").Inc()
		logger.Debug("构造探测帧失败", "port", port.String(), "err", err)
		return false
	}

	if err := t.transport.Transmit(port, frame); err != nil {
		t.metrics.probesSkipped.WithLabelValues("transmit").Inc()
		logger.Debug("发送探测帧失败", "port", port.String(), "err", err)
		return false
	}
	t.metrics.probesSent.Inc()
	return true
}
