package mocks

import (
	"sync"

	"github.com/dep2p/go-linkdisc/pkg/interfaces"
	"github.com/dep2p/go-linkdisc/pkg/types"
)

var _ interfaces.FrameTransport = (*MockFrameTransport)(nil)

// TransmitCall 一次 Transmit 调用
type TransmitCall struct {
	Port  types.Port
	Frame []byte
}

// MockFrameTransport 模拟 FrameTransport 实现
//
// 默认所有交换机可用、发送成功。
type MockFrameTransport struct {
	mu    sync.Mutex
	calls []TransmitCall
	down  map[types.Node]bool
	sent  chan TransmitCall

	// 可覆盖的方法
	OperationalFunc func(node types.Node) bool
	TransmitFunc    func(port types.Port, frame []byte) error
}

// NewMockFrameTransport 创建 MockFrameTransport
func NewMockFrameTransport() *MockFrameTransport {
	return &MockFrameTransport{
		down: make(map[types.Node]bool),
		sent: make(chan TransmitCall, 1024),
	}
}

// SetDown 设置交换机不可用
func (m *MockFrameTransport) SetDown(node types.Node, down bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.down[node] = down
}

// Operational 交换机是否可用
func (m *MockFrameTransport) Operational(node types.Node) bool {
	if m.OperationalFunc != nil {
		return m.OperationalFunc(node)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.down[node]
}

// Transmit 记录发送调用
func (m *MockFrameTransport) Transmit(port types.Port, frame []byte) error {
	if m.TransmitFunc != nil {
		if err := m.TransmitFunc(port, frame); err != nil {
			return err
		}
	}
	call := TransmitCall{Port: port, Frame: append([]byte(nil), frame...)}
	m.mu.Lock()
	m.calls = append(m.calls, call)
	m.mu.Unlock()

	select {
	case m.sent <- call:
	default:
	}
	return nil
}

// Sent 返回发送通知通道，每次成功发送推送一条记录
func (m *MockFrameTransport) Sent() <-chan TransmitCall {
	return m.sent
}

// Calls 返回所有成功发送的调用
func (m *MockFrameTransport) Calls() []TransmitCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]TransmitCall(nil), m.calls...)
}

// Ports 返回已发送探测的端口，按发送顺序
func (m *MockFrameTransport) Ports() []types.Port {
	calls := m.Calls()
	out := make([]types.Port, len(calls))
	for i, c := range calls {
		out[i] = c.Port
	}
	return out
}
