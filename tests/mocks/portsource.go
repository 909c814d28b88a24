package mocks

import (
	"sync"

	"github.com/dep2p/go-linkdisc/pkg/interfaces"
	"github.com/dep2p/go-linkdisc/pkg/types"
)

var _ interfaces.PortLifecycleSource = (*MockPortSource)(nil)

// MockPortSource 模拟 PortLifecycleSource 实现
//
// 只维护已启用端口集合与属性，不主动发出生命周期事件；
// 测试直接调用监听器方法模拟事件。
type MockPortSource struct {
	mu        sync.Mutex
	enabled   types.PortSet
	props     map[types.Port]types.PropertySet
	listeners []interfaces.PortLifecycleListener

	// 可覆盖的方法
	EnabledPortsFunc func() []types.Port

	// 调用记录
	SubscribeCalls   int
	UnsubscribeCalls int
}

// NewMockPortSource 创建 MockPortSource，给定端口视为已启用
func NewMockPortSource(ports ...types.Port) *MockPortSource {
	return &MockPortSource{
		enabled: types.NewPortSet(ports...),
		props:   make(map[types.Port]types.PropertySet),
	}
}

// Enable 设置端口启用状态
func (m *MockPortSource) Enable(port types.Port, enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if enabled {
		m.enabled[port] = struct{}{}
	} else {
		delete(m.enabled, port)
	}
}

// SetProperties 设置端口属性
func (m *MockPortSource) SetProperties(port types.Port, props types.PropertySet) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.props[port] = props.Clone()
}

// EnabledPorts 返回已启用端口
func (m *MockPortSource) EnabledPorts() []types.Port {
	if m.EnabledPortsFunc != nil {
		return m.EnabledPortsFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.Port, 0, len(m.enabled))
	for p := range m.enabled {
		out = append(out, p)
	}
	return out
}

// IsEnabled 端口是否启用
func (m *MockPortSource) IsEnabled(port types.Port) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enabled.Has(port)
}

// Properties 返回端口属性
func (m *MockPortSource) Properties(port types.Port) types.PropertySet {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.props[port].Clone()
}

// Subscribe 记录订阅
func (m *MockPortSource) Subscribe(listener interfaces.PortLifecycleListener) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SubscribeCalls++
	m.listeners = append(m.listeners, listener)
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.UnsubscribeCalls++
		m.listeners = nil
	}
}

// Listeners 返回当前订阅者
func (m *MockPortSource) Listeners() []interfaces.PortLifecycleListener {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]interfaces.PortLifecycleListener(nil), m.listeners...)
}
