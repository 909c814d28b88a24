package mocks

import (
	"sync"

	"github.com/dep2p/go-linkdisc/pkg/interfaces"
	"github.com/dep2p/go-linkdisc/pkg/types"
)

var _ interfaces.EdgeSink = (*MockEdgeSink)(nil)

// EdgeUpdate 一次边通知
type EdgeUpdate struct {
	Edge  types.Edge
	Type  types.UpdateType
	Props types.PropertySet
}

// MockEdgeSink 模拟 EdgeSink 实现
type MockEdgeSink struct {
	mu      sync.Mutex
	updates []EdgeUpdate

	// 可覆盖的方法
	NotifyEdgeFunc func(edge types.Edge, update types.UpdateType, props types.PropertySet)
}

// NewMockEdgeSink 创建 MockEdgeSink
func NewMockEdgeSink() *MockEdgeSink {
	return &MockEdgeSink{}
}

// NotifyEdge 记录边通知
func (m *MockEdgeSink) NotifyEdge(edge types.Edge, update types.UpdateType, props types.PropertySet) {
	m.mu.Lock()
	m.updates = append(m.updates, EdgeUpdate{Edge: edge, Type: update, Props: props})
	m.mu.Unlock()

	if m.NotifyEdgeFunc != nil {
		m.NotifyEdgeFunc(edge, update, props)
	}
}

// Updates 返回所有边通知的副本
func (m *MockEdgeSink) Updates() []EdgeUpdate {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]EdgeUpdate(nil), m.updates...)
}

// UpdatesOf 返回指定类型的边通知
func (m *MockEdgeSink) UpdatesOf(t types.UpdateType) []EdgeUpdate {
	var out []EdgeUpdate
	for _, u := range m.Updates() {
		if u.Type == t {
			out = append(out, u)
		}
	}
	return out
}

// Reset 清空调用记录
func (m *MockEdgeSink) Reset() {
	m.mu.Lock()
	m.updates = nil
	m.mu.Unlock()
}
