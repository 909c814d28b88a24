package interfaces

import "github.com/dep2p/go-linkdisc/pkg/types"

// EdgeSink 拓扑消费者
//
// 发现引擎的所有边变更都经由唯一的通知点投递到 EdgeSink。
// NotifyEdge 在引擎事件循环中同步调用，实现方必须快速返回。
type EdgeSink interface {
	NotifyEdge(edge types.Edge, update types.UpdateType, props types.PropertySet)
}

// EdgeSinkFunc 函数适配器
type EdgeSinkFunc func(edge types.Edge, update types.UpdateType, props types.PropertySet)

// NotifyEdge 实现 EdgeSink
func (f EdgeSinkFunc) NotifyEdge(edge types.Edge, update types.UpdateType, props types.PropertySet) {
	f(edge, update, props)
}
