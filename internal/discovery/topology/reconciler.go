package topology

import (
	"github.com/dep2p/go-linkdisc/pkg/interfaces"
	"github.com/dep2p/go-linkdisc/pkg/types"
)

// edgeEntry 边及其属性
type edgeEntry struct {
	edge  types.Edge
	props types.PropertySet
}

// Reconciler 边表维护
//
// 主动边以 Head 端口为键，生产边以本地端口为键。同一端口上主动边优先：
// 主动边到达时驱逐生产边，主动边存在时生产边更新被丢弃。
// 所有变更通过 notify 投递，是通往 EdgeSink 的唯一出口。
type Reconciler struct {
	store   *PortStore
	sink    interfaces.EdgeSink
	metrics *metrics

	active map[types.Port]edgeEntry
	prod   map[types.Port]edgeEntry

	// aging 生产边自最近一次监听到外部 LLDP 以来的 tick 数
	aging map[types.Port]int

	// tails 以端口为 Tail 的主动边数量
	tails map[types.Port]int
}

// NewReconciler 创建边表维护器
func NewReconciler(store *PortStore, sink interfaces.EdgeSink, m *metrics) *Reconciler {
	if m == nil {
		m = newMetrics(nil)
	}
	return &Reconciler{
		store:   store,
		sink:    sink,
		metrics: m,
		active:  make(map[types.Port]edgeEntry),
		prod:    make(map[types.Port]edgeEntry),
		aging:   make(map[types.Port]int),
		tails:   make(map[types.Port]int),
	}
}

// ============================================================================
//                              主动边
// ============================================================================

// AddOrUpdateActiveEdge 记录一次探测回显确认的主动边
//
// 重复的相同边只重置 HoldTimer；属性变化通知 CHANGED；
// 同一 Head 上出现不同 Tail 时先通知旧边 REMOVED 再通知新边 ADDED。
func (r *Reconciler) AddOrUpdateActiveEdge(edge types.Edge, props types.PropertySet) {
	head := edge.Head

	if _, ok := r.prod[head]; ok {
		r.RemoveProductionEdge(head)
	}

	old, exists := r.active[head]
	switch {
	case !exists:
		r.putActive(edge, props)
		r.notify(edge, types.UpdateAdded, props)
	case old.edge == edge:
		if !old.props.Equal(props) {
			r.active[head] = edgeEntry{edge: edge, props: props.Clone()}
			r.notify(edge, types.UpdateChanged, props)
		}
	default:
		r.deleteActive(head)
		r.notify(old.edge, types.UpdateRemoved, old.props)
		r.putActive(edge, props)
		r.notify(edge, types.UpdateAdded, props)
	}
	r.store.armHold(head)
}

// RemoveActiveEdge 移除以 port 为 Head 的主动边
//
// stillEnabled 为 true 时端口回到 Staging 继续参与发现，否则端口被彻底清除。
func (r *Reconciler) RemoveActiveEdge(port types.Port, stillEnabled bool) bool {
	entry, ok := r.active[port]
	if !ok {
		return false
	}
	r.deleteActive(port)
	r.store.clearHold(port)
	if stillEnabled {
		r.store.ensureStaged(port)
	} else {
		r.store.RemovePort(port)
	}
	r.notify(entry.edge, types.UpdateRemoved, entry.props)
	return true
}

// ActiveEdge 返回以 port 为 Head 的主动边
func (r *Reconciler) ActiveEdge(port types.Port) (types.Edge, bool) {
	e, ok := r.active[port]
	return e.edge, ok
}

// HasActiveTail 端口是否作为某条主动边的 Tail 被确认过
func (r *Reconciler) HasActiveTail(port types.Port) bool {
	return r.tails[port] > 0
}

func (r *Reconciler) putActive(edge types.Edge, props types.PropertySet) {
	r.active[edge.Head] = edgeEntry{edge: edge, props: props.Clone()}
	r.tails[edge.Tail]++
}

func (r *Reconciler) deleteActive(head types.Port) {
	entry, ok := r.active[head]
	if !ok {
		return
	}
	delete(r.active, head)
	if r.tails[entry.edge.Tail]--; r.tails[entry.edge.Tail] <= 0 {
		delete(r.tails, entry.edge.Tail)
	}
}

// activeTouching 返回 Head 或 Tail 位于节点上的主动边的 Head 端口
func (r *Reconciler) activeTouching(n types.Node) []types.Port {
	var heads []types.Port
	for head, e := range r.active {
		if head.Node == n || e.edge.Tail.Node == n {
			heads = append(heads, head)
		}
	}
	return heads
}

// ============================================================================
//                              生产边
// ============================================================================

// UpdateProductionEdge 记录一次外部 LLDP 推断的生产边
//
// 本地端口已有主动边时更新被丢弃并返回 false。邻居节点变化时先通知旧边 REMOVED
// 再通知新边 ADDED；同一邻居节点换了端口时原地更新并通知 CHANGED。
func (r *Reconciler) UpdateProductionEdge(edge types.Edge, props types.PropertySet) bool {
	head := edge.Head
	if _, ok := r.active[head]; ok {
		return false
	}

	old, exists := r.prod[head]
	switch {
	case !exists:
		r.prod[head] = edgeEntry{edge: edge, props: props.Clone()}
		r.notify(edge, types.UpdateAdded, props)
	case old.edge.Tail.Node != edge.Tail.Node:
		delete(r.prod, head)
		r.notify(old.edge, types.UpdateRemoved, old.props)
		r.prod[head] = edgeEntry{edge: edge, props: props.Clone()}
		r.notify(edge, types.UpdateAdded, props)
	case old.edge != edge:
		r.prod[head] = edgeEntry{edge: edge, props: props.Clone()}
		r.notify(edge, types.UpdateChanged, props)
	default:
		r.prod[head] = edgeEntry{edge: edge, props: props.Clone()}
	}
	r.aging[head] = 0
	return true
}

// RemoveProductionEdge 移除本地端口上的生产边
func (r *Reconciler) RemoveProductionEdge(port types.Port) bool {
	entry, ok := r.prod[port]
	if !ok {
		return false
	}
	delete(r.prod, port)
	delete(r.aging, port)
	r.notify(entry.edge, types.UpdateRemoved, entry.props)
	return true
}

// ProductionEdge 返回本地端口上的生产边
func (r *Reconciler) ProductionEdge(port types.Port) (types.Edge, bool) {
	e, ok := r.prod[port]
	return e.edge, ok
}

// ============================================================================
//                              通知
// ============================================================================

// notify 边变更唯一出口
func (r *Reconciler) notify(edge types.Edge, update types.UpdateType, props types.PropertySet) {
	kind := edgeActive
	if edge.IsProduction() {
		kind = edgeProduction
	}
	r.metrics.edgeUpdate(kind, update)

	if update == types.UpdateChanged {
		logger.Debug("边属性变化", "edge", edge.String(), "kind", kind)
	} else {
		logger.Info("边变更", "edge", edge.String(), "kind", kind, "type", update.String())
	}

	if r.sink != nil {
		r.sink.NotifyEdge(edge, update, props.Clone())
	}
}

func (r *Reconciler) records(m map[types.Port]edgeEntry) []types.EdgeRecord {
	out := make([]types.EdgeRecord, 0, len(m))
	for _, e := range m {
		out = append(out, types.EdgeRecord{Edge: e.edge, Props: e.props.Clone()})
	}
	sortRecords(out)
	return out
}
