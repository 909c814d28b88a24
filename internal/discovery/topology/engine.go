package topology

import (
	"maps"
	"slices"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dep2p/go-linkdisc/config"
	"github.com/dep2p/go-linkdisc/pkg/interfaces"
	"github.com/dep2p/go-linkdisc/pkg/types"
)

// engine 发现引擎状态
//
// 非并发安全，只能在 Service 事件循环（或启动前的内联路径）中访问。
type engine struct {
	cfg     config.DiscoveryConfig
	params  types.DiscoveryParams
	policy  *snoopPolicy
	pending *config.DiscoveryConfig

	store  *PortStore
	rec    *Reconciler
	source interfaces.PortLifecycleSource
	probes probeSink

	tombstones *lru.Cache[types.Node, struct{}]
	metrics    *metrics

	// onConfigApplied 配置生效后回调（发布监听策略等）
	onConfigApplied func(cfg config.DiscoveryConfig, policy *snoopPolicy)

	tick             uint64
	batchCounter     int
	sinceConsistency int
	corrections      uint64
}

func newEngine(cfg config.DiscoveryConfig, source interfaces.PortLifecycleSource, sink interfaces.EdgeSink, probes probeSink, m *metrics) (*engine, error) {
	if m == nil {
		m = newMetrics(nil)
	}
	tombstones, err := lru.New[types.Node, struct{}](cfg.TombstoneSize)
	if err != nil {
		return nil, err
	}

	store := NewPortStore()
	e := &engine{
		store:      store,
		rec:        NewReconciler(store, sink, m),
		source:     source,
		probes:     probes,
		tombstones: tombstones,
		metrics:    m,
	}
	e.apply(cfg)
	return e, nil
}

// ============================================================================
//                              配置
// ============================================================================

// stage 暂存新配置，下一个 tick 开始时生效
func (e *engine) stage(cfg config.DiscoveryConfig) {
	c := cfg.Clone()
	e.pending = &c
}

// nextConfig 返回最新的配置（已暂存的优先）
func (e *engine) nextConfig() config.DiscoveryConfig {
	if e.pending != nil {
		return e.pending.Clone()
	}
	return e.cfg.Clone()
}

func (e *engine) applyPending() {
	if e.pending == nil {
		return
	}
	cfg := *e.pending
	e.pending = nil
	e.apply(cfg)
	logger.Info("发现配置已生效",
		"restartTicks", e.params.BatchRestartTicks,
		"throttling", cfg.Throttling,
		"snooping", cfg.EnableSnooping,
		"aging", cfg.EnableAging)
}

func (e *engine) apply(cfg config.DiscoveryConfig) {
	e.cfg = cfg
	e.params = cfg.Params()
	e.policy = &snoopPolicy{enabled: cfg.EnableSnooping, disabled: cfg.SnoopingDisabledSet()}
	if e.batchCounter > e.params.BatchRestartTicks {
		e.batchCounter = 0
	}
	if e.onConfigApplied != nil {
		e.onConfigApplied(e.cfg, e.policy)
	}
}

// setPortSnooping 修改单端口监听开关并暂存
func (e *engine) setPortSnooping(port types.Port, enabled bool) {
	cfg := e.nextConfig()
	key := port.String()
	cfg.SnoopingDisabledPorts = slices.DeleteFunc(cfg.SnoopingDisabledPorts, func(s string) bool {
		p, err := types.ParsePort(s)
		return err == nil && p == port
	})
	if !enabled {
		cfg.SnoopingDisabledPorts = append(cfg.SnoopingDisabledPorts, key)
	}
	e.stage(cfg)
}

// ============================================================================
//                              清单访问
// ============================================================================

func (e *engine) isEnabled(p types.Port) bool {
	if e.source == nil {
		return true
	}
	return e.source.IsEnabled(p)
}

func (e *engine) properties(p types.Port) types.PropertySet {
	if e.source == nil {
		return nil
	}
	return e.source.Properties(p)
}

func (e *engine) tombstoned(n types.Node) bool {
	return e.tombstones.Contains(n)
}

// ============================================================================
//                              生命周期事件
// ============================================================================

func (e *engine) portAdded(p types.Port, enabled bool) {
	if p.IsSpecial() || !enabled {
		return
	}
	if e.tombstoned(p.Node) {
		e.tombstones.Remove(p.Node)
	}
	if e.store.AddPort(p) {
		logger.Debug("端口加入发现", "port", p.String())
	}
}

func (e *engine) portEnabledChanged(p types.Port, enabled bool) {
	if p.IsSpecial() {
		return
	}
	if !enabled {
		e.removePort(p)
		return
	}
	e.store.PromoteToReadyHigh(p)
	logger.Debug("端口启用，立即重新探测", "port", p.String())
}

// removePort 清除端口状态以及以它为键的边
func (e *engine) removePort(p types.Port) {
	e.store.RemovePort(p)
	e.rec.RemoveActiveEdge(p, false)
	e.rec.RemoveProductionEdge(p)
}

func (e *engine) nodeAdded(n types.Node) {
	e.tombstones.Remove(n)
}

// nodeRemoved 在一次事件中清除节点的全部状态并记录墓碑
func (e *engine) nodeRemoved(n types.Node) {
	ports := e.store.RemoveNode(n)

	edges := 0
	for _, head := range e.rec.activeTouching(n) {
		stillEnabled := head.Node != n && e.isEnabled(head)
		if e.rec.RemoveActiveEdge(head, stillEnabled) {
			edges++
		}
	}
	for head := range maps.Clone(e.rec.prod) {
		if head.Node == n && e.rec.RemoveProductionEdge(head) {
			edges++
		}
	}

	e.tombstones.Add(n, struct{}{})
	logger.Info("节点移除", "node", n.String(), "ports", len(ports), "edges", edges)
}

// ============================================================================
//                              快照
// ============================================================================

func (e *engine) snapshot() types.DiscoverySnapshot {
	snap := types.DiscoverySnapshot{
		Tick:                   e.tick,
		BatchCounter:           e.batchCounter,
		Throttling:             e.cfg.Throttling,
		Snooping:               e.cfg.EnableSnooping,
		Aging:                  e.cfg.EnableAging,
		Params:                 e.params,
		Ports:                  maps.Clone(e.store.state),
		HoldTimers:             maps.Clone(e.store.hold),
		ElapsedTimers:          maps.Clone(e.store.elapsed),
		AgingTimers:            maps.Clone(e.rec.aging),
		ActiveEdges:            e.rec.records(e.rec.active),
		ProductionEdges:        e.rec.records(e.rec.prod),
		ConsistencyCorrections: e.corrections,
	}
	if snap.Ports == nil {
		snap.Ports = map[types.Port]types.ProbeState{}
	}
	return snap
}

func sortRecords(records []types.EdgeRecord) {
	slices.SortFunc(records, func(a, b types.EdgeRecord) int {
		return strings.Compare(a.Edge.String(), b.Edge.String())
	})
}

func sortPorts(ports []types.Port) {
	slices.SortFunc(ports, func(a, b types.Port) int {
		return strings.Compare(a.String(), b.String())
	})
}
