package topology

import (
	"math/rand"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-linkdisc/config"
	"github.com/dep2p/go-linkdisc/pkg/interfaces"
	"github.com/dep2p/go-linkdisc/pkg/types"
	"github.com/dep2p/go-linkdisc/tests/mocks"
)

// ============================================================================
//                              测试辅助
// ============================================================================

var (
	sw1 = types.ManagedNode("00:00:00:00:00:00:00:01")
	sw2 = types.ManagedNode("00:00:00:00:00:00:00:02")

	p1 = types.NewPort(sw1, "1")
	p2 = types.NewPort(sw2, "1")
	p3 = types.NewPort(sw2, "2")
)

// testDiscoveryConfig 1 秒 tick 的小规模参数
//
// restart=10, pause=8, threshold=3, ageout=5, timeout=22, consistency=20
func testDiscoveryConfig() config.DiscoveryConfig {
	cfg := config.DefaultDiscoveryConfig()
	cfg.TickInterval = config.Duration(time.Second)
	cfg.ProbeInterval = config.Duration(10 * time.Second)
	cfg.RetryThreshold = config.Duration(3 * time.Second)
	cfg.AgeoutInterval = config.Duration(5 * time.Second)
	return cfg
}

// probeRecorder 记录排队的探测
type probeRecorder struct {
	ports []types.Port
}

func (r *probeRecorder) Enqueue(p types.Port) {
	r.ports = append(r.ports, p)
}

type testEngine struct {
	*engine
	sink   *mocks.MockEdgeSink
	probes *probeRecorder
}

func newTestEngine(t *testing.T, source interfaces.PortLifecycleSource) *testEngine {
	return newTestEngineWith(t, testDiscoveryConfig(), source)
}

func newTestEngineWith(t *testing.T, cfg config.DiscoveryConfig, source interfaces.PortLifecycleSource) *testEngine {
	t.Helper()
	sink := mocks.NewMockEdgeSink()
	probes := &probeRecorder{}
	e, err := newEngine(cfg, source, sink, probes, newMetrics(prometheus.NewRegistry()))
	require.NoError(t, err)
	return &testEngine{engine: e, sink: sink, probes: probes}
}

func (te *testEngine) ticks(n int) {
	for i := 0; i < n; i++ {
		te.runTick()
	}
}

// assertInvariants 检查端口状态互斥与 HoldTimer/主动边同步
func assertInvariants(t *testing.T, e *engine) {
	t.Helper()

	seen := make(map[types.Port]int)
	for _, q := range []*portQueue{e.store.high, e.store.low, e.store.staging} {
		for _, p := range q.ports() {
			seen[p]++
		}
	}
	for p, n := range seen {
		assert.Equal(t, 1, n, "端口 %s 出现在多个容器中", p)
		assert.Contains(t, e.store.state, p)
	}
	assert.Len(t, e.store.state, len(seen))

	for p := range e.store.hold {
		assert.Contains(t, e.rec.active, p, "HoldTimer %s 没有对应的主动边", p)
	}
	for p := range e.rec.active {
		assert.Contains(t, e.store.hold, p, "主动边 %s 没有 HoldTimer", p)
	}
	for p := range e.rec.aging {
		assert.Contains(t, e.rec.prod, p)
	}
}

// ============================================================================
//                              生命周期事件
// ============================================================================

func TestEngine_PortAdded_Idempotent(t *testing.T) {
	te := newTestEngine(t, nil)

	te.portAdded(p1, true)
	te.portAdded(p1, true)

	assert.Equal(t, types.ProbeReadyHigh, te.store.State(p1))
	assert.Equal(t, 1, te.store.high.len())
	assert.Empty(t, te.sink.Updates())
	assertInvariants(t, te.engine)
}

func TestEngine_PortAdded_SkipsDisabledAndSpecial(t *testing.T) {
	te := newTestEngine(t, nil)

	te.portAdded(p1, false)
	te.portAdded(types.NewPort(sw1, "LOCAL"), true)

	assert.Empty(t, te.store.state)
}

func TestEngine_PortEnabledChanged(t *testing.T) {
	te := newTestEngine(t, nil)
	te.portAdded(p1, true)
	te.portAdded(p2, true)
	te.runTick()
	te.handleSelf(p1, p2)
	require.Len(t, te.sink.Updates(), 1)

	t.Run("禁用端口清除边", func(t *testing.T) {
		te.portEnabledChanged(p2, false)
		assert.False(t, te.store.IsTracked(p2))
		removed := te.sink.UpdatesOf(types.UpdateRemoved)
		require.Len(t, removed, 1)
		assert.Equal(t, types.NewEdge(p1, p2), removed[0].Edge)
	})

	t.Run("重新启用立即探测", func(t *testing.T) {
		te.portEnabledChanged(p2, true)
		assert.Equal(t, types.ProbeReadyHigh, te.store.State(p2))
	})

	assertInvariants(t, te.engine)
}

func TestEngine_PortRemoved(t *testing.T) {
	te := newTestEngine(t, nil)
	te.portAdded(p2, true)
	te.handleSelf(p1, p2)
	te.handleForeign("SW9", "Gi0/1", p3)
	te.sink.Reset()

	te.removePort(p2)
	te.removePort(p3)

	updates := te.sink.Updates()
	require.Len(t, updates, 2)
	assert.Equal(t, types.UpdateRemoved, updates[0].Type)
	assert.Equal(t, types.UpdateRemoved, updates[1].Type)
	assert.True(t, updates[1].Edge.IsProduction())
	assert.False(t, te.store.IsTracked(p2))
	assertInvariants(t, te.engine)
}

// ============================================================================
//                              节点移除屏障
// ============================================================================

func TestEngine_NodeRemoved_Barrier(t *testing.T) {
	te := newTestEngine(t, nil)
	te.portAdded(p1, true)
	te.portAdded(p2, true)
	te.portAdded(p3, true)

	te.handleSelf(p1, p2)                  // Head 在 sw2
	te.handleSelf(p2, p1)                  // Tail 在 sw2
	te.handleForeign("SW9", "Gi0/1", p3)   // 生产边在 sw2
	require.Len(t, te.sink.UpdatesOf(types.UpdateAdded), 3)
	te.sink.Reset()

	te.nodeRemoved(sw2)

	assert.Len(t, te.sink.UpdatesOf(types.UpdateRemoved), 3)
	assert.Empty(t, te.rec.active)
	assert.Empty(t, te.rec.prod)
	assert.False(t, te.store.IsTracked(p2))
	assert.False(t, te.store.IsTracked(p3))
	assert.True(t, te.store.IsTracked(p1))
	assertInvariants(t, te.engine)

	t.Run("迟到帧被忽略", func(t *testing.T) {
		te.sink.Reset()
		te.handleSelf(p1, p2)
		te.handleSelf(p2, p1)
		te.handleForeign("SW9", "Gi0/1", p3)
		assert.Empty(t, te.sink.Updates())
		assert.Empty(t, te.rec.active)
		assert.Empty(t, te.store.hold)
	})

	t.Run("节点重新加入后恢复", func(t *testing.T) {
		te.nodeAdded(sw2)
		te.handleSelf(p1, p2)
		added := te.sink.UpdatesOf(types.UpdateAdded)
		require.Len(t, added, 1)
		assert.Equal(t, types.NewEdge(p1, p2), added[0].Edge)
	})

	assertInvariants(t, te.engine)
}

// ============================================================================
//                              不变量
// ============================================================================

func TestEngine_Invariants_RandomOperations(t *testing.T) {
	te := newTestEngine(t, nil)
	rng := rand.New(rand.NewSource(7))

	nodes := []types.Node{sw1, sw2, types.ManagedNode("3")}
	var ports []types.Port
	for _, n := range nodes {
		for _, id := range []string{"1", "2", "3"} {
			ports = append(ports, types.NewPort(n, id))
		}
	}
	pick := func() types.Port { return ports[rng.Intn(len(ports))] }

	for i := 0; i < 2000; i++ {
		switch rng.Intn(9) {
		case 0:
			te.portAdded(pick(), true)
		case 1:
			te.removePort(pick())
		case 2:
			te.portEnabledChanged(pick(), rng.Intn(2) == 0)
		case 3, 4:
			te.handleSelf(pick(), pick())
		case 5:
			te.handleForeign("PR-"+pick().ID, "x", pick())
		case 6:
			te.runTick()
		case 7:
			if rng.Intn(10) == 0 {
				te.nodeRemoved(nodes[rng.Intn(len(nodes))])
			}
		case 8:
			te.nodeAdded(nodes[rng.Intn(len(nodes))])
		}
		assertInvariants(t, te.engine)
		if t.Failed() {
			t.Fatalf("第 %d 步后不变量被破坏", i)
		}
	}
}

// ============================================================================
//                              快照
// ============================================================================

func TestEngine_Snapshot(t *testing.T) {
	te := newTestEngine(t, nil)
	te.portAdded(p1, true)
	te.portAdded(p3, true)
	te.runTick()
	te.handleSelf(p1, p2)
	te.handleForeign("SW9", "Gi0/1", p3)

	snap := te.snapshot()
	assert.Equal(t, uint64(1), snap.Tick)
	assert.Equal(t, 1, snap.BatchCounter)
	assert.Equal(t, te.params, snap.Params)
	assert.Equal(t, 2, snap.CountState(types.ProbeStaging))
	assert.Equal(t, map[types.Port]int{p2: 0}, snap.HoldTimers)
	assert.Equal(t, map[types.Port]int{p3: 0}, snap.ElapsedTimers)
	assert.Equal(t, map[types.Port]int{p3: 0}, snap.AgingTimers)
	require.Len(t, snap.ActiveEdges, 1)
	assert.Equal(t, types.NewEdge(p1, p2), snap.ActiveEdges[0].Edge)
	require.Len(t, snap.ProductionEdges, 1)
	assert.True(t, snap.ProductionEdges[0].Edge.IsProduction())

	// 快照与引擎状态相互独立
	snap.Ports[p1] = types.ProbeReadyHigh
	assert.Equal(t, types.ProbeStaging, te.store.State(p1))
}
