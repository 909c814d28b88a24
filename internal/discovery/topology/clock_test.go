package topology

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-linkdisc/internal/core/lldp"
	"github.com/dep2p/go-linkdisc/pkg/types"
	"github.com/dep2p/go-linkdisc/tests/mocks"
)

func TestParams_TestConfig(t *testing.T) {
	p := testDiscoveryConfig().Params()
	assert.Equal(t, 10, p.BatchRestartTicks)
	assert.Equal(t, 8, p.BatchPauseTicks)
	assert.Equal(t, 3, p.ThresholdTicks)
	assert.Equal(t, 5, p.AgeoutTicks)
	assert.Equal(t, 22, p.TimeoutTicks)
	assert.Equal(t, 20, p.ConsistencyTicks)
}

// 场景 A：新端口无回应，获得一次重试后进入周期探测
func TestScenario_NewPortWithoutReply(t *testing.T) {
	te := newTestEngine(t, nil)

	te.portAdded(p1, true)
	assert.Equal(t, types.ProbeReadyHigh, te.store.State(p1))

	te.runTick()
	assert.Equal(t, []types.Port{p1}, te.probes.ports)
	assert.Equal(t, types.ProbeStaging, te.store.State(p1))
	assert.Contains(t, te.store.elapsed, p1)

	te.ticks(2)
	assert.Len(t, te.probes.ports, 1)
	assert.Equal(t, 2, te.store.elapsed[p1])

	// 第 thresholdTicks 个 tick 授予重试，同一 tick 的批量探测立即发出
	te.runTick()
	assert.Equal(t, []types.Port{p1, p1}, te.probes.ports)
	assert.NotContains(t, te.store.elapsed, p1)
	assert.Equal(t, types.ProbeStaging, te.store.State(p1))

	// 只重试一次，之后随每轮探测循环
	te.ticks(5)
	assert.Len(t, te.probes.ports, 2)
	te.runTick()
	assert.Equal(t, types.ProbeReadyLow, te.store.State(p1), "新一轮开始")
	te.runTick()
	assert.Len(t, te.probes.ports, 3)
	te.ticks(10)
	assert.Len(t, te.probes.ports, 4)

	assert.Empty(t, te.sink.Updates())
	assert.Empty(t, te.rec.active)
	assert.Equal(t, 1.0, testutil.ToFloat64(te.metrics.retries))
	assertInvariants(t, te.engine)
}

// 场景 B：自身探测回显建立主动边，沉默 timeoutTicks 后移除
func TestScenario_ActiveEdgeLifecycle(t *testing.T) {
	te := newTestEngine(t, nil)
	te.portAdded(p1, true)
	te.runTick()

	te.handleSelf(p1, p2)
	added := te.sink.UpdatesOf(types.UpdateAdded)
	require.Len(t, added, 1)
	assert.Equal(t, types.NewEdge(p1, p2), added[0].Edge)
	assert.Equal(t, 0, te.store.hold[p2])
	assert.NotContains(t, te.store.elapsed, p1, "回显清除源端口的重试计时")

	te.ticks(5)
	assert.Equal(t, 5, te.store.hold[p2])
	te.handleSelf(p1, p2)
	assert.Equal(t, 0, te.store.hold[p2])
	assert.Len(t, te.sink.Updates(), 1)

	te.ticks(21)
	assert.Empty(t, te.sink.UpdatesOf(types.UpdateRemoved))
	assert.Equal(t, 21, te.store.hold[p2])

	te.runTick()
	removed := te.sink.UpdatesOf(types.UpdateRemoved)
	require.Len(t, removed, 1)
	assert.Equal(t, types.NewEdge(p1, p2), removed[0].Edge)
	assert.Equal(t, types.ProbeStaging, te.store.State(p2), "仍启用的端口回到 Staging")
	assert.NotContains(t, te.store.hold, p2)

	// 只通知一次
	te.ticks(50)
	assert.Len(t, te.sink.UpdatesOf(types.UpdateRemoved), 1)
	assertInvariants(t, te.engine)
}

func TestScenario_ActiveEdgeTimeout_PortDisabled(t *testing.T) {
	cfg := testDiscoveryConfig()
	cfg.ConsistencyMultiple = 5
	source := mocks.NewMockPortSource(p1)
	te := newTestEngineWith(t, cfg, source)
	te.handleSelf(p1, p2)

	te.ticks(21)
	assert.Empty(t, te.sink.UpdatesOf(types.UpdateRemoved))

	te.runTick()
	require.Len(t, te.sink.UpdatesOf(types.UpdateRemoved), 1)
	assert.False(t, te.store.IsTracked(p2), "已禁用的端口被彻底清除")
}

// 场景 C：外部 LLDP 建立生产边，邻居变化时替换，老化后移除
func TestScenario_ProductionEdgeLifecycle(t *testing.T) {
	te := newTestEngine(t, nil)
	px := types.NewPort(sw1, "5")
	b := lldp.NewBuilder()

	frame, err := b.BuildForeign("aa:bb:cc:dd:ee:ff", "SW9", "Gi0/1")
	require.NoError(t, err)
	in, err := classify(px, frame)
	require.NoError(t, err)
	require.Equal(t, classForeign, in.class)
	te.handle(in)

	sw9 := types.NewEdge(types.NewPort(types.ProductionNode("SW9"), "Gi0/1"), px)
	require.Len(t, te.sink.Updates(), 1)
	assert.Equal(t, types.UpdateAdded, te.sink.Updates()[0].Type)
	assert.Equal(t, sw9, te.sink.Updates()[0].Edge)

	te.ticks(3)
	te.handle(in)
	assert.Len(t, te.sink.Updates(), 1, "相同邻居不产生通知")
	assert.Equal(t, 0, te.rec.aging[px])

	frame, err = b.BuildForeign("SW12", "", "Gi0/2")
	require.NoError(t, err)
	in, err = classify(px, frame)
	require.NoError(t, err)
	te.handle(in)

	sw12 := types.NewEdge(types.NewPort(types.ProductionNode("SW12"), "Gi0/2"), px)
	updates := te.sink.Updates()
	require.Len(t, updates, 3)
	assert.Equal(t, mocks.EdgeUpdate{Edge: sw9, Type: types.UpdateRemoved}, updates[1])
	assert.Equal(t, mocks.EdgeUpdate{Edge: sw12, Type: types.UpdateAdded}, updates[2])

	te.ticks(5)
	assert.Len(t, te.sink.Updates(), 3)
	te.runTick()
	updates = te.sink.Updates()
	require.Len(t, updates, 4)
	assert.Equal(t, mocks.EdgeUpdate{Edge: sw12, Type: types.UpdateRemoved}, updates[3])
	assert.Empty(t, te.rec.aging)
	assertInvariants(t, te.engine)
}

// 场景 D：主动边所在端口收到外部 LLDP 被丢弃
func TestScenario_ForeignOnActivePort(t *testing.T) {
	te := newTestEngine(t, nil)
	te.handleSelf(p1, p2)
	te.ticks(3)
	te.sink.Reset()

	frame, err := lldp.NewBuilder().BuildForeign("chassis", "SW9", "Gi0/1")
	require.NoError(t, err)
	in, err := classify(p2, frame)
	require.NoError(t, err)
	te.handle(in)

	assert.Empty(t, te.sink.Updates())
	_, ok := te.rec.ProductionEdge(p2)
	assert.False(t, ok)
	edge, ok := te.rec.ActiveEdge(p2)
	require.True(t, ok)
	assert.Equal(t, types.NewEdge(p1, p2), edge)
	assert.Equal(t, 3, te.store.hold[p2])
}

func TestClock_AgingDisabled(t *testing.T) {
	cfg := testDiscoveryConfig()
	cfg.EnableAging = false
	te := newTestEngineWith(t, cfg, nil)
	te.handleForeign("SW9", "Gi0/1", p3)

	te.ticks(30)
	_, ok := te.rec.ProductionEdge(p3)
	assert.True(t, ok)
	assert.Equal(t, 0, te.rec.aging[p3])
}

func TestClock_SnoopingPolicy(t *testing.T) {
	t.Run("全局关闭", func(t *testing.T) {
		cfg := testDiscoveryConfig()
		cfg.EnableSnooping = false
		te := newTestEngineWith(t, cfg, nil)
		te.handleForeign("SW9", "Gi0/1", p3)
		assert.Empty(t, te.rec.prod)
	})

	t.Run("单端口关闭", func(t *testing.T) {
		cfg := testDiscoveryConfig()
		cfg.SnoopingDisabledPorts = []string{p3.String()}
		te := newTestEngineWith(t, cfg, nil)
		te.handleForeign("SW9", "Gi0/1", p3)
		te.handleForeign("SW9", "Gi0/2", p2)
		assert.Len(t, te.rec.prod, 1)
		assert.Contains(t, te.rec.prod, p2)
	})

	t.Run("运行时修改下一个 tick 生效", func(t *testing.T) {
		te := newTestEngine(t, nil)
		te.setPortSnooping(p3, false)

		te.handleForeign("SW9", "Gi0/1", p3)
		assert.Len(t, te.rec.prod, 1, "暂存的配置尚未生效")
		te.removePort(p3)

		te.runTick()
		te.handleForeign("SW9", "Gi0/1", p3)
		assert.Empty(t, te.rec.prod)

		te.setPortSnooping(p3, true)
		te.runTick()
		assert.Empty(t, te.cfg.SnoopingDisabledPorts)
		te.handleForeign("SW9", "Gi0/1", p3)
		assert.Len(t, te.rec.prod, 1)
	})
}

func TestClock_BatchPriorityAndCap(t *testing.T) {
	cfg := testDiscoveryConfig()
	cfg.BatchMaxPorts = 2
	te := newTestEngineWith(t, cfg, nil)

	low1 := types.NewPort(sw1, "10")
	low2 := types.NewPort(sw1, "11")
	te.store.moveTo(low1, types.ProbeReadyLow)
	te.store.moveTo(low2, types.ProbeReadyLow)
	te.portAdded(p1, true)

	te.runTick()
	assert.Equal(t, []types.Port{p1, low1}, te.probes.ports)
	te.runTick()
	assert.Equal(t, []types.Port{p1, low1, low2}, te.probes.ports)

	// 只有来自 ReadyHigh 的端口启动重试计时
	assert.Contains(t, te.store.elapsed, p1)
	assert.NotContains(t, te.store.elapsed, low1)
}

func TestClock_Throttling(t *testing.T) {
	cfg := testDiscoveryConfig()
	cfg.BatchMaxPorts = 1
	te := newTestEngineWith(t, cfg, nil)
	te.portAdded(p1, true)
	te.portAdded(p2, true)
	te.portAdded(p3, true)

	te.runTick()
	assert.Len(t, te.probes.ports, 1)

	next := te.nextConfig()
	next.Throttling = true
	te.stage(next)
	assert.False(t, te.cfg.Throttling)

	te.runTick()
	assert.True(t, te.cfg.Throttling)
	assert.Equal(t, []types.Port{p1, p2, p3}, te.probes.ports)
}

func TestClock_PauseWindow(t *testing.T) {
	te := newTestEngine(t, nil)
	te.ticks(9)
	assert.Equal(t, 9, te.batchCounter)

	te.portAdded(p1, true)
	te.runTick()
	assert.Empty(t, te.probes.ports, "暂停窗口内不探测")
	assert.Equal(t, 0, te.batchCounter)
	assert.Equal(t, types.ProbeReadyHigh, te.store.State(p1))

	te.runTick()
	assert.Equal(t, []types.Port{p1}, te.probes.ports)
}

func TestClock_SkipAlreadyConfirmedTail(t *testing.T) {
	te := newTestEngine(t, nil)
	te.handleSelf(p1, p2)
	te.portEnabledChanged(p1, true)

	te.runTick()
	assert.Equal(t, []types.Port{p1}, te.probes.ports)
	assert.NotContains(t, te.store.elapsed, p1, "已有确认边的端口不需要重试")
}

// 收敛：丢失的生命周期事件在一个一致性检查周期内被修正
func TestClock_ConsistencyConvergence(t *testing.T) {
	source := mocks.NewMockPortSource(p1, p2)
	te := newTestEngine(t, source)
	te.portAdded(p1, true)

	te.ticks(19)
	assert.False(t, te.store.IsTracked(p2))

	te.runTick()
	assert.True(t, te.store.IsTracked(p2))
	assert.Equal(t, uint64(1), te.corrections)
	assert.Equal(t, 1.0, testutil.ToFloat64(te.metrics.corrections))
}

func TestClock_ReconcileInventory(t *testing.T) {
	p4 := types.NewPort(sw1, "4")
	source := mocks.NewMockPortSource(p1, p3, p4)
	te := newTestEngine(t, source)
	te.portAdded(p1, true)

	te.handleSelf(p1, p2) // p2 未启用
	te.handleSelf(p1, p3) // p3 启用但未跟踪

	fixed := te.reconcileInventory()

	// p2 的主动边移除；p3 回到 Staging；p4 加入 Staging
	assert.Equal(t, 3, fixed)
	removed := te.sink.UpdatesOf(types.UpdateRemoved)
	require.Len(t, removed, 1)
	assert.Equal(t, types.NewEdge(p1, p2), removed[0].Edge)
	assert.False(t, te.store.IsTracked(p2))
	assert.Equal(t, types.ProbeStaging, te.store.State(p3))
	assert.Equal(t, types.ProbeStaging, te.store.State(p4))
	assert.Equal(t, types.ProbeReadyHigh, te.store.State(p1))

	assert.Zero(t, te.reconcileInventory(), "第二次检查无需修正")
	assertInvariants(t, te.engine)
}

func TestClock_Metrics(t *testing.T) {
	te := newTestEngine(t, nil)
	te.portAdded(p1, true)
	te.portAdded(p2, true)
	te.ticks(3)

	assert.Equal(t, 3.0, testutil.ToFloat64(te.metrics.ticks))
	assert.Equal(t, 2.0, testutil.ToFloat64(te.metrics.portStates.WithLabelValues("staging")))
	assert.Equal(t, 0.0, testutil.ToFloat64(te.metrics.edges.WithLabelValues(edgeActive)))
}
