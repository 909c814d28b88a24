package topology

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-linkdisc/pkg/types"
	"github.com/dep2p/go-linkdisc/tests/mocks"
)

func newTestReconciler() (*Reconciler, *mocks.MockEdgeSink, *metrics) {
	m := newMetrics(prometheus.NewRegistry())
	sink := mocks.NewMockEdgeSink()
	return NewReconciler(NewPortStore(), sink, m), sink, m
}

func TestReconciler_AddActiveEdge(t *testing.T) {
	r, sink, m := newTestReconciler()
	edge := types.NewEdge(p1, p2)
	props := types.PropertySet{types.PropName: "eth1"}

	r.AddOrUpdateActiveEdge(edge, props)

	updates := sink.Updates()
	require.Len(t, updates, 1)
	assert.Equal(t, mocks.EdgeUpdate{Edge: edge, Type: types.UpdateAdded, Props: props}, updates[0])
	assert.True(t, r.store.hasHold(p2))
	assert.True(t, r.HasActiveTail(p1))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.edgeUpdates.WithLabelValues(edgeActive, "ADDED")))

	got, ok := r.ActiveEdge(p2)
	require.True(t, ok)
	assert.Equal(t, edge, got)
}

func TestReconciler_RepeatResetsHold(t *testing.T) {
	r, sink, _ := newTestReconciler()
	edge := types.NewEdge(p1, p2)
	props := types.PropertySet{types.PropName: "eth1"}

	r.AddOrUpdateActiveEdge(edge, props)
	r.store.hold[p2] = 7

	r.AddOrUpdateActiveEdge(edge, props.Clone())
	assert.Equal(t, 0, r.store.hold[p2])
	assert.Len(t, sink.Updates(), 1, "重复回显不产生通知")
}

func TestReconciler_PropertiesChanged(t *testing.T) {
	r, sink, _ := newTestReconciler()
	edge := types.NewEdge(p1, p2)

	r.AddOrUpdateActiveEdge(edge, types.PropertySet{types.PropBandwidth: "1G"})
	r.AddOrUpdateActiveEdge(edge, types.PropertySet{types.PropBandwidth: "10G"})

	updates := sink.Updates()
	require.Len(t, updates, 2)
	assert.Equal(t, types.UpdateChanged, updates[1].Type)
	assert.Equal(t, "10G", updates[1].Props[types.PropBandwidth])
}

func TestReconciler_TailReplaced(t *testing.T) {
	r, sink, _ := newTestReconciler()
	oldEdge := types.NewEdge(p1, p2)
	newEdge := types.NewEdge(p3, p2)

	r.AddOrUpdateActiveEdge(oldEdge, nil)
	r.AddOrUpdateActiveEdge(newEdge, nil)

	updates := sink.Updates()
	require.Len(t, updates, 3)
	assert.Equal(t, types.UpdateRemoved, updates[1].Type)
	assert.Equal(t, oldEdge, updates[1].Edge)
	assert.Equal(t, types.UpdateAdded, updates[2].Type)
	assert.Equal(t, newEdge, updates[2].Edge)

	assert.False(t, r.HasActiveTail(p1))
	assert.True(t, r.HasActiveTail(p3))
	assert.Len(t, r.active, 1)
}

func TestReconciler_RemoveActiveEdge(t *testing.T) {
	t.Run("端口仍启用回到 Staging", func(t *testing.T) {
		r, sink, _ := newTestReconciler()
		r.AddOrUpdateActiveEdge(types.NewEdge(p1, p2), nil)

		assert.True(t, r.RemoveActiveEdge(p2, true))
		assert.False(t, r.store.hasHold(p2))
		assert.Equal(t, types.ProbeStaging, r.store.State(p2))
		assert.Equal(t, types.UpdateRemoved, sink.Updates()[1].Type)
		assert.False(t, r.HasActiveTail(p1))
	})

	t.Run("端口已禁用彻底清除", func(t *testing.T) {
		r, _, _ := newTestReconciler()
		r.store.AddPort(p2)
		r.AddOrUpdateActiveEdge(types.NewEdge(p1, p2), nil)

		assert.True(t, r.RemoveActiveEdge(p2, false))
		assert.False(t, r.store.IsTracked(p2))
	})

	t.Run("不存在的边", func(t *testing.T) {
		r, sink, _ := newTestReconciler()
		assert.False(t, r.RemoveActiveEdge(p2, true))
		assert.Empty(t, sink.Updates())
		assert.False(t, r.store.IsTracked(p2))
	})
}

func TestReconciler_ProductionEdge(t *testing.T) {
	r, sink, m := newTestReconciler()
	sw9 := types.NewPort(types.ProductionNode("SW9"), "Gi0/1")
	sw12 := types.NewPort(types.ProductionNode("SW12"), "Gi0/2")

	assert.True(t, r.UpdateProductionEdge(types.NewEdge(sw9, p3), nil))
	assert.Equal(t, 0, r.aging[p3])

	r.aging[p3] = 4
	assert.True(t, r.UpdateProductionEdge(types.NewEdge(sw9, p3), nil))
	assert.Equal(t, 0, r.aging[p3], "相同生产边只重置老化计时")
	assert.Len(t, sink.Updates(), 1)

	assert.True(t, r.UpdateProductionEdge(types.NewEdge(sw12, p3), nil))
	updates := sink.Updates()
	require.Len(t, updates, 3)
	assert.Equal(t, types.UpdateRemoved, updates[1].Type)
	assert.Equal(t, sw9, updates[1].Edge.Tail)
	assert.Equal(t, types.UpdateAdded, updates[2].Type)
	assert.Equal(t, sw12, updates[2].Edge.Tail)

	assert.True(t, r.RemoveProductionEdge(p3))
	assert.NotContains(t, r.aging, p3)
	assert.False(t, r.RemoveProductionEdge(p3))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.edgeUpdates.WithLabelValues(edgeProduction, "REMOVED")))
}

func TestReconciler_ProductionNeighborPortMoved(t *testing.T) {
	r, sink, m := newTestReconciler()
	gi1 := types.NewPort(types.ProductionNode("SW9"), "Gi0/1")
	gi2 := types.NewPort(types.ProductionNode("SW9"), "Gi0/2")

	require.True(t, r.UpdateProductionEdge(types.NewEdge(gi1, p3), nil))
	r.aging[p3] = 3
	require.True(t, r.UpdateProductionEdge(types.NewEdge(gi2, p3), nil))

	updates := sink.Updates()
	require.Len(t, updates, 2)
	assert.Equal(t, types.UpdateChanged, updates[1].Type)
	assert.Equal(t, types.NewEdge(gi2, p3), updates[1].Edge)
	assert.Equal(t, 0, r.aging[p3])
	assert.Equal(t, 0.0, testutil.ToFloat64(m.edgeUpdates.WithLabelValues(edgeProduction, "REMOVED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.edgeUpdates.WithLabelValues(edgeProduction, "ADDED")))

	got, ok := r.ProductionEdge(p3)
	require.True(t, ok)
	assert.Equal(t, gi2, got.Tail)
}

func TestReconciler_ActiveEvictsProduction(t *testing.T) {
	r, sink, _ := newTestReconciler()
	prod := types.NewEdge(types.NewPort(types.ProductionNode("SW9"), "Gi0/1"), p2)
	active := types.NewEdge(p1, p2)

	r.UpdateProductionEdge(prod, nil)
	r.AddOrUpdateActiveEdge(active, nil)

	updates := sink.Updates()
	require.Len(t, updates, 3)
	assert.Equal(t, mocks.EdgeUpdate{Edge: prod, Type: types.UpdateRemoved}, updates[1])
	assert.Equal(t, mocks.EdgeUpdate{Edge: active, Type: types.UpdateAdded}, updates[2])
	_, ok := r.ProductionEdge(p2)
	assert.False(t, ok)
	assert.NotContains(t, r.aging, p2)

	// 主动边存在时生产边更新被丢弃
	assert.False(t, r.UpdateProductionEdge(prod, nil))
	assert.Len(t, sink.Updates(), 3)
}

func TestReconciler_NilSink(t *testing.T) {
	r := NewReconciler(NewPortStore(), nil, nil)
	assert.NotPanics(t, func() {
		r.AddOrUpdateActiveEdge(types.NewEdge(p1, p2), nil)
		r.RemoveActiveEdge(p2, true)
	})
}
