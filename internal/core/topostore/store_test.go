package topostore

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-linkdisc/pkg/types"
)

var (
	sw1 = types.ManagedNode("00:01")
	sw2 = types.ManagedNode("00:02")
	a1  = types.NewPort(sw1, "1")
	b1  = types.NewPort(sw2, "1")
	b2  = types.NewPort(sw2, "2")
	pr  = types.NewPort(types.ProductionNode("core-1"), "Gi0/1")
)

func TestStore_AddChangeRemove(t *testing.T) {
	mock := clock.NewMock()
	s := New(WithClock(mock))

	e := types.NewEdge(a1, b1)
	s.NotifyEdge(e, types.UpdateAdded, types.PropertySet{"name": "eth1"})
	require.Equal(t, 1, s.Len())

	link, ok := s.Edge(b1)
	require.True(t, ok)
	assert.Equal(t, e, link.Edge)
	assert.False(t, link.Production)
	assert.Equal(t, mock.Now(), link.Since)

	mock.Add(time.Minute)
	s.NotifyEdge(e, types.UpdateChanged, types.PropertySet{"name": "eth9"})
	link, _ = s.Edge(b1)
	assert.Equal(t, "eth9", link.Props["name"])
	// CHANGED 不刷新建立时间
	assert.Equal(t, mock.Now().Add(-time.Minute), link.Since)

	s.NotifyEdge(e, types.UpdateRemoved, nil)
	assert.Zero(t, s.Len())
	assert.Equal(t, uint64(3), s.Changes())
}

func TestStore_StaleRemoveIgnored(t *testing.T) {
	s := New()
	s.NotifyEdge(types.NewEdge(a1, b1), types.UpdateAdded, nil)

	// 头端口相同但尾端口不同的移除不影响当前边
	s.NotifyEdge(types.NewEdge(types.NewPort(sw1, "9"), b1), types.UpdateRemoved, nil)
	assert.Equal(t, []types.Edge{types.NewEdge(a1, b1)}, s.Edges())
}

func TestStore_ChangedWithoutAdd(t *testing.T) {
	s := New()
	s.NotifyEdge(types.NewEdge(pr, b2), types.UpdateChanged, types.PropertySet{"k": "v"})

	link, ok := s.Edge(b2)
	require.True(t, ok)
	assert.True(t, link.Production)
	assert.Equal(t, "v", link.Props["k"])
}

func TestStore_ChangedNeighborPort(t *testing.T) {
	mock := clock.NewMock()
	s := New(WithClock(mock))
	gi1 := types.NewPort(types.ProductionNode("SW9"), "Gi0/1")
	gi2 := types.NewPort(types.ProductionNode("SW9"), "Gi0/2")

	s.NotifyEdge(types.NewEdge(gi1, b2), types.UpdateAdded, nil)
	mock.Add(time.Minute)
	s.NotifyEdge(types.NewEdge(gi2, b2), types.UpdateChanged, nil)

	link, ok := s.Edge(b2)
	require.True(t, ok)
	assert.Equal(t, types.NewEdge(gi2, b2), link.Edge)
	assert.True(t, link.Production)
	assert.Equal(t, mock.Now().Add(-time.Minute), link.Since)
	assert.Equal(t, 1, s.Len())
}

func TestStore_Links(t *testing.T) {
	s := New()
	s.NotifyEdge(types.NewEdge(pr, b2), types.UpdateAdded, nil)
	s.NotifyEdge(types.NewEdge(b1, a1), types.UpdateAdded, nil)
	s.NotifyEdge(types.NewEdge(a1, b1), types.UpdateAdded, nil)

	assert.Equal(t, []types.Edge{
		types.NewEdge(b1, a1),
		types.NewEdge(a1, b1),
		types.NewEdge(pr, b2),
	}, s.Edges())

	links := s.Links()
	require.Len(t, links, 3)
	assert.True(t, links[2].Production)
}

func TestStore_Journal(t *testing.T) {
	s := New(WithJournalSize(2))

	s.NotifyEdge(types.NewEdge(a1, b1), types.UpdateAdded, nil)
	s.NotifyEdge(types.NewEdge(b1, a1), types.UpdateAdded, nil)
	s.NotifyEdge(types.NewEdge(a1, b1), types.UpdateRemoved, nil)

	journal := s.Journal()
	require.Len(t, journal, 2)
	assert.Equal(t, types.NewEdge(b1, a1), journal[0].Edge)
	assert.Equal(t, types.UpdateRemoved, journal[1].Type)
	assert.NotEqual(t, uuid.Nil, journal[0].ID)
	assert.NotEqual(t, journal[0].ID, journal[1].ID)

	// 返回副本
	journal[0].Type = types.UpdateChanged
	assert.Equal(t, types.UpdateAdded, s.Journal()[0].Type)
}

func TestStore_JournalDisabled(t *testing.T) {
	s := New(WithJournalSize(0))
	s.NotifyEdge(types.NewEdge(a1, b1), types.UpdateAdded, nil)
	assert.Empty(t, s.Journal())
	assert.Equal(t, 1, s.Len())
}
