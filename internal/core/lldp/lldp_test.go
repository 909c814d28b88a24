package lldp

import (
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-linkdisc/pkg/types"
)

func TestBuildProbe_RoundTrip(t *testing.T) {
	port := types.NewPort(types.ManagedNode("00:00:00:00:00:00:00:01"), "7")

	frame, err := NewBuilder().BuildProbe(port)
	require.NoError(t, err)
	require.NotEmpty(t, frame)

	probe, err := Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, port.Node.ID, probe.ChassisID)
	assert.Equal(t, "7", probe.PortID)
	assert.Equal(t, port.Node.ID, probe.SystemName)
	assert.Equal(t, DefaultTTL, probe.TTL)
	assert.Equal(t, port.String(), probe.Reference)

	src, err := probe.SourcePort()
	require.NoError(t, err)
	assert.Equal(t, port, src)
}

func TestBuildProbe_Multicast(t *testing.T) {
	frame, err := NewBuilder().BuildProbe(types.NewPort(types.ManagedNode("1"), "1"))
	require.NoError(t, err)

	packet := gopacket.NewPacket(frame, layers.LayerTypeEthernet, gopacket.Default)
	eth, ok := packet.Layer(layers.LayerTypeEthernet).(*layers.Ethernet)
	require.True(t, ok)
	assert.Equal(t, MulticastMAC, eth.DstMAC)
	assert.Equal(t, layers.EthernetTypeLinkLayerDiscovery, eth.EthernetType)
}

func TestBuildForeign(t *testing.T) {
	frame, err := NewBuilder().BuildForeign("aa:bb", "SW9", "Gi0/1")
	require.NoError(t, err)

	probe, err := Decode(frame)
	require.NoError(t, err)
	assert.Empty(t, probe.Reference)
	assert.Equal(t, "Gi0/1", probe.PortID)

	_, err = probe.SourcePort()
	assert.ErrorIs(t, err, ErrNoReference)

	id, err := probe.NeighborID()
	require.NoError(t, err)
	assert.Equal(t, "SW9", id)

	t.Run("ChassisFallback", func(t *testing.T) {
		frame, err := NewBuilder().BuildForeign("SW12", "", "1")
		require.NoError(t, err)
		probe, err := Decode(frame)
		require.NoError(t, err)
		id, err := probe.NeighborID()
		require.NoError(t, err)
		assert.Equal(t, "SW12", id)
	})

	t.Run("SystemNameOnly", func(t *testing.T) {
		frame, err := NewBuilder().BuildForeign("", "core-1", "Gi0/1")
		require.NoError(t, err)
		probe, err := Decode(frame)
		require.NoError(t, err)
		assert.Equal(t, "core-1", probe.ChassisID)
		assert.Equal(t, "core-1", probe.SystemName)
		assert.Equal(t, "Gi0/1", probe.PortID)
		assert.Empty(t, probe.Reference)
	})

	t.Run("MissingIdentity", func(t *testing.T) {
		_, err := NewBuilder().BuildForeign("", "", "Gi0/1")
		assert.ErrorIs(t, err, ErrNoIdentity)
		_, err = NewBuilder().BuildForeign("aa:bb", "SW9", "")
		assert.ErrorIs(t, err, ErrNoPortID)
	})
}

func TestReferenceOUIBytes(t *testing.T) {
	frame, err := NewBuilder().BuildProbe(types.NewPort(types.ManagedNode("1"), "2"))
	require.NoError(t, err)

	packet := gopacket.NewPacket(frame, layers.LayerTypeEthernet, gopacket.Default)
	lldp, ok := packet.Layer(layers.LayerTypeLinkLayerDiscovery).(*layers.LinkLayerDiscovery)
	require.True(t, ok)
	var org []byte
	for _, v := range lldp.Values {
		if v.Type == layers.LLDPTLVOrgSpecific {
			org = v.Value
		}
	}
	require.GreaterOrEqual(t, len(org), 4)
	assert.Equal(t, []byte{0x00, 0x26, 0xe1, ReferenceSubtype}, org[:4])
}

func TestDecode_Rejects(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		_, err := Decode(nil)
		assert.ErrorIs(t, err, ErrEmptyFrame)
	})

	t.Run("NotLLDP", func(t *testing.T) {
		eth := &layers.Ethernet{
			SrcMAC:       DefaultSourceMAC,
			DstMAC:       MulticastMAC,
			EthernetType: layers.EthernetTypeIPv4,
		}
		buf := gopacket.NewSerializeBuffer()
		require.NoError(t, gopacket.SerializeLayers(buf, gopacket.SerializeOptions{}, eth, gopacket.Payload([]byte{1, 2, 3, 4})))
		_, err := Decode(buf.Bytes())
		assert.ErrorIs(t, err, ErrNotDiscoveryFrame)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := Decode([]byte{0x01, 0x02, 0x03})
		assert.ErrorIs(t, err, ErrNotDiscoveryFrame)
	})

	t.Run("ForeignOrgTLVIgnored", func(t *testing.T) {
		frame, err := NewBuilder().build(
			layers.LLDPChassisID{Subtype: layers.LLDPChassisIDSubTypeLocal, ID: []byte("x")},
			layers.LLDPPortID{Subtype: layers.LLDPPortIDSubtypeLocal, ID: []byte("1")},
			tlv(layers.LLDPTLVOrgSpecific, []byte{0x00, 0x12, 0x0f, 0x01, 0xaa}),
		)
		require.NoError(t, err)
		probe, err := Decode(frame)
		require.NoError(t, err)
		assert.Empty(t, probe.Reference)
	})
}

func TestReferenceValue(t *testing.T) {
	_, ok := referenceValue([]byte{0x00, 0x26})
	assert.False(t, ok)

	ref, ok := referenceValue([]byte{0x00, 0x26, 0xe1, 0x00, '1', '@', 'S', 'W', '|', 'a', 0x00})
	assert.True(t, ok)
	assert.Equal(t, "1@SW|a", ref)
}
