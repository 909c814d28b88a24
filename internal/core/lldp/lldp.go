// Package lldp 实现发现探测帧的编解码
//
// 探测帧是标准 LLDP 帧（EtherType 0x88cc，目的地址 01:80:c2:00:00:0e），携带：
//   - Chassis ID: 交换机 ID（本地子类型）
//   - Port ID: 本地端口 ID（本地子类型）
//   - TTL
//   - System Name: 交换机 ID
//   - 组织自定义 TLV: 发送端口的完整连接器编码（自描述引用）
//
// 接收端通过自描述引用识别本控制器自己发出的探测；
// 外部设备发出的 LLDP 没有该 TLV，按系统名称或机箱 ID 推断生产网络邻居。
package lldp

import (
	"bytes"
	"errors"
	"fmt"
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/dep2p/go-linkdisc/pkg/types"
)

// ============================================================================
//                              常量
// ============================================================================

// DefaultTTL 探测帧 TTL（秒）
const DefaultTTL uint16 = 120

// ReferenceOUI 自描述引用 TLV 使用的组织唯一标识
const ReferenceOUI uint32 = 0x0026e1

// ReferenceSubtype 自描述引用 TLV 子类型
const ReferenceSubtype uint8 = 0x00

var (
	// MulticastMAC LLDP 标准多播目的地址
	MulticastMAC = net.HardwareAddr{0x01, 0x80, 0xc2, 0x00, 0x00, 0x0e}

	// DefaultSourceMAC 控制器探测帧的源地址
	DefaultSourceMAC = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}
)

// ============================================================================
//                              错误定义
// ============================================================================

var (
	// ErrEmptyFrame 空帧
	ErrEmptyFrame = errors.New("empty frame")

	// ErrNotDiscoveryFrame 非 LLDP 帧
	ErrNotDiscoveryFrame = errors.New("not an LLDP frame")

	// ErrNoReference 帧中没有自描述引用 TLV
	ErrNoReference = errors.New("no reference TLV")

	// ErrNoIdentity 帧中既没有系统名称也没有机箱 ID
	ErrNoIdentity = errors.New("no system name or chassis id")

	// ErrNoPortID 外部 LLDP 缺少端口 ID
	ErrNoPortID = errors.New("no port id")
)

// ============================================================================
//                              Probe
// ============================================================================

// Probe 解码后的 LLDP 语义字段
type Probe struct {
	// ChassisID 机箱 ID（MAC 子类型时为冒号格式字符串）
	ChassisID string

	// PortID 端口 ID
	PortID string

	// SystemName 系统名称
	SystemName string

	// TTL 生存时间（秒）
	TTL uint16

	// Reference 自描述引用 TLV 内容，外部 LLDP 为空
	Reference string
}

// SourcePort 解析自描述引用，得到发出该探测的端口
func (p *Probe) SourcePort() (types.Port, error) {
	if p.Reference == "" {
		return types.Port{}, ErrNoReference
	}
	return types.ParsePort(p.Reference)
}

// NeighborID 返回外部邻居标识：优先系统名称，其次机箱 ID
func (p *Probe) NeighborID() (string, error) {
	if p.SystemName != "" {
		return p.SystemName, nil
	}
	if p.ChassisID != "" {
		return p.ChassisID, nil
	}
	return "", ErrNoIdentity
}

// ============================================================================
//                              编码
// ============================================================================

// Builder 探测帧构造器
type Builder struct {
	// SourceMAC 源 MAC 地址
	SourceMAC net.HardwareAddr

	// TTL 生存时间
	TTL uint16
}

// NewBuilder 创建默认探测帧构造器
func NewBuilder() *Builder {
	return &Builder{SourceMAC: DefaultSourceMAC, TTL: DefaultTTL}
}

// BuildProbe 为受控端口构造探测帧
func (b *Builder) BuildProbe(port types.Port) ([]byte, error) {
	ref := []byte(port.String())
	orgValue := make([]byte, 0, 4+len(ref))
	orgValue = append(orgValue, byte(ReferenceOUI>>16&0xff), byte(ReferenceOUI>>8&0xff), byte(ReferenceOUI&0xff), ReferenceSubtype)
	orgValue = append(orgValue, ref...)

	return b.build(
		layers.LLDPChassisID{Subtype: layers.LLDPChassisIDSubTypeLocal, ID: []byte(port.Node.ID)},
		layers.LLDPPortID{Subtype: layers.LLDPPortIDSubtypeLocal, ID: []byte(port.ID)},
		tlv(layers.LLDPTLVSysName, []byte(port.Node.ID)),
		tlv(layers.LLDPTLVOrgSpecific, orgValue),
	)
}

// BuildForeign 构造外部设备风格的 LLDP（无自描述引用），用于仿真生产网络邻居
//
// Chassis ID 与 Port ID TLV 不允许为空；chassisID 为空时使用系统名称作为本地子类型机箱 ID。
func (b *Builder) BuildForeign(chassisID, systemName, portID string) ([]byte, error) {
	if chassisID == "" {
		chassisID = systemName
	}
	if chassisID == "" {
		return nil, ErrNoIdentity
	}
	if portID == "" {
		return nil, ErrNoPortID
	}
	var values []layers.LinkLayerDiscoveryValue
	if systemName != "" {
		values = append(values, tlv(layers.LLDPTLVSysName, []byte(systemName)))
	}
	return b.build(
		layers.LLDPChassisID{Subtype: layers.LLDPChassisIDSubTypeLocal, ID: []byte(chassisID)},
		layers.LLDPPortID{Subtype: layers.LLDPPortIDSubtypeLocal, ID: []byte(portID)},
		values...,
	)
}

func (b *Builder) build(chassis layers.LLDPChassisID, port layers.LLDPPortID, values ...layers.LinkLayerDiscoveryValue) ([]byte, error) {
	eth := &layers.Ethernet{
		SrcMAC:       b.SourceMAC,
		DstMAC:       MulticastMAC,
		EthernetType: layers.EthernetTypeLinkLayerDiscovery,
	}
	lldp := &layers.LinkLayerDiscovery{
		ChassisID: chassis,
		PortID:    port,
		TTL:       b.TTL,
		Values:    values,
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true}
	if err := gopacket.SerializeLayers(buf, opts, eth, lldp); err != nil {
		return nil, fmt.Errorf("serialize lldp: %w", err)
	}
	return buf.Bytes(), nil
}

func tlv(t layers.LLDPTLVType, value []byte) layers.LinkLayerDiscoveryValue {
	return layers.LinkLayerDiscoveryValue{Type: t, Length: uint16(len(value)), Value: value}
}

// ============================================================================
//                              解码
// ============================================================================

// Decode 解码以太网帧中的 LLDP 语义字段
func Decode(frame []byte) (*Probe, error) {
	if len(frame) == 0 {
		return nil, ErrEmptyFrame
	}

	packet := gopacket.NewPacket(frame, layers.LayerTypeEthernet, gopacket.DecodeOptions{Lazy: true, NoCopy: true})
	ethLayer, ok := packet.Layer(layers.LayerTypeEthernet).(*layers.Ethernet)
	if !ok || ethLayer.EthernetType != layers.EthernetTypeLinkLayerDiscovery {
		return nil, ErrNotDiscoveryFrame
	}
	lldp, ok := packet.Layer(layers.LayerTypeLinkLayerDiscovery).(*layers.LinkLayerDiscovery)
	if !ok {
		if errLayer := packet.ErrorLayer(); errLayer != nil {
			return nil, fmt.Errorf("%w: %v", ErrNotDiscoveryFrame, errLayer.Error())
		}
		return nil, ErrNotDiscoveryFrame
	}

	probe := &Probe{
		ChassisID: chassisString(lldp.ChassisID),
		PortID:    portString(lldp.PortID),
		TTL:       lldp.TTL,
	}
	for _, v := range lldp.Values {
		switch v.Type {
		case layers.LLDPTLVSysName:
			probe.SystemName = string(v.Value)
		case layers.LLDPTLVOrgSpecific:
			if ref, ok := referenceValue(v.Value); ok {
				probe.Reference = ref
			}
		}
	}
	return probe, nil
}

// referenceValue 从组织自定义 TLV 中提取自描述引用
func referenceValue(value []byte) (string, bool) {
	if len(value) < 4 {
		return "", false
	}
	oui := uint32(value[0])<<16 | uint32(value[1])<<8 | uint32(value[2])
	if oui != ReferenceOUI || value[3] != ReferenceSubtype {
		return "", false
	}
	return string(bytes.TrimRight(value[4:], "\x00")), true
}

func chassisString(c layers.LLDPChassisID) string {
	if c.Subtype == layers.LLDPChassisIDSubTypeMACAddr && len(c.ID) == 6 {
		return net.HardwareAddr(c.ID).String()
	}
	return string(c.ID)
}

func portString(p layers.LLDPPortID) string {
	if p.Subtype == layers.LLDPPortIDSubtypeMACAddr && len(p.ID) == 6 {
		return net.HardwareAddr(p.ID).String()
	}
	return string(p.ID)
}
