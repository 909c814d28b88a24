package topology

import (
	"errors"

	"github.com/dep2p/go-linkdisc/internal/core/lldp"
	"github.com/dep2p/go-linkdisc/pkg/types"
)

// 接收路径错误
var (
	// ErrSpecialPort 入端口为保留端口
	ErrSpecialPort = errors.New("ingress is a reserved port")

	// ErrZeroIngress 入端口为空
	ErrZeroIngress = errors.New("ingress port is empty")
)

// unknownNeighborPort 外部 LLDP 未携带端口标识时使用的占位端口 ID
const unknownNeighborPort = "0"

// frameClass 帧分类
type frameClass int

const (
	classSelf frameClass = iota + 1
	classForeign
)

// inbound 已分类的接收帧
type inbound struct {
	class   frameClass
	ingress types.Port

	// source 自身探测的发送端口
	source types.Port

	// neighbor/neighborPort 外部 LLDP 发送方标识
	neighbor     string
	neighborPort string
}

// classify 解码并分类接收帧
//
// 只做帧解析，不访问引擎状态，可在任意 goroutine 上调用。
// 引用 TLV 能解析为受控节点端口时视为自身探测回显，否则按外部 LLDP 处理。
func classify(ingress types.Port, frame []byte) (inbound, error) {
	if ingress.IsZero() {
		return inbound{}, ErrZeroIngress
	}
	if ingress.IsSpecial() {
		return inbound{}, ErrSpecialPort
	}

	probe, err := lldp.Decode(frame)
	if err != nil {
		return inbound{}, err
	}

	if src, err := probe.SourcePort(); err == nil && src.Node.IsManaged() {
		return inbound{class: classSelf, ingress: ingress, source: src}, nil
	}

	neighbor, err := probe.NeighborID()
	if err != nil {
		return inbound{}, err
	}
	portID := probe.PortID
	if portID == "" {
		portID = unknownNeighborPort
	}
	return inbound{
		class:        classForeign,
		ingress:      ingress,
		neighbor:     neighbor,
		neighborPort: portID,
	}, nil
}

// ============================================================================
//                              事件循环侧处理
// ============================================================================

// handle 在事件循环中应用已分类的帧
func (e *engine) handle(in inbound) {
	switch in.class {
	case classSelf:
		e.handleSelf(in.source, in.ingress)
	case classForeign:
		e.handleForeign(in.neighbor, in.neighborPort, in.ingress)
	}
}

// handleSelf 自身探测回显：src → dst 为一条主动边
func (e *engine) handleSelf(src, dst types.Port) {
	if e.tombstoned(src.Node) || e.tombstoned(dst.Node) {
		e.metrics.frame(frameRejected)
		logger.Debug("忽略已移除节点的探测回显", "src", src.String(), "dst", dst.String())
		return
	}
	e.metrics.frame(frameSelf)

	e.rec.AddOrUpdateActiveEdge(types.NewEdge(src, dst), e.properties(dst))
	e.store.clearElapsed(src)
}

// handleForeign 外部 LLDP：在生产网络节点与本地端口之间推断一条生产边
func (e *engine) handleForeign(neighbor, neighborPort string, dst types.Port) {
	if !e.policy.allows(dst) {
		e.metrics.frame(frameIgnored)
		logger.Debug("端口未开启监听，忽略外部 LLDP", "port", dst.String())
		return
	}
	if e.tombstoned(dst.Node) {
		e.metrics.frame(frameRejected)
		return
	}

	tail := types.NewPort(types.ProductionNode(neighbor), neighborPort)
	if !e.rec.UpdateProductionEdge(types.NewEdge(tail, dst), e.properties(dst)) {
		e.metrics.frame(frameIgnored)
		logger.Debug("本地端口已有主动边，丢弃生产边更新", "port", dst.String(), "neighbor", neighbor)
		return
	}
	e.metrics.frame(frameForeign)
}

// ============================================================================
//                              监听策略
// ============================================================================

// snoopPolicy 外部 LLDP 监听策略，不可变
type snoopPolicy struct {
	enabled  bool
	disabled types.PortSet
}

func (p *snoopPolicy) allows(port types.Port) bool {
	return p != nil && p.enabled && !p.disabled.Has(port)
}
