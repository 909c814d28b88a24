package types

import "maps"

// Edge 有向邻接关系（Tail → Head）
//
// 主动边的 Tail 是发出探测的端口，Head 是收到探测的端口；
// 生产边的 Tail 位于合成的生产网络节点上。
type Edge struct {
	Tail Port `json:"tail"`
	Head Port `json:"head"`
}

// NewEdge 创建边
func NewEdge(tail, head Port) Edge {
	return Edge{Tail: tail, Head: head}
}

// IsProduction 是否为生产边
func (e Edge) IsProduction() bool {
	return e.Tail.Node.Kind == NodeKindProduction
}

// String 返回边的字符串表示
func (e Edge) String() string {
	return "(" + e.Tail.String() + " -> " + e.Head.String() + ")"
}

// ============================================================================
//                              PropertySet - 端口属性
// ============================================================================

// 常用属性键
const (
	PropName      = "name"
	PropBandwidth = "bandwidth"
	PropConfig    = "config"
	PropState     = "state"
	PropTimestamp = "timestamp"
)

// PropertySet 端口属性集合
type PropertySet map[string]string

// Clone 返回属性集合的副本
func (p PropertySet) Clone() PropertySet {
	if p == nil {
		return nil
	}
	return maps.Clone(p)
}

// Equal 判断两个属性集合是否相同（nil 与空集合视为相同）
func (p PropertySet) Equal(other PropertySet) bool {
	return maps.Equal(p, other)
}
