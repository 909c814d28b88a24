package types

import (
	"fmt"
	"strings"
)

// nodeSep 节点类型与节点 ID 之间的分隔符
const nodeSep = "|"

// Node 交换机节点
//
// 受控节点的 ID 通常是交换机的 datapath ID；
// 生产网络节点的 ID 取自外部 LLDP 的系统名称或机箱 ID。
type Node struct {
	Kind NodeKind `json:"kind"`
	ID   string   `json:"id"`
}

// ManagedNode 创建受控节点
func ManagedNode(id string) Node {
	return Node{Kind: NodeKindManaged, ID: id}
}

// ProductionNode 创建生产网络节点
func ProductionNode(id string) Node {
	return Node{Kind: NodeKindProduction, ID: id}
}

// IsManaged 是否为受控节点
func (n Node) IsManaged() bool {
	return n.Kind == NodeKindManaged
}

// IsZero 是否为空节点
func (n Node) IsZero() bool {
	return n.ID == ""
}

// String 返回 "<类型>|<ID>" 编码
func (n Node) String() string {
	return n.Kind.String() + nodeSep + n.ID
}

// ParseNode 解析 "<类型>|<ID>" 编码
func ParseNode(s string) (Node, error) {
	kind, id, ok := strings.Cut(s, nodeSep)
	if !ok {
		return Node{}, fmt.Errorf("%w: %q", ErrInvalidNode, s)
	}
	k, ok := ParseNodeKind(kind)
	if !ok {
		return Node{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidNode, kind)
	}
	if id == "" {
		return Node{}, fmt.Errorf("%w: %w", ErrInvalidNode, ErrEmptyID)
	}
	return Node{Kind: k, ID: id}, nil
}
