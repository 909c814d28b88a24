package types

import (
	"fmt"
	"strings"
)

// portSep 端口 ID 与节点编码之间的分隔符
const portSep = "@"

// 保留端口 ID，不参与拓扑发现
var specialPortIDs = map[string]struct{}{
	"CONTROLLER": {},
	"LOCAL":      {},
	"ALL":        {},
	"FLOOD":      {},
	"NORMAL":     {},
	"IN_PORT":    {},
	"TABLE":      {},
	"ANY":        {},
}

// Port 交换机端口
//
// Port 是可比较的值类型，可直接作为 map 键。
type Port struct {
	Node Node   `json:"node"`
	ID   string `json:"id"`
}

// NewPort 创建端口
func NewPort(node Node, id string) Port {
	return Port{Node: node, ID: id}
}

// IsSpecial 是否为保留端口（控制器口、本地口等）
func (p Port) IsSpecial() bool {
	_, ok := specialPortIDs[strings.ToUpper(p.ID)]
	return ok
}

// IsZero 是否为空端口
func (p Port) IsZero() bool {
	return p.ID == "" && p.Node.IsZero()
}

// String 返回 "<端口ID>@<节点编码>" 形式的完整连接器编码
func (p Port) String() string {
	return p.ID + portSep + p.Node.String()
}

// MarshalText 实现 encoding.TextMarshaler，便于作为 JSON map 键
func (p Port) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (p *Port) UnmarshalText(text []byte) error {
	parsed, err := ParsePort(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParsePort 解析完整连接器编码
func ParsePort(s string) (Port, error) {
	id, nodeStr, ok := strings.Cut(s, portSep)
	if !ok {
		return Port{}, fmt.Errorf("%w: %q", ErrInvalidPort, s)
	}
	if id == "" {
		return Port{}, fmt.Errorf("%w: %w", ErrInvalidPort, ErrEmptyID)
	}
	node, err := ParseNode(nodeStr)
	if err != nil {
		return Port{}, fmt.Errorf("%w: %w", ErrInvalidPort, err)
	}
	return Port{Node: node, ID: id}, nil
}

// PortSet 端口集合
type PortSet map[Port]struct{}

// NewPortSet 从切片创建端口集合
func NewPortSet(ports ...Port) PortSet {
	s := make(PortSet, len(ports))
	for _, p := range ports {
		s[p] = struct{}{}
	}
	return s
}

// Has 是否包含端口
func (s PortSet) Has(p Port) bool {
	_, ok := s[p]
	return ok
}
