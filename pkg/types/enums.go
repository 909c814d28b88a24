package types

import "fmt"

// ============================================================================
//                              NodeKind - 节点类型
// ============================================================================

// NodeKind 节点类型
type NodeKind uint8

const (
	// NodeKindManaged 受控交换机，其端口由发现引擎探测
	NodeKindManaged NodeKind = iota
	// NodeKindProduction 生产网络节点，仅通过监听外部 LLDP 推断，不做探测
	NodeKindProduction
)

// String 返回节点类型的短标识
func (k NodeKind) String() string {
	switch k {
	case NodeKindManaged:
		return "SW"
	case NodeKindProduction:
		return "PR"
	default:
		return "??"
	}
}

// ParseNodeKind 解析节点类型短标识
func ParseNodeKind(s string) (NodeKind, bool) {
	switch s {
	case "SW":
		return NodeKindManaged, true
	case "PR":
		return NodeKindProduction, true
	default:
		return 0, false
	}
}

// MarshalText 实现 encoding.TextMarshaler
func (k NodeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (k *NodeKind) UnmarshalText(text []byte) error {
	parsed, ok := ParseNodeKind(string(text))
	if !ok {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidNode, text)
	}
	*k = parsed
	return nil
}

// ============================================================================
//                              UpdateType - 边变更类型
// ============================================================================

// UpdateType 边变更类型
type UpdateType int

const (
	// UpdateAdded 新增边
	UpdateAdded UpdateType = iota + 1
	// UpdateChanged 边属性变化
	UpdateChanged
	// UpdateRemoved 删除边
	UpdateRemoved
)

// String 返回变更类型的字符串表示
func (u UpdateType) String() string {
	switch u {
	case UpdateAdded:
		return "ADDED"
	case UpdateChanged:
		return "CHANGED"
	case UpdateRemoved:
		return "REMOVED"
	default:
		return "UNKNOWN"
	}
}

// MarshalText 实现 encoding.TextMarshaler
func (u UpdateType) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

// ============================================================================
//                              ProbeState - 端口探测状态
// ============================================================================

// ProbeState 端口探测状态
//
// 每个受控端口在任一可观察时刻恰好处于其中一种状态。
type ProbeState int

const (
	// ProbeUntracked 未被跟踪
	ProbeUntracked ProbeState = iota
	// ProbeReadyHigh 需立即探测（新增或重新启用的端口）
	ProbeReadyHigh
	// ProbeReadyLow 等待下一轮周期探测
	ProbeReadyLow
	// ProbeStaging 本轮已探测，等待下一轮重启
	ProbeStaging
)

// String 返回探测状态的字符串表示
func (s ProbeState) String() string {
	switch s {
	case ProbeUntracked:
		return "untracked"
	case ProbeReadyHigh:
		return "ready-high"
	case ProbeReadyLow:
		return "ready-low"
	case ProbeStaging:
		return "staging"
	default:
		return "unknown"
	}
}

// MarshalText 实现 encoding.TextMarshaler
func (s ProbeState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
