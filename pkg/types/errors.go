package types

import "errors"

// ============================================================================
//                              解析相关错误
// ============================================================================

var (
	// ErrInvalidNode 无效的节点编码
	ErrInvalidNode = errors.New("invalid node encoding")

	// ErrInvalidPort 无效的端口编码
	ErrInvalidPort = errors.New("invalid port encoding")

	// ErrEmptyID 空 ID
	ErrEmptyID = errors.New("empty id")
)
