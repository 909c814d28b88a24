package topology

import "errors"

// 预定义错误
var (
	// ErrServiceClosed 服务已关闭
	ErrServiceClosed = errors.New("topology: service closed")

	// ErrAlreadyStarted 服务已启动
	ErrAlreadyStarted = errors.New("topology: already started")

	// ErrNilTransport 未提供帧发送接口
	ErrNilTransport = errors.New("topology: frame transport is nil")
)
