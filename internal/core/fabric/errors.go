package fabric

import "errors"

// 预定义错误
var (
	// ErrUnknownSwitch 交换机不存在
	ErrUnknownSwitch = errors.New("fabric: unknown switch")

	// ErrSwitchExists 交换机已存在
	ErrSwitchExists = errors.New("fabric: switch already exists")

	// ErrSwitchDown 交换机不可用
	ErrSwitchDown = errors.New("fabric: switch not operational")

	// ErrPortCabled 端口已接线
	ErrPortCabled = errors.New("fabric: port already cabled")

	// ErrSelfLoop 线缆两端是同一端口
	ErrSelfLoop = errors.New("fabric: cable endpoints are the same port")

	// ErrClosed 网络已关闭
	ErrClosed = errors.New("fabric: closed")

	// ErrInvalidSpec 网络描述无效
	ErrInvalidSpec = errors.New("fabric: invalid spec")
)
