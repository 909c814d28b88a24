package linkdisc

import "errors"

// 公共错误定义
var (
	// ErrAlreadyStarted 控制器已启动
	ErrAlreadyStarted = errors.New("linkdisc: controller already started")

	// ErrClosed 控制器已关闭
	ErrClosed = errors.New("linkdisc: controller closed")

	// ErrNoFabric 使用自定义帧传输时没有模拟网络
	ErrNoFabric = errors.New("linkdisc: no simulated fabric")
)
