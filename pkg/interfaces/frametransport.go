package interfaces

import "github.com/dep2p/go-linkdisc/pkg/types"

// FrameTransport 交换机帧发送接口
//
// 尽力而为：交换机不可达或未就绪时发送可以静默失败，
// 下一轮发现会自然重新探测。
type FrameTransport interface {
	// Operational 交换机是否存在且处于可用状态
	Operational(node types.Node) bool

	// Transmit 从指定端口发出一帧
	Transmit(port types.Port, frame []byte) error
}

// FrameIntake 帧接收入口
//
// 由交换机 I/O 层在收到数据帧时调用，可能来自任意 goroutine。
type FrameIntake interface {
	Receive(ingress types.Port, frame []byte) ReceiveResult
}

// ReceiveResult 帧处理结果
type ReceiveResult int

const (
	// Ignored 帧未被处理
	Ignored ReceiveResult = iota
	// Consumed 帧已被发现引擎消费
	Consumed
)

// String 返回处理结果的字符串表示
func (r ReceiveResult) String() string {
	if r == Consumed {
		return "consumed"
	}
	return "ignored"
}
