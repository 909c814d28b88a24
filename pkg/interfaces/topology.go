package interfaces

import (
	"context"

	"github.com/dep2p/go-linkdisc/pkg/types"
)

// DiscoveryService 拓扑发现服务
//
// 同时作为帧接收入口和端口生命周期监听器挂接到交换机 I/O 层与清单。
type DiscoveryService interface {
	FrameIntake
	PortLifecycleListener

	// Start 启动发现时钟与探测发送协程
	Start(ctx context.Context) error

	// Stop 停止服务，已排队但未发送的探测帧会被丢弃
	Stop() error

	// Snapshot 返回引擎状态的只读快照
	Snapshot(ctx context.Context) (types.DiscoverySnapshot, error)

	// SetThrottling 手动节流开关：开启后每个 tick 不限制探测端口数
	SetThrottling(enabled bool)

	// SetSnooping 全局 LLDP 监听开关
	SetSnooping(enabled bool)

	// SetPortSnooping 单端口 LLDP 监听开关
	SetPortSnooping(port types.Port, enabled bool)

	// SetAging 生产边老化开关
	SetAging(enabled bool)
}
