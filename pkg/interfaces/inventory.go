package interfaces

import "github.com/dep2p/go-linkdisc/pkg/types"

// ════════════════════════════════════════════════════════════════════════════
//                              端口生命周期来源
// ════════════════════════════════════════════════════════════════════════════

// PortLifecycleSource 端口/节点清单来源
//
// 由交换机清单（inventory）提供：
//   - 权威的已启用端口快照（一致性检查使用）
//   - 端口属性（随边通知下发）
//   - 生命周期事件订阅
type PortLifecycleSource interface {
	// EnabledPorts 返回当前所有已启用（管理开启且链路 up）的受控端口
	EnabledPorts() []types.Port

	// IsEnabled 端口是否已启用
	IsEnabled(port types.Port) bool

	// Properties 返回端口属性；未知端口返回 nil
	Properties(port types.Port) types.PropertySet

	// Subscribe 订阅生命周期事件，返回取消订阅函数
	Subscribe(listener PortLifecycleListener) (unsubscribe func())
}

// PortLifecycleListener 端口/节点生命周期事件监听器
//
// 实现方不得阻塞调用方。
type PortLifecycleListener interface {
	// PortAdded 端口加入
	PortAdded(port types.Port, enabled bool)

	// PortRemoved 端口移除
	PortRemoved(port types.Port)

	// PortEnabledChanged 端口启用状态变化
	PortEnabledChanged(port types.Port, enabled bool)

	// NodeAdded 节点加入
	NodeAdded(node types.Node)

	// NodeRemoved 节点移除
	NodeRemoved(node types.Node)
}
