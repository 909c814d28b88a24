// Package inventory 提供受控交换机与端口的内存清单
//
// Inventory 是发现引擎的端口生命周期来源（interfaces.PortLifecycleSource）：
//   - 维护交换机、端口、启用状态与端口属性
//   - 提供权威的已启用端口快照，供一致性检查对账
//   - 变更后同步通知订阅者（在锁外调用）
//
// DropEvents 可以暂停事件通知，用于模拟生命周期事件丢失。
package inventory
