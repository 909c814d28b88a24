// Package topology 实现基于 LLDP 的链路发现引擎
//
// 引擎为受控交换机的每个端口周期性发送探测帧，根据回显判定端口之间的物理邻接，
// 并监听外部设备发出的 LLDP 推断与生产网络的邻接。所有边变更经由唯一的通知点
// 投递给拓扑消费者（interfaces.EdgeSink）。
//
// # 组件
//
//   - PortStore: 端口探测状态（ReadyHigh / ReadyLow / Staging）与 Hold/Elapsed 计时
//   - Reconciler: 主动边表与生产边表，负责增删替换规则和老化计时
//   - Transmitter: 独立协程，将"探测该端口"请求转换为 LLDP 帧发出
//   - 接收路径: 区分自身探测回显与外部 LLDP，驱动 Reconciler
//   - 发现时钟: 每个 tick 依次执行超时检查、老化检查、一致性检查、批量探测
//
// # 并发模型
//
// 引擎状态只由 Service 的事件循环协程访问：时钟 tick、接收路径提交的变更、
// 生命周期事件和查询都作为消息进入同一个队列，按顺序执行。接收路径只做帧解码
// 和非阻塞投递，不会阻塞交换机 I/O。
//
// 节点移除在事件循环中一次完成，随后节点进入墓碑集合，迟到的该节点相关帧被忽略，
// 直到节点重新加入。
package topology
