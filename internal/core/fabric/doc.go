// Package fabric 提供模拟交换机网络
//
// Fabric 实现 interfaces.FrameTransport：
//
//	探测帧 → Transmit(port) → 线缆 → 对端端口 → FrameIntake.Receive(peer)
//
// 每台交换机有一个可用标志，不可用的交换机既不发送也不接收。
// 未接线的端口发出的帧被丢弃。
//
// 外部邻居（生产网络设备）以 AddForeignNeighbor 挂接到受控端口，
// EmitForeign 或周期性发射器将其 LLDP 帧注入该端口。
//
// 所有投递都在独立协程上异步进行，Wait 等待在途帧投递完毕。
package fabric
