// Package interfaces 定义 linkdisc 的组件协作接口
//
// 发现引擎与外部协作方之间只通过以下接口交互：
//
//   - inventory.go      - PortLifecycleSource / PortLifecycleListener：端口清单与生命周期事件
//   - frametransport.go - FrameTransport / FrameIntake：探测帧发送与接收
//   - edgesink.go       - EdgeSink：边变更的唯一通知点
//   - topology.go       - DiscoveryService：发现服务本身
//
// # 依赖方向
//
//	inventory ──▶ discovery/topology ──▶ topostore
//	                 │        ▲
//	                 ▼        │
//	           FrameTransport / FrameIntake
//
// 引擎不直接依赖任何具体实现，测试使用 tests/mocks 中的手写模拟。
package interfaces
