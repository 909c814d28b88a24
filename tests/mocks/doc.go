// Package mocks 提供统一的测试 Mock 实现
//
// # 核心 Mock
//
//   - MockEdgeSink: 模拟 interfaces.EdgeSink，记录所有边通知
//   - MockFrameTransport: 模拟 interfaces.FrameTransport，记录发送的探测帧，可设置交换机不可用
//   - MockPortSource: 模拟 interfaces.PortLifecycleSource，维护已启用端口与属性
//
// # 设计原则
//
// 1. 函数式注入: 每个 Mock 都支持通过 XxxFunc 字段注入自定义行为
// 2. 调用记录: 记录调用历史，可在发现协程运行时并发读取
//
// # 使用示例
//
//	func TestProbe(t *testing.T) {
//	    transport := mocks.NewMockFrameTransport()
//	    sink := mocks.NewMockEdgeSink()
//	    svc, err := topology.NewService(cfg, nil, sink, transport)
//	    require.NoError(t, err)
//	    ...
//	    call := <-transport.Sent()
//	    assert.Equal(t, port, call.Port)
//	}
package mocks
