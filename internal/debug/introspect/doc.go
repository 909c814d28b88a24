// Package introspect 提供本地自省 HTTP 服务
//
// 该服务运行在本地端口，提供 JSON 格式的诊断信息，用于调试和监控。
// 默认绑定到 127.0.0.1，不暴露到网络。
//
// # 端点
//
//	GET /debug/introspect         - 完整诊断报告 (JSON)
//	GET /debug/discovery          - 发现引擎快照
//	GET /debug/topology           - 当前拓扑
//	GET /debug/topology/journal   - 拓扑变更日志
//	GET /debug/runtime            - 运行时信息
//	GET /metrics                  - Prometheus 指标
//	GET /debug/pprof/*            - Go pprof 端点
//	GET /health                   - 健康检查
//
// # 使用示例
//
//	server := introspect.New(introspect.Config{
//	    Addr:      "127.0.0.1:6060",
//	    Discovery: svc,
//	    Topology:  store,
//	    Gatherer:  svc.Registry(),
//	})
//	server.Start(ctx)
//	defer server.Stop()
//
// # 安全
//
// 默认只监听本地地址。所有端点只读，不修改引擎状态。
// 通过 config.Diagnostics.EnableIntrospect 配置启用。
package introspect
