// Package linkdisc 提供 SDN 控制器的 LLDP 链路发现
//
// linkdisc 周期性地从受控交换机的每个已启用端口发出带有源端口引用的
// LLDP 探测帧，根据回显推断交换机之间的有向链路（主动边），
// 并监听外部 LLDP 推断与生产网络之间的链路（生产边）。
//
// # 快速开始
//
//	import "github.com/dep2p/go-linkdisc"
//
//	ctrl, err := linkdisc.Start(ctx,
//	    linkdisc.WithFabricFile("fabric.json"),
//	    linkdisc.WithIntrospect(true),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer ctrl.Close()
//
//	for _, link := range ctrl.Topology().Links() {
//	    fmt.Println(link.Edge)
//	}
//
// # 组件
//
//	┌──────────────┐  生命周期事件   ┌───────────────────┐   边变更   ┌────────────┐
//	│  Inventory   │ ─────────────▶ │ discovery/topology │ ────────▶ │  topostore │
//	└──────────────┘                └───────────────────┘            └────────────┘
//	                                   │ Transmit   ▲ Receive
//	                                   ▼            │
//	                                ┌───────────────────┐
//	                                │  Fabric / 自定义   │
//	                                └───────────────────┘
//
// 使用 WithTransport 接入真实交换机 I/O 层时，需要将 Controller.Intake()
// 挂接到收帧路径上。
//
// # 配置
//
// 配置见 config 包。运行时调整（节流、监听、老化）通过 Discovery() 返回的
// 服务完成，从下一个 tick 开始生效。
package linkdisc
