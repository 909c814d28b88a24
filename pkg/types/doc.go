// Package types 定义 linkdisc 的基础类型
//
// 拓扑发现引擎围绕以下类型构建：
//
//   - Node: 交换机节点，分为受控节点（Managed）与生产网络节点（Production）
//   - Port: 交换机端口，由 (Node, 本地端口 ID) 唯一确定
//   - Edge: 有向邻接关系（Tail → Head）
//   - PropertySet: 端口属性集合，随边通知一起下发
//   - UpdateType: 边变更类型（ADDED / CHANGED / REMOVED）
//   - ProbeState: 端口探测状态（Untracked / ReadyHigh / ReadyLow / Staging）
//
// 端口的字符串编码（"<端口ID>@<节点类型>|<节点ID>"）即探测帧中自描述引用 TLV 的内容，
// 接收端据此识别本控制器自己发出的探测。
package types
