// Package node 组装一个模拟集群成员
//
// 每个节点的协议栈自底向上为 [loopback.Transport, fault.Injector, discovery.Endpoint]，
// 栈顶由节点自身接收消息与视图。故障注入层的句柄在组装时直接交给发现端点。
package node
