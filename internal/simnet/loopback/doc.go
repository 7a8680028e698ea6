// Package loopback 实现进程内的模拟线路
//
// Hub 按作用域键持有所有已启动的 Transport。Transport 是协议栈最底层：
// 组播消息复制给同一作用域内的每个 Transport（包括发送方自身，除非设置了
// FlagNoLoopback），单播消息复制给目的地址对应的 Transport，目的地址未知时丢弃。
// 投递在发送方 goroutine 上同步完成。
//
// 每个 Transport 持有一张地址表（逻辑地址 → 物理地址与逻辑名），
// 应答 EventGetPhysicalAddress、EventAddPhysicalAddress 与 EventGetLogicalName。
package loopback
