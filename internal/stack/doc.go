// Package stack 实现最小的分层协议栈
//
// 协议层按自底向上的顺序组装，相邻层互相持有引用。向下事件从栈顶的协议层进入，
// 最终到达底层传输；向上事件从传输层进入，经各层过滤后交给栈顶的 Receiver。
//
// 本包只负责事件在层间的穿引，不包含任何协议语义。
//
//	s, err := stack.New(receiver, transport, injector, endpoint)
//	if err := s.Start(); err != nil { ... }
//	s.Down(types.MsgEvent(msg))
package stack
