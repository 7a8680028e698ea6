// Package types 定义 simnet 的公共数据结构
//
// 这是整个系统的最底层包，不依赖任何其他 simnet 内部包。
// 所有类型都是值类型或简单容器，用于在协议栈各层之间传递数据。
//
// # 文件组织
//
//   - address.go   - Address（逻辑地址）, PhysicalAddress（模拟物理地址）, AddressMapping
//   - ids.go       - ScopeKey（测试作用域 + 集群名）
//   - message.go   - Message, MessageBatch
//   - events.go    - Event, EventType
//   - view.go      - View（成员视图）
//   - discovery.go - PingData（发现响应）, Responses（一轮发现的结果集）
//   - errors.go    - 公共错误定义
//
// 消息负载是不透明的字节切片，本包不定义任何编码格式。
package types
