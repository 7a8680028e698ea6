package simnet

import (
	"github.com/dep2p/go-simnet/internal/simnet/node"
	"github.com/dep2p/go-simnet/pkg/types"
)

// ════════════════════════════════════════════════════════════════════════════
//                              类型别名
// ════════════════════════════════════════════════════════════════════════════

// Node 模拟集群成员
type Node = node.Node

// Address 逻辑成员地址
type Address = types.Address

// ScopeKey 注册表作用域键
type ScopeKey = types.ScopeKey

// View 成员视图
type View = types.View

// PingData 发现响应
type PingData = types.PingData

// Responses 一轮发现的结果
type Responses = types.Responses

// Message 协议栈消息
type Message = types.Message
