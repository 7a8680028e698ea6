package interfaces

import "github.com/dep2p/go-simnet/pkg/types"

// Discovery 成员发现端点
type Discovery interface {
	// Start 清除 stopped 标志
	Start() error

	// Stop 从注册表注销并设置 stopped
	Stop() error

	// Suspend 设置 stopped 但保留注册
	Suspend()

	// IsStopped 是否已停止（或挂起）
	IsStopped() bool

	// FindMembers 执行一轮发现
	FindMembers() *types.Responses
}

// DiscoveryPeer 注册表中的成员，供其他节点的发现端点查询
//
// 由发现端点实现。物理地址解析与映射注册都经过该成员自己的协议栈，
// 因此会受到它自己的故障注入层约束。
type DiscoveryPeer interface {
	// LocalAddress 成员逻辑地址
	LocalAddress() types.Address

	// LogicalName 成员逻辑名称
	LogicalName() string

	// IsStopped 是否已停止或挂起
	IsStopped() bool

	// FaultState 成员的故障注入状态，可能为 nil
	FaultState() FaultState

	// PhysicalAddress 通过自身协议栈解析本成员的物理地址
	PhysicalAddress() (types.PhysicalAddress, bool)

	// AddPhysicalAddress 在自身地址表中登记对端映射
	AddPhysicalAddress(m types.AddressMapping) bool

	// PingData 描述自身的完整发现响应
	PingData() *types.PingData
}
