package interfaces

import "github.com/dep2p/go-simnet/pkg/types"

// FaultState 故障注入层的只读能力句柄
//
// 发现端点通过它读取本节点或对端节点的 discard-all 状态。
// 句柄为 nil 表示该节点未配置故障注入，按"可达"处理。
type FaultState interface {
	// DiscardAll 是否开启 discard-all
	DiscardAll() bool
}

// FaultController 测试工具使用的故障注入控制接口
type FaultController interface {
	FaultState

	SetDiscardAll(bool)
	SetExcludeSelf(bool)
	SetUpDropRate(float64) error
	SetDownDropRate(float64) error
	SetDropNextUnicast(int)
	SetDropNextMulticast(int)
	AddIgnoredSender(types.Address)
	RemoveIgnoredSender(types.Address)
	ClearIgnoredSenders()
}
