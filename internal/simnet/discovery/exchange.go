package discovery

import (
	"github.com/dep2p/go-simnet/pkg/interfaces"
	"github.com/dep2p/go-simnet/pkg/types"
)

// ExchangeAddresses 双向交换物理地址映射
//
// 每一侧的物理地址都通过它自己的协议栈解析，再登记到另一侧的地址表中。
// 解析被拒绝（例如该侧开启了 discard-all）的一侧不贡献映射。
// 返回成功登记的映射数（0 到 2）。
func ExchangeAddresses(a, b interfaces.DiscoveryPeer) int {
	n := 0
	if offer(a, b) {
		n++
	}
	if offer(b, a) {
		n++
	}
	return n
}

// offer 把 from 的映射登记到 to
func offer(from, to interfaces.DiscoveryPeer) bool {
	phys, ok := from.PhysicalAddress()
	if !ok {
		return false
	}
	to.AddPhysicalAddress(types.AddressMapping{
		Logical:     from.LocalAddress(),
		Physical:    phys,
		LogicalName: from.LogicalName(),
	})
	return true
}
