package loopback

import (
	"slices"
	"strings"
	"sync"

	"github.com/dep2p/go-simnet/pkg/types"
)

// AddressTable 逻辑地址到物理地址与逻辑名的映射
type AddressTable struct {
	mu      sync.RWMutex
	entries map[types.Address]types.AddressMapping
}

// NewAddressTable 创建空地址表
func NewAddressTable() *AddressTable {
	return &AddressTable{entries: make(map[types.Address]types.AddressMapping)}
}

// Add 写入映射，内容有变化时返回 true
//
// 物理地址为空时只更新逻辑名。
func (t *AddressTable) Add(m types.AddressMapping) bool {
	if m.Logical.IsZero() {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	old, exists := t.entries[m.Logical]
	next := old
	next.Logical = m.Logical
	if !m.Physical.IsZero() {
		next.Physical = m.Physical
	}
	if m.LogicalName != "" {
		next.LogicalName = m.LogicalName
	}
	if exists && next == old {
		return false
	}
	t.entries[m.Logical] = next
	return true
}

// Remove 删除映射
func (t *AddressTable) Remove(addr types.Address) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, addr)
}

// Physical 查询物理地址
func (t *AddressTable) Physical(addr types.Address) (types.PhysicalAddress, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	m, ok := t.entries[addr]
	if !ok || m.Physical.IsZero() {
		return types.PhysicalAddress{}, false
	}
	return m.Physical, true
}

// Name 查询逻辑名
func (t *AddressTable) Name(addr types.Address) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	m, ok := t.entries[addr]
	if !ok || m.LogicalName == "" {
		return "", false
	}
	return m.LogicalName, true
}

// Len 映射数
func (t *AddressTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Snapshot 返回按逻辑名排序的映射快照
func (t *AddressTable) Snapshot() []types.AddressMapping {
	t.mu.RLock()
	out := make([]types.AddressMapping, 0, len(t.entries))
	for _, m := range t.entries {
		out = append(out, m)
	}
	t.mu.RUnlock()

	slices.SortFunc(out, func(a, b types.AddressMapping) int {
		if c := strings.Compare(a.LogicalName, b.LogicalName); c != 0 {
			return c
		}
		return strings.Compare(a.Logical.String(), b.Logical.String())
	})
	return out
}

// Clear 清空地址表
func (t *AddressTable) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	clear(t.entries)
}
