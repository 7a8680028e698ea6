package registry

import (
	"fmt"
	"runtime"
	"slices"
	"sync"

	"github.com/dep2p/go-simnet/pkg/interfaces"
	"github.com/dep2p/go-simnet/pkg/lib/log"
	"github.com/dep2p/go-simnet/pkg/types"
)

var logger = log.Logger("simnet/registry")

// ============================================================================
//                              Peers - 单个作用域的成员
// ============================================================================

// Peers 一个作用域键下的成员映射
type Peers struct {
	key types.ScopeKey

	mu      sync.RWMutex
	members map[types.Address]interfaces.DiscoveryPeer
	retired bool

	// roundMu 发现轮次锁
	roundMu sync.Mutex
}

func newPeers(key types.ScopeKey) *Peers {
	return &Peers{key: key, members: make(map[types.Address]interfaces.DiscoveryPeer)}
}

// Key 返回作用域键
func (p *Peers) Key() types.ScopeKey {
	return p.key
}

// Len 成员数
func (p *Peers) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.members)
}

// Get 按地址查找成员
func (p *Peers) Get(addr types.Address) (interfaces.DiscoveryPeer, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	m, ok := p.members[addr]
	return m, ok
}

// Addresses 成员地址快照（按字符串排序）
func (p *Peers) Addresses() []types.Address {
	p.mu.RLock()
	addrs := make([]types.Address, 0, len(p.members))
	for a := range p.members {
		addrs = append(addrs, a)
	}
	p.mu.RUnlock()
	slices.SortFunc(addrs, compareAddr)
	return addrs
}

// insert 返回 false 表示分区已退役，调用方需重新获取分区
func (p *Peers) insert(addr types.Address, peer interfaces.DiscoveryPeer) (inserted, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.retired {
		return false, false
	}
	if _, exists := p.members[addr]; exists {
		return false, true
	}
	p.members[addr] = peer
	return true, true
}

// remove 删除成员，分区因此变空时将其标记为退役并返回 true
func (p *Peers) remove(addr types.Address) (found, emptied bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, found = p.members[addr]; !found {
		return false, false
	}
	delete(p.members, addr)
	if len(p.members) == 0 {
		p.retired = true
		return true, true
	}
	return true, false
}

func (p *Peers) snapshot() []interfaces.DiscoveryPeer {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]interfaces.DiscoveryPeer, 0, len(p.members))
	for _, m := range p.members {
		out = append(out, m)
	}
	slices.SortFunc(out, func(a, b interfaces.DiscoveryPeer) int {
		return compareAddr(a.LocalAddress(), b.LocalAddress())
	})
	return out
}

// ============================================================================
//                              Round - 一轮发现看到的对端
// ============================================================================

// Round 排除了调用方自身的对端集合
type Round struct {
	peers *Peers
	self  interfaces.DiscoveryPeer
}

// Len 对端数（不含调用方）
func (r Round) Len() int {
	if r.peers == nil {
		return 0
	}
	n := 0
	for _, m := range r.peers.snapshot() {
		if m != r.self {
			n++
		}
	}
	return n
}

// Each 在分区轮次锁内依次访问每个对端，返回访问数
//
// 调用方按身份（而非地址）被排除。fn 内不得再调用注册表的写操作。
func (r Round) Each(fn func(peer interfaces.DiscoveryPeer)) int {
	if r.peers == nil {
		return 0
	}
	r.peers.roundMu.Lock()
	defer r.peers.roundMu.Unlock()

	n := 0
	for _, m := range r.peers.snapshot() {
		if m == r.self {
			continue
		}
		fn(m)
		n++
	}
	return n
}

// ============================================================================
//                              Registry
// ============================================================================

// Registry 发现注册表
type Registry struct {
	// scopes: ScopeKey -> *Peers
	scopes sync.Map

	// retireHook 分区清空后、按身份移除前调用（测试注入点）
	retireHook func(types.ScopeKey)
}

// New 创建空注册表
func New() *Registry {
	return &Registry{}
}

// Register 在 key 下登记成员，返回该键共享的成员映射
//
// 幂等：同一 (key, addr) 重复登记返回同一映射且不会覆盖已有成员。
func (r *Registry) Register(key types.ScopeKey, addr types.Address, peer interfaces.DiscoveryPeer) (*Peers, error) {
	if peer == nil {
		return nil, ErrNilPeer
	}
	if err := key.Validate(); err != nil {
		return nil, err
	}
	if addr.IsZero() {
		return nil, types.ErrInvalidAddress
	}

	for {
		v, loaded := r.scopes.LoadOrStore(key, newPeers(key))
		p := v.(*Peers)
		inserted, ok := p.insert(addr, peer)
		if !ok {
			// 分区正在被最后一个成员移除，等待移除完成后重建
			runtime.Gosched()
			continue
		}
		if inserted {
			logger.Debug("成员已登记", "key", key, "addr", addr.ShortString(), "newScope", !loaded)
		}
		return p, nil
	}
}

// Deregister 从 key 下移除成员
//
// 分区因此变空时按分区对象身份移除整个键。若身份移除失败而键仍然存在，
// 说明分区被并发替换，返回 ErrConsistency。
func (r *Registry) Deregister(key types.ScopeKey, addr types.Address) error {
	v, ok := r.scopes.Load(key)
	if !ok {
		return nil
	}
	p := v.(*Peers)
	found, emptied := p.remove(addr)
	if !found {
		return nil
	}
	logger.Debug("成员已注销", "key", key, "addr", addr.ShortString())
	if !emptied {
		return nil
	}
	if r.retireHook != nil {
		r.retireHook(key)
	}

	if r.scopes.CompareAndDelete(key, p) {
		logger.Debug("作用域已移除", "key", key)
		return nil
	}
	if _, still := r.scopes.Load(key); still {
		logger.Error("注册表一致性错误", "key", key, "addr", addr.ShortString())
		return fmt.Errorf("%w: key=%s addr=%s", ErrConsistency, key, addr)
	}
	return nil
}

// PeersExcludingSelf 返回 key 下除 self 以外的对端
//
// 键不存在时返回空集合。
func (r *Registry) PeersExcludingSelf(key types.ScopeKey, self interfaces.DiscoveryPeer) Round {
	p, _ := r.Lookup(key)
	return Round{peers: p, self: self}
}

// Lookup 返回 key 当前的成员映射
func (r *Registry) Lookup(key types.ScopeKey) (*Peers, bool) {
	v, ok := r.scopes.Load(key)
	if !ok {
		return nil, false
	}
	return v.(*Peers), true
}

// Contains key 下是否登记了 addr
func (r *Registry) Contains(key types.ScopeKey, addr types.Address) bool {
	p, ok := r.Lookup(key)
	if !ok {
		return false
	}
	_, ok = p.Get(addr)
	return ok
}

// Keys 返回所有作用域键
func (r *Registry) Keys() []types.ScopeKey {
	var keys []types.ScopeKey
	r.scopes.Range(func(k, _ any) bool {
		keys = append(keys, k.(types.ScopeKey))
		return true
	})
	slices.SortFunc(keys, func(a, b types.ScopeKey) int {
		return compareString(a.String(), b.String())
	})
	return keys
}

// Len 作用域数
func (r *Registry) Len() int {
	n := 0
	r.scopes.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Size 所有作用域下的成员总数
func (r *Registry) Size() int {
	n := 0
	r.scopes.Range(func(_, v any) bool {
		n += v.(*Peers).Len()
		return true
	})
	return n
}

// Clear 清空注册表（模拟结束时调用）
func (r *Registry) Clear() {
	n := 0
	r.scopes.Range(func(k, _ any) bool {
		r.scopes.Delete(k)
		n++
		return true
	})
	if n > 0 {
		logger.Debug("注册表已清空", "scopes", n)
	}
}

func compareAddr(a, b types.Address) int {
	return compareString(a.String(), b.String())
}

func compareString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
