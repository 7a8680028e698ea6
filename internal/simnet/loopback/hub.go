package loopback

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/dep2p/go-simnet/pkg/types"
)

// basePort 分配给第一个 Transport 的模拟端口
const basePort = 7800

// Hub 模拟线路的交换中心
type Hub struct {
	mu     sync.RWMutex
	scopes map[types.ScopeKey]map[types.Address]*Transport

	nextPort atomic.Int64
}

// NewHub 创建空 Hub
func NewHub() *Hub {
	h := &Hub{scopes: make(map[types.ScopeKey]map[types.Address]*Transport)}
	h.nextPort.Store(basePort - 1)
	return h
}

func (h *Hub) allocPort() int {
	return int(h.nextPort.Add(1))
}

func (h *Hub) attach(t *Transport) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.scopes[t.key]
	if !ok {
		members = make(map[types.Address]*Transport)
		h.scopes[t.key] = members
	}
	if existing, dup := members[t.local]; dup && existing != t {
		return fmt.Errorf("%w: %s in %s", ErrDuplicateAddress, t.local, t.key)
	}
	members[t.local] = t
	return nil
}

// detach 按身份移除，最后一个成员离开时移除整个作用域
func (h *Hub) detach(t *Transport) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.scopes[t.key]
	if !ok || members[t.local] != t {
		return
	}
	delete(members, t.local)
	if len(members) == 0 {
		delete(h.scopes, t.key)
	}
}

// Members 返回作用域内按地址排序的 Transport 快照
func (h *Hub) Members(key types.ScopeKey) []*Transport {
	h.mu.RLock()
	out := make([]*Transport, 0, len(h.scopes[key]))
	for _, t := range h.scopes[key] {
		out = append(out, t)
	}
	h.mu.RUnlock()
	slices.SortFunc(out, func(a, b *Transport) int {
		return strings.Compare(a.local.String(), b.local.String())
	})
	return out
}

// Lookup 查找作用域内的 Transport
func (h *Hub) Lookup(key types.ScopeKey, addr types.Address) (*Transport, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	t, ok := h.scopes[key][addr]
	return t, ok
}

// Len 作用域内的 Transport 数
func (h *Hub) Len(key types.ScopeKey) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.scopes[key])
}

// Scopes 活跃作用域数
func (h *Hub) Scopes() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.scopes)
}

// Clear 断开所有 Transport
func (h *Hub) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := len(h.scopes)
	clear(h.scopes)
	if n > 0 {
		logger.Debug("hub 已清空", "scopes", n)
	}
}
