package types

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// ============================================================================
//                              PingData - 发现响应
// ============================================================================

// PingData 一个成员对发现请求的响应
//
// 仅含 Sender 的响应是占位响应：成员存在但当前不可达（其 discard-all 已开启），
// 与"成员不存在"（没有响应）相区分。
type PingData struct {
	// Sender 响应方逻辑地址
	Sender Address

	// Server 响应方是否为服务端成员
	Server bool

	// LogicalName 响应方逻辑名
	LogicalName string

	// PhysicalAddr 响应方物理地址
	PhysicalAddr PhysicalAddress

	// Coord 响应方是否为协调者
	Coord bool
}

// NewPlaceholder 创建占位响应
func NewPlaceholder(sender Address) *PingData {
	return &PingData{Sender: sender}
}

// IsPlaceholder 是否为占位响应
func (p *PingData) IsPlaceholder() bool {
	return p.LogicalName == "" && p.PhysicalAddr.IsZero() && !p.Server && !p.Coord
}

// String 返回响应描述
func (p *PingData) String() string {
	if p.IsPlaceholder() {
		return fmt.Sprintf("%s (unreachable)", p.Sender.ShortString())
	}
	return fmt.Sprintf("%s, name=%s, addr=%s, server=%t, coord=%t",
		p.Sender.ShortString(), p.LogicalName, p.PhysicalAddr, p.Server, p.Coord)
}

// ============================================================================
//                              Responses - 一轮发现的结果
// ============================================================================

// Responses 一轮成员发现收集到的响应
//
// 并发安全。Done 标记本轮发现结束，WaitDone 可等待该信号。
type Responses struct {
	mu   sync.Mutex
	list []*PingData
	done chan struct{}
	once sync.Once
}

// NewResponses 创建空的结果集
func NewResponses() *Responses {
	return &Responses{done: make(chan struct{})}
}

// Add 添加响应，同一 Sender 的后到响应覆盖先到响应
func (r *Responses) Add(p *PingData) {
	if p == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.list {
		if existing.Sender == p.Sender {
			r.list[i] = p
			return
		}
	}
	r.list = append(r.list, p)
}

// List 返回响应快照
func (r *Responses) List() []*PingData {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.list)
}

// Len 响应数
func (r *Responses) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.list)
}

// IsEmpty 是否没有任何响应
func (r *Responses) IsEmpty() bool {
	return r.Len() == 0
}

// Find 查找指定成员的响应
func (r *Responses) Find(sender Address) (*PingData, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.list {
		if p.Sender == sender {
			return p, true
		}
	}
	return nil, false
}

// Done 标记本轮发现结束（可重复调用）
func (r *Responses) Done() {
	r.once.Do(func() { close(r.done) })
}

// IsDone 本轮发现是否已结束
func (r *Responses) IsDone() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// WaitDone 等待本轮发现结束或 ctx 取消
func (r *Responses) WaitDone(ctx context.Context) error {
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
