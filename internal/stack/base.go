package stack

import (
	"github.com/dep2p/go-simnet/pkg/interfaces"
	"github.com/dep2p/go-simnet/pkg/types"
)

// Base 可嵌入的透传层
//
// 嵌入 Base 的协议层只需覆盖关心的方法，其余事件原样交给相邻层。
type Base struct {
	name string
	up   interfaces.Layer
	down interfaces.Layer
}

// NewBase 创建透传层
func NewBase(name string) Base {
	return Base{name: name}
}

// Name 返回层名称
func (b *Base) Name() string {
	return b.name
}

// Down 交给下层
func (b *Base) Down(evt *types.Event) any {
	if b.down == nil {
		return nil
	}
	return b.down.Down(evt)
}

// Up 交给上层
func (b *Base) Up(evt *types.Event) any {
	if b.up == nil {
		return nil
	}
	return b.up.Up(evt)
}

// UpBatch 交给上层
func (b *Base) UpBatch(batch *types.MessageBatch) {
	if b.up != nil {
		b.up.UpBatch(batch)
	}
}

// SetUpLayer 设置上层
func (b *Base) SetUpLayer(l interfaces.Layer) { b.up = l }

// SetDownLayer 设置下层
func (b *Base) SetDownLayer(l interfaces.Layer) { b.down = l }

// UpLayer 返回上层
func (b *Base) UpLayer() interfaces.Layer { return b.up }

// DownLayer 返回下层
func (b *Base) DownLayer() interfaces.Layer { return b.down }

// Start 默认无操作
func (b *Base) Start() error { return nil }

// Stop 默认无操作
func (b *Base) Stop() error { return nil }
