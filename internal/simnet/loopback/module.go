package loopback

import (
	"context"

	"go.uber.org/fx"
)

// Module 模拟线路模块
var Module = fx.Module("simnet_loopback",
	fx.Provide(NewFromParams),
)

// Params Hub 依赖参数
type Params struct {
	fx.In

	LC fx.Lifecycle
}

// NewFromParams 从 Fx 参数创建 Hub，应用停止时断开所有 Transport
func NewFromParams(p Params) *Hub {
	h := NewHub()
	p.LC.Append(fx.Hook{
		OnStop: func(context.Context) error {
			h.Clear()
			return nil
		},
	})
	return h
}
