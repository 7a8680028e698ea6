package registry

import (
	"context"

	"go.uber.org/fx"
)

// Module 注册表模块
//
// 整个模拟共享一个注册表，应用停止时清空。
var Module = fx.Module("simnet_registry",
	fx.Provide(NewFromParams),
)

// Params 注册表依赖参数
type Params struct {
	fx.In

	LC fx.Lifecycle
}

// NewFromParams 从 Fx 参数创建注册表
func NewFromParams(p Params) *Registry {
	r := New()
	p.LC.Append(fx.Hook{
		OnStop: func(context.Context) error {
			r.Clear()
			return nil
		},
	})
	return r
}
