package taskqueue

import (
	"context"
	"time"

	"go.uber.org/fx"

	"github.com/dep2p/go-simnet/config"
	"github.com/dep2p/go-simnet/pkg/interfaces"
)

// Params 依赖参数
type Params struct {
	fx.In

	LC         fx.Lifecycle
	UnifiedCfg *config.Config `optional:"true"`
}

// Result 导出结果
type Result struct {
	fx.Out

	Queue    *Queue
	Executor interfaces.Executor
}

// Module 任务队列 Fx 模块
var Module = fx.Module("taskqueue",
	fx.Provide(NewFromParams),
)

// ConfigFromUnified 从统一配置创建队列配置
func ConfigFromUnified(cfg *config.Config) Config {
	if cfg == nil {
		return DefaultConfig()
	}
	return Config{
		Workers:   cfg.Loopback.Workers,
		QueueSize: cfg.Loopback.QueueSize,
	}
}

// NewFromParams 从 Fx 参数创建队列，并在应用停止时关闭
func NewFromParams(p Params) Result {
	q := New(ConfigFromUnified(p.UnifiedCfg))
	timeout := 5 * time.Second
	if p.UnifiedCfg != nil && p.UnifiedCfg.Loopback.ShutdownTimeout > 0 {
		timeout = p.UnifiedCfg.Loopback.ShutdownTimeout.Duration()
	}
	p.LC.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			return q.Close(ctx)
		},
	})
	return Result{Queue: q, Executor: q}
}
