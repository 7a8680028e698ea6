package simnet

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-simnet/config"
	"github.com/dep2p/go-simnet/internal/simnet/loopback"
	"github.com/dep2p/go-simnet/internal/simnet/metrics"
	"github.com/dep2p/go-simnet/internal/simnet/registry"
	"github.com/dep2p/go-simnet/internal/util/taskqueue"
	"github.com/dep2p/go-simnet/pkg/interfaces"
	"github.com/dep2p/go-simnet/pkg/lib/log"
)

var fxLogger = log.Logger("simnet/fx")

// buildFxApp 构建 Fx 应用
//
// 加载顺序（按依赖）：
//  1. 配置
//  2. 环回任务队列
//  3. 发现注册表、环回 Hub
//  4. 指标采集器（依赖注册表）
//  5. 用户扩展
//  6. Simulation 组件注入
func buildFxApp(o *options, sim *Simulation) (*fx.App, error) {
	if err := config.ValidateAll(o.config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	modules := []fx.Option{
		fx.Supply(o.config),

		taskqueue.Module,
		registry.Module,
		loopback.Module,
		metrics.Module,
	}

	if o.registerer != nil {
		r := o.registerer
		modules = append(modules, fx.Provide(func() prometheus.Registerer { return r }))
	}

	if len(o.userFxOptions) > 0 {
		modules = append(modules, o.userFxOptions...)
	}

	modules = append(modules,
		fx.Invoke(injectComponents(sim)),

		// 禁用 Fx 日志输出（避免干扰测试日志）
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		}),
	)

	fxLogger.Debug("构建模拟", "scope", o.config.Discovery.TestScope, "metrics", o.config.Metrics.Enabled)
	return fx.New(modules...), nil
}

// componentParams Simulation 共享组件
type componentParams struct {
	fx.In

	Registry  *registry.Registry
	Hub       *loopback.Hub
	Queue     *taskqueue.Queue
	Executor  interfaces.Executor
	Collector *metrics.Collector
	Gatherer  prometheus.Gatherer
}

// injectComponents 把共享组件注入 Simulation
func injectComponents(sim *Simulation) func(componentParams) {
	return func(p componentParams) {
		sim.registry = p.Registry
		sim.hub = p.Hub
		sim.queue = p.Queue
		sim.executor = p.Executor
		sim.collector = p.Collector
		sim.gatherer = p.Gatherer
	}
}
