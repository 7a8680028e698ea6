package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dep2p/go-simnet/config"
	"github.com/dep2p/go-simnet/internal/simnet/registry"
)

// Config 指标配置
type Config struct {
	Enabled   bool
	Namespace string
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{Enabled: true, Namespace: "simnet"}
}

// ConfigFromUnified 从统一配置创建指标配置
func ConfigFromUnified(cfg *config.Config) Config {
	if cfg == nil {
		return DefaultConfig()
	}
	return Config{
		Enabled:   cfg.Metrics.Enabled,
		Namespace: cfg.Metrics.Namespace,
	}
}

// Module 指标模块
var Module = fx.Module("simnet_metrics",
	fx.Provide(NewFromParams),
)

// Params 指标依赖参数
type Params struct {
	fx.In

	Registry   *registry.Registry
	Registerer prometheus.Registerer `optional:"true"`
	UnifiedCfg *config.Config        `optional:"true"`
}

// Result 指标导出结果
type Result struct {
	fx.Out

	Collector *Collector
	Gatherer  prometheus.Gatherer
}

// NewFromParams 从 Fx 参数创建采集器
//
// 未提供 Registerer 时使用独立的 prometheus.Registry，不污染全局默认注册表。
// 关闭指标时采集器仍然存在（节点照常 Track），只是不注册。
func NewFromParams(p Params) (Result, error) {
	cfg := ConfigFromUnified(p.UnifiedCfg)
	c := NewCollector(cfg.Namespace, p.Registry)

	own := prometheus.NewRegistry()
	var registerer prometheus.Registerer = own
	var gatherer prometheus.Gatherer = own
	if p.Registerer != nil {
		registerer = p.Registerer
		if g, ok := p.Registerer.(prometheus.Gatherer); ok {
			gatherer = g
		}
	}
	if !cfg.Enabled {
		return Result{Collector: c, Gatherer: own}, nil
	}

	c, err := Register(registerer, c)
	if err != nil {
		return Result{}, err
	}
	return Result{Collector: c, Gatherer: gatherer}, nil
}
