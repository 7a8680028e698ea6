package config

import (
	"errors"
	"regexp"
)

// MetricsConfig 指标配置
type MetricsConfig struct {
	// Enabled 是否导出 Prometheus 指标
	Enabled bool `json:"enabled"`

	// Namespace 指标名前缀
	Namespace string `json:"namespace"`
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:   true,
		Namespace: "simnet",
	}
}

var metricNamespace = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Validate 验证指标配置
func (c MetricsConfig) Validate() error {
	if c.Enabled && !metricNamespace.MatchString(c.Namespace) {
		return errors.New("metrics namespace must match [a-zA-Z_][a-zA-Z0-9_]*")
	}
	return nil
}
