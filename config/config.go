// Package config 提供统一的配置管理
//
// 本包采用混合配置模式：
//   - 主 Config 结构体嵌入所有子配置
//   - 每个子配置在独立文件中定义
//   - 支持从 JSON 加载和保存配置
//   - 支持预设配置（reliable/lossy/chaos）
//
// 使用示例：
//
//	cfg := config.NewConfig()
//	cfg.Fault.DownDropRate = 0.1
//
//	// 从 JSON 加载
//	cfg, err := config.FromJSON(data)
package config

// Config 是 simnet 的完整配置结构
//
// 配置按照功能模块组织：
//   - Fault: 故障注入默认值
//   - Discovery: 成员发现
//   - Loopback: 环回投递任务队列
//   - Metrics: 指标导出
type Config struct {
	// Fault 故障注入配置
	Fault FaultConfig `json:"fault"`

	// Discovery 成员发现配置
	Discovery DiscoveryConfig `json:"discovery"`

	// Loopback 环回投递配置
	Loopback LoopbackConfig `json:"loopback"`

	// Metrics 指标配置
	Metrics MetricsConfig `json:"metrics"`
}

// NewConfig 创建默认配置
func NewConfig() *Config {
	return &Config{
		Fault:     DefaultFaultConfig(),
		Discovery: DefaultDiscoveryConfig(),
		Loopback:  DefaultLoopbackConfig(),
		Metrics:   DefaultMetricsConfig(),
	}
}

// Validate 验证配置的有效性
func (c *Config) Validate() error {
	if err := c.Fault.Validate(); err != nil {
		return err
	}
	if err := c.Discovery.Validate(); err != nil {
		return err
	}
	if err := c.Loopback.Validate(); err != nil {
		return err
	}
	if err := c.Metrics.Validate(); err != nil {
		return err
	}
	return nil
}
