package config

import "errors"

// ValidateAll 验证整个配置的有效性
//
// 这是 Config.Validate() 的别名，额外处理 nil。
func ValidateAll(c *Config) error {
	if c == nil {
		return errors.New("config is nil")
	}
	return c.Validate()
}

// ValidateAndFix 验证配置并尝试自动修复常见问题
//
// 可修复的问题：
//   - 丢弃概率越界 -> 截断到 [0,1]
//   - worker/队列容量非正 -> 使用默认值
//   - 测试作用域为空 -> 使用默认值
func ValidateAndFix(c *Config) (*Config, error) {
	if c == nil {
		return NewConfig(), nil
	}

	c.Fault.UpDropRate = clampRate(c.Fault.UpDropRate)
	c.Fault.DownDropRate = clampRate(c.Fault.DownDropRate)

	def := DefaultLoopbackConfig()
	if c.Loopback.Workers <= 0 {
		c.Loopback.Workers = def.Workers
	}
	if c.Loopback.QueueSize <= 0 {
		c.Loopback.QueueSize = def.QueueSize
	}
	if c.Loopback.ShutdownTimeout < 0 {
		c.Loopback.ShutdownTimeout = def.ShutdownTimeout
	}
	if c.Discovery.TestScope == "" {
		c.Discovery.TestScope = DefaultDiscoveryConfig().TestScope
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func clampRate(v float64) float64 {
	switch {
	case v != v || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
