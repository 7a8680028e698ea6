package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// FromJSON 从 JSON 数据创建配置
//
// 未出现的字段保留默认值。
//
// 示例 JSON:
//
//	{
//	  "fault": {"down_drop_rate": 0.1, "seed": 42},
//	  "loopback": {"workers": 2, "shutdown_timeout": "2s"}
//	}
func FromJSON(data []byte) (*Config, error) {
	cfg := NewConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// LoadFile 从 JSON 文件加载配置并验证
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	cfg, err := FromJSON(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// ToJSON 将配置序列化为带缩进的 JSON
func (c *Config) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// ApplyPreset 应用预设配置
//
// 支持的预设：
//   - "reliable": 不丢弃任何消息
//   - "lossy": 双向 10% 丢弃
//   - "chaos": 双向 30% 丢弃，本节点流量也参与丢弃
func ApplyPreset(cfg *Config, presetName string) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	switch presetName {
	case "reliable":
		cfg.Fault.UpDropRate = 0
		cfg.Fault.DownDropRate = 0
		cfg.Fault.ExcludeSelf = true
	case "lossy":
		cfg.Fault.UpDropRate = 0.1
		cfg.Fault.DownDropRate = 0.1
		cfg.Fault.ExcludeSelf = true
	case "chaos":
		cfg.Fault.UpDropRate = 0.3
		cfg.Fault.DownDropRate = 0.3
		cfg.Fault.ExcludeSelf = false
	case "":
		// 空预设，不做任何操作
	default:
		return fmt.Errorf("unknown preset: %s", presetName)
	}
	return nil
}

// CloneConfig 克隆配置
//
// 所有子配置都是值类型，浅拷贝即为深拷贝。
func CloneConfig(cfg *Config) *Config {
	if cfg == nil {
		return nil
	}
	cloned := *cfg
	return &cloned
}
