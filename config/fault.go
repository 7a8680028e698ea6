package config

import (
	"errors"
	"fmt"
)

// FaultConfig 故障注入默认配置
//
// 每个新建节点的 Fault Injector 以这些值初始化，测试可随后单独调整。
type FaultConfig struct {
	// UpDropRate 向上方向的丢弃概率 [0,1]
	UpDropRate float64 `json:"up_drop_rate"`

	// DownDropRate 向下方向的丢弃概率 [0,1]
	DownDropRate float64 `json:"down_drop_rate"`

	// ExcludeSelf 发往/来自本节点的消息不参与概率丢弃
	ExcludeSelf bool `json:"exclude_self"`

	// Seed 随机源种子，0 表示每个节点使用随机种子
	Seed uint64 `json:"seed"`
}

// DefaultFaultConfig 返回默认故障注入配置（不丢弃任何消息）
func DefaultFaultConfig() FaultConfig {
	return FaultConfig{
		UpDropRate:   0,
		DownDropRate: 0,
		ExcludeSelf:  true,
		Seed:         0,
	}
}

// Validate 验证故障注入配置
func (c FaultConfig) Validate() error {
	if err := validateRate("up_drop_rate", c.UpDropRate); err != nil {
		return err
	}
	return validateRate("down_drop_rate", c.DownDropRate)
}

func validateRate(name string, v float64) error {
	if v < 0 || v > 1 || v != v {
		return fmt.Errorf("%s must be within [0,1], got %v", name, v)
	}
	return nil
}

// errEmptyTestScope 测试作用域为空
var errEmptyTestScope = errors.New("discovery test scope must not be empty")
