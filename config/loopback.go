package config

import (
	"errors"
	"time"
)

// LoopbackConfig 环回投递配置
//
// discard-all 模式下发往自身/组播的消息被复制后异步投递回本节点，
// 这些任务由一个有界队列执行。
type LoopbackConfig struct {
	// Workers 执行环回投递的 worker 数量
	Workers int `json:"workers"`

	// QueueSize 队列容量
	QueueSize int `json:"queue_size"`

	// ShutdownTimeout 关闭时等待队列排空的超时
	ShutdownTimeout Duration `json:"shutdown_timeout"`
}

// DefaultLoopbackConfig 返回默认环回配置
func DefaultLoopbackConfig() LoopbackConfig {
	return LoopbackConfig{
		Workers:         4,
		QueueSize:       1024,
		ShutdownTimeout: Duration(5 * time.Second),
	}
}

// Validate 验证环回配置
func (c LoopbackConfig) Validate() error {
	if c.Workers <= 0 {
		return errors.New("loopback workers must be positive")
	}
	if c.QueueSize <= 0 {
		return errors.New("loopback queue size must be positive")
	}
	if c.ShutdownTimeout < 0 {
		return errors.New("loopback shutdown timeout must be non-negative")
	}
	return nil
}
