package config

// DiscoveryConfig 成员发现配置
type DiscoveryConfig struct {
	// TestScope 默认测试作用域
	//
	// 与集群名共同组成注册表的作用域键，不同作用域的节点互不可见。
	TestScope string `json:"test_scope"`

	// Server 新建节点默认是否为服务端成员
	Server bool `json:"server"`
}

// DefaultDiscoveryConfig 返回默认发现配置
func DefaultDiscoveryConfig() DiscoveryConfig {
	return DiscoveryConfig{
		TestScope: "default",
		Server:    true,
	}
}

// Validate 验证发现配置
func (c DiscoveryConfig) Validate() error {
	if c.TestScope == "" {
		return errEmptyTestScope
	}
	return nil
}
