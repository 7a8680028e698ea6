package types

// ============================================================================
//                              ScopeKey - 模拟网络作用域
// ============================================================================

// ScopeKey 标识一个隔离的模拟网络（一个测试中的一个集群）
//
// 按两个字段比较，可直接作为 map 键使用。
type ScopeKey struct {
	// TestScope 测试作用域（通常是测试名）
	TestScope string

	// ClusterName 集群名
	ClusterName string
}

// NewScopeKey 创建作用域键
func NewScopeKey(testScope, clusterName string) ScopeKey {
	return ScopeKey{TestScope: testScope, ClusterName: clusterName}
}

// Validate 校验作用域键
func (k ScopeKey) Validate() error {
	if k.ClusterName == "" {
		return ErrEmptyClusterName
	}
	return nil
}

// String 返回 testScope/clusterName
func (k ScopeKey) String() string {
	return k.TestScope + "/" + k.ClusterName
}
