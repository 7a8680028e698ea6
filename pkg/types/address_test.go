package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAddress_Zero 测试零值地址
func TestAddress_Zero(t *testing.T) {
	assert.True(t, NilAddress.IsZero())
	assert.Equal(t, "<nil>", NilAddress.String())
	assert.Equal(t, "<nil>", NilAddress.ShortString())

	a := NewAddress()
	assert.False(t, a.IsZero())
	assert.NotEqual(t, a, NewAddress())
	assert.LessOrEqual(t, len(a.ShortString()), 8)
}

// TestAddress_Parse 测试地址解析
func TestAddress_Parse(t *testing.T) {
	a := NewAddress()
	parsed, err := ParseAddress(a.String())
	require.NoError(t, err)
	assert.Equal(t, a, parsed)

	_, err = ParseAddress("not-a-uuid")
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

// TestPhysicalAddress_Parse 测试物理地址格式
func TestPhysicalAddress_Parse(t *testing.T) {
	p := NewPhysicalAddress("demo-cluster", 7801)
	assert.Equal(t, "sim://demo-cluster/7801", p.String())

	parsed, err := ParsePhysicalAddress(p.String())
	require.NoError(t, err)
	assert.Equal(t, p, parsed)

	for _, bad := range []string{"", "tcp://a/1", "sim://nocluster", "sim://a/x", "sim:///5"} {
		_, err := ParsePhysicalAddress(bad)
		assert.ErrorIs(t, err, ErrInvalidPhysicalAddress, bad)
	}

	assert.True(t, PhysicalAddress{}.IsZero())
	assert.Empty(t, PhysicalAddress{}.String())
}

// TestScopeKey 测试作用域键的比较与校验
func TestScopeKey(t *testing.T) {
	k1 := NewScopeKey("TestA", "c1")
	k2 := NewScopeKey("TestA", "c1")
	k3 := NewScopeKey("TestB", "c1")

	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)

	m := map[ScopeKey]int{k1: 1}
	assert.Equal(t, 1, m[k2])
	_, ok := m[k3]
	assert.False(t, ok)

	assert.NoError(t, k1.Validate())
	assert.ErrorIs(t, NewScopeKey("x", "").Validate(), ErrEmptyClusterName)
	assert.Equal(t, "TestA/c1", k1.String())
}
