package types

import (
	"slices"
	"strconv"
	"strings"
)

// View 集群成员视图
//
// 成员列表有序，第一个成员为协调者。
type View struct {
	ID      uint64
	Members []Address
}

// NewView 创建视图，复制成员列表
func NewView(id uint64, members ...Address) *View {
	return &View{ID: id, Members: slices.Clone(members)}
}

// Coordinator 返回协调者（第一个成员），空视图返回零值
func (v *View) Coordinator() Address {
	if v == nil || len(v.Members) == 0 {
		return NilAddress
	}
	return v.Members[0]
}

// Contains 视图是否包含指定成员
func (v *View) Contains(a Address) bool {
	return v != nil && slices.Contains(v.Members, a)
}

// Size 成员数
func (v *View) Size() int {
	if v == nil {
		return 0
	}
	return len(v.Members)
}

// String 返回 [id|m1,m2,...]
func (v *View) String() string {
	if v == nil {
		return "[]"
	}
	parts := make([]string, 0, len(v.Members))
	for _, m := range v.Members {
		parts = append(parts, m.ShortString())
	}
	return "[" + strconv.FormatUint(v.ID, 10) + "|" + strings.Join(parts, ",") + "]"
}
