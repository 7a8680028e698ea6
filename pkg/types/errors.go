// Package types 定义 simnet 的基础类型
//
// 本文件定义所有公共错误类型。
package types

import "errors"

var (
	// ErrInvalidAddress 无效的地址字符串
	ErrInvalidAddress = errors.New("invalid address")

	// ErrEmptyClusterName 空集群名
	ErrEmptyClusterName = errors.New("empty cluster name")

	// ErrInvalidPhysicalAddress 无效的物理地址
	ErrInvalidPhysicalAddress = errors.New("invalid physical address")
)
