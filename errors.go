package simnet

import "errors"

// 公共错误定义
var (
	// ErrClosed 模拟已关闭
	ErrClosed = errors.New("simnet: simulation closed")

	// ErrDuplicateNode 节点名称重复
	ErrDuplicateNode = errors.New("simnet: duplicate node name")

	// ErrUnknownNode 节点不属于本模拟
	ErrUnknownNode = errors.New("simnet: unknown node")
)
