package registry

import "errors"

var (
	// ErrConsistency 注销时检测到分区被并发替换
	//
	// 属于内部一致性错误，调用方不应重试。
	ErrConsistency = errors.New("registry: peer mapping replaced while being retired")

	// ErrNilPeer 注册了 nil 成员
	ErrNilPeer = errors.New("registry: nil peer")
)
