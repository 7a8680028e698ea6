package loopback

import "errors"

var (
	// ErrDuplicateAddress 同一作用域内地址已被占用
	ErrDuplicateAddress = errors.New("loopback: address already attached")

	// ErrNilHub 未提供 Hub
	ErrNilHub = errors.New("loopback: nil hub")
)
