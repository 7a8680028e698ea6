package discovery

import "errors"

// ErrNilRegistry 未提供注册表
var ErrNilRegistry = errors.New("discovery: nil registry")
