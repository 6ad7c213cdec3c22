package tensorlink

import "errors"

// 错误定义
var (
	// ErrNodeAlreadyStarted 节点已启动
	ErrNodeAlreadyStarted = errors.New("tensorlink: node already started")

	// ErrNodeNotStarted 节点未启动
	ErrNodeNotStarted = errors.New("tensorlink: node not started")

	// ErrNoExternalAddress 尚未发现外部地址
	ErrNoExternalAddress = errors.New("tensorlink: external address not discovered")
)
