package axon

import "errors"

// 错误定义（仅服务端生命周期；请求处理路径永远返回状态码而非错误）
var (
	// ErrServerAlreadyStarted 服务端已启动
	ErrServerAlreadyStarted = errors.New("axon: server already started")

	// ErrServerNotStarted 服务端未启动
	ErrServerNotStarted = errors.New("axon: server not started")

	// ErrFrameTooLarge 帧长度超出上限
	ErrFrameTooLarge = errors.New("axon: frame too large")

	// ErrUnknownMethod 信封中的方法名不是 forward/backward
	ErrUnknownMethod = errors.New("axon: unknown method")
)
