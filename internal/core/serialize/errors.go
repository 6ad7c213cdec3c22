// Package serialize 实现张量线格式编解码器
package serialize

import "errors"

// 错误定义
var (
	// ErrNoSerializerForKind 请求的编码器类型不存在
	ErrNoSerializerForKind = errors.New("serialize: no serializer for kind")

	// ErrUnsupportedFramework 框架标签没有对应的编解码路径
	ErrUnsupportedFramework = errors.New("serialize: unsupported framework type")

	// ErrUnsupportedDtype 标量类型不在映射表中
	ErrUnsupportedDtype = errors.New("serialize: unsupported dtype")

	// ErrCodecFailure 底层二进制编解码失败（缓冲区损坏、截断、形状不符）
	ErrCodecFailure = errors.New("serialize: codec failure")
)
