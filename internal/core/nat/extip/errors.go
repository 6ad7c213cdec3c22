// Package extip 实现外部地址发现
//
// 通过一组有序的外部探测机制（shell 查询、HTTP 回显服务、DNS
// 解析器、NAT-PMP 网关）获取本节点的公网 IP。机制顺序即优先级：
// 逐个尝试、首个成功即返回（first-success-wins，而非谁快用谁），
// 单个机制的失败在本地吸收，绝不中断后续尝试。
package extip

import "errors"

// 错误定义
var (
	// ErrExternalAddressNotFound 所有探测机制均失败
	ErrExternalAddressNotFound = errors.New("extip: external address not found")

	// ErrEmptyResponse 探测机制返回空结果
	ErrEmptyResponse = errors.New("extip: empty response")
)
