// Package upnp 提供 UPnP IGD 端口映射实现
//
// UPnP IGD (Internet Gateway Device) 允许应用程序在 NAT 路由器上
// 创建端口映射并查询外部 IP 地址。本包把"发现网关 → 向上探测
// 空闲外部端口 → 安装 TCP 映射"封装为一次操作；网关发现或底层
// 映射调用的任何失败都统一包装为 *MappingError 并携带原始原因，
// 部分成功（发现成功但映射失败）不算成功。
package upnp

import (
	"errors"
	"fmt"
)

// 错误定义
var (
	// ErrNoGateway 未找到 UPnP 网关
	ErrNoGateway = errors.New("upnp: no UPnP gateway found")

	// ErrNoAvailablePort 外部端口空间耗尽（探测至 65535 仍无空闲端口）
	ErrNoAvailablePort = errors.New("upnp: no available external port for mapping")

	// ErrInvalidPort 端口号不在合法范围内
	ErrInvalidPort = errors.New("upnp: invalid port")
)

// MappingError 端口映射操作失败
//
// 统一包装网关发现与底层映射调用的失败，Cause 保留原始原因。
type MappingError struct {
	Op    string
	Port  int
	Cause error
}

// Error 实现 error 接口
func (e *MappingError) Error() string {
	return fmt.Sprintf("upnp: %s port %d failed: %v", e.Op, e.Port, e.Cause)
}

// Unwrap 返回原始原因
func (e *MappingError) Unwrap() error {
	return e.Cause
}
