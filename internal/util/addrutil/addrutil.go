// Package addrutil 提供 IP 地址编解码工具
//
// 本包提供 IP 字符串与定宽整数表示之间的精确互转（IPv4 与 IPv6
// 全域，整数域覆盖 128 位）、IP 版本判定，以及用于展示/日志的
// 端点格式化。所有解析函数对畸形输入一律报错，绝不返回猜测值。
package addrutil

import (
	"errors"
	"fmt"
	"math/big"
	"net/netip"
)

// ============================================================================
//                              错误定义
// ============================================================================

var (
	// ErrInvalidAddress 无效的 IP 地址或整数表示
	ErrInvalidAddress = errors.New("addrutil: invalid address format")
)

// maxIPv6Int 128 位整数域上界（2^128 - 1）
var maxIPv6Int = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// maxIPv4Int 32 位整数域上界（2^32 - 1）
var maxIPv4Int = new(big.Int).SetUint64(1<<32 - 1)

// ============================================================================
//                              IP ⇄ 整数
// ============================================================================

// IPToInt 将 IP 字符串映射为唯一整数
//
// IPv4 映射到 [0, 2^32)，IPv6 映射到 [0, 2^128)。
// 与 IntToIP 互为精确逆运算。
func IPToInt(s string) (*big.Int, error) {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	if addr.Is4() || addr.Is4In6() {
		b := addr.As4()
		return new(big.Int).SetBytes(b[:]), nil
	}
	b := addr.As16()
	return new(big.Int).SetBytes(b[:]), nil
}

// IntToIP 将整数映射回 IP 字符串（规范形式）
//
// [0, 2^32) 还原为 IPv4 点分十进制；[2^32, 2^128) 还原为 IPv6
// 规范压缩形式（RFC 5952）。负数或超出 128 位域报错。
//
// IPv4 与低值 IPv6 共享 [0, 2^32) 整数域：IPToInt("::1") 与
// IPToInt("0.0.0.1") 都是 1，IntToIP(1) 统一折叠为 "0.0.0.1"。
// 因此往返恒等只对 IPv4 与高值 IPv6 成立。
func IntToIP(v *big.Int) (string, error) {
	if v == nil || v.Sign() < 0 || v.Cmp(maxIPv6Int) > 0 {
		return "", fmt.Errorf("%w: integer out of range", ErrInvalidAddress)
	}
	if v.Cmp(maxIPv4Int) <= 0 {
		var b [4]byte
		v.FillBytes(b[:])
		return netip.AddrFrom4(b).String(), nil
	}
	var b [16]byte
	v.FillBytes(b[:])
	return netip.AddrFrom16(b).String(), nil
}

// IPVersion 返回 IP 字符串的版本（4 或 6）
func IPVersion(s string) (int, error) {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	if addr.Is4() || addr.Is4In6() {
		return 4, nil
	}
	return 6, nil
}

// Canonical 返回 IP 字符串的规范形式
//
// 与 IntToIP(IPToInt(s)) 等价，供测试与展示使用。
func Canonical(s string) (string, error) {
	v, err := IPToInt(s)
	if err != nil {
		return "", err
	}
	return IntToIP(v)
}

// ============================================================================
//                              端点格式化
// ============================================================================

// FormatEndpoint 渲染展示用端点字符串
//
// 输出形如 "/ipv4/1.2.3.4:8080" 或 "/ipv6/::1:8080"。
// 只用于展示与日志，本核心不解析该格式。
func FormatEndpoint(version int, ip string, port int) string {
	return fmt.Sprintf("/ipv%d/%s:%d", version, ip, port)
}
