package extip

import "context"

// Probe 单个外部地址探测机制
//
// Lookup 返回探测到的 IP 字符串（未经验证，由 Chain 负责校验）。
// 实现必须尊重 ctx 取消：取消即视为本机制失败。
type Probe interface {
	// Name 机制名称，用于日志与错误聚合
	Name() string

	// Lookup 执行一次探测
	Lookup(ctx context.Context) (string, error)
}

// ProbeFunc 函数式 Probe 适配器
type ProbeFunc struct {
	ProbeName string
	Fn        func(ctx context.Context) (string, error)
}

var _ Probe = (*ProbeFunc)(nil)

// Name 实现 Probe 接口
func (p *ProbeFunc) Name() string { return p.ProbeName }

// Lookup 实现 Probe 接口
func (p *ProbeFunc) Lookup(ctx context.Context) (string, error) { return p.Fn(ctx) }
