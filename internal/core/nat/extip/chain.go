package extip

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"

	"github.com/tensorlink/go-tensorlink/internal/util/addrutil"
	"github.com/tensorlink/go-tensorlink/pkg/lib/log"
)

var logger = log.Logger("nat/extip")

// DefaultProbeTimeout 单个机制的默认超时
//
// 每个机制携带自己的短超时，避免一个不可达的服务拖垮整条回退链。
const DefaultProbeTimeout = 5 * time.Second

// Chain 有序的外部地址探测链
type Chain struct {
	probes  []Probe
	timeout time.Duration
	clock   clock.Clock
}

// Option Chain 配置选项
type Option func(*Chain)

// WithProbes 替换探测机制表（测试注入用）
func WithProbes(probes ...Probe) Option {
	return func(c *Chain) { c.probes = probes }
}

// WithProbeTimeout 设置单个机制的超时
func WithProbeTimeout(d time.Duration) Option {
	return func(c *Chain) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithClock 替换时钟（测试注入用）
func WithClock(clk clock.Clock) Option {
	return func(c *Chain) { c.clock = clk }
}

// NewChain 创建探测链
func NewChain(opts ...Option) *Chain {
	c := &Chain{
		probes:  DefaultProbes(),
		timeout: DefaultProbeTimeout,
		clock:   clock.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Discover 依序执行探测机制，返回首个通过校验的公网 IP
//
// 每个机制在独立的短超时内执行；失败（网络错误、超时、结果不是
// 合法 IP）只记录日志并继续下一个机制。全部失败时返回
// ErrExternalAddressNotFound，聚合的失败明细只出现在错误文本中，
// 调用方只能匹配哨兵错误本身。
func (c *Chain) Discover(ctx context.Context) (string, error) {
	var errs error
	for _, probe := range c.probes {
		ip, err := c.runProbe(ctx, probe)
		if err != nil {
			logger.Debug("探测机制失败", "probe", probe.Name(), "err", err)
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", probe.Name(), err))
			continue
		}
		canonical, err := addrutil.Canonical(ip)
		if err != nil {
			logger.Debug("探测结果不是合法 IP", "probe", probe.Name(), "result", ip)
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", probe.Name(), err))
			continue
		}
		logger.Info("外部地址发现成功", "probe", probe.Name(), "ip", canonical)
		return canonical, nil
	}
	return "", fmt.Errorf("%w: %v", ErrExternalAddressNotFound, errs)
}

// runProbe 在独立超时内执行单个机制
func (c *Chain) runProbe(ctx context.Context, probe Probe) (string, error) {
	probeCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		ip  string
		err error
	}
	resultCh := make(chan result, 1)

	go func() {
		ip, err := probe.Lookup(probeCtx)
		resultCh <- result{ip: ip, err: err}
	}()

	timer := c.clock.Timer(c.timeout)
	defer timer.Stop()

	select {
	case res := <-resultCh:
		return res.ip, res.err
	case <-timer.C:
		return "", fmt.Errorf("timeout after %v", c.timeout)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
