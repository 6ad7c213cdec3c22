package extip

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os/exec"
	"strings"
	"time"

	"github.com/jackpal/gateway"
	natpmp "github.com/jackpal/go-nat-pmp"
	"github.com/miekg/dns"
)

// maxResponseBytes 回显响应体读取上限（一个 IP 字符串足矣）
const maxResponseBytes = 64

// httpClient 各 HTTP 探测共用的客户端；单次请求的截止时间
// 由 Chain 注入的 ctx 控制
var httpClient = &http.Client{Timeout: 15 * time.Second}

// ============================================================================
//                              Shell 探测
// ============================================================================

// ShellProbe 通过外部命令查询公网 IP（curl 回显服务）
type ShellProbe struct {
	Host string
}

var _ Probe = (*ShellProbe)(nil)

// Name 实现 Probe 接口
func (p *ShellProbe) Name() string { return "shell:" + p.Host }

// Lookup 实现 Probe 接口
func (p *ShellProbe) Lookup(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, "curl", "-s", p.Host).Output()
	if err != nil {
		return "", fmt.Errorf("curl %s: %w", p.Host, err)
	}
	ip := strings.TrimSpace(string(out))
	if ip == "" {
		return "", ErrEmptyResponse
	}
	return ip, nil
}

// ============================================================================
//                              HTTP 回显探测
// ============================================================================

// HTTPProbe 通过 HTTP 回显服务查询公网 IP
//
// Header 为空时取响应体；非空时取该响应头的值（用于从无关站点
// 的回显头中获取，如 wikipedia 的 X-Client-IP）。
type HTTPProbe struct {
	URL    string
	Header string
}

var _ Probe = (*HTTPProbe)(nil)

// Name 实现 Probe 接口
func (p *HTTPProbe) Name() string {
	if p.Header != "" {
		return "http-header:" + p.URL
	}
	return "http:" + p.URL
}

// Lookup 实现 Probe 接口
func (p *HTTPProbe) Lookup(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return "", err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if p.Header != "" {
		ip := strings.TrimSpace(resp.Header.Get(p.Header))
		if ip == "" {
			return "", fmt.Errorf("%w: header %s missing", ErrEmptyResponse, p.Header)
		}
		return ip, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", err
	}
	ip := strings.TrimSpace(string(body))
	if ip == "" {
		return "", ErrEmptyResponse
	}
	return ip, nil
}

// ============================================================================
//                              DNS 探测
// ============================================================================

// DNSProbe 通过特殊 DNS 记录查询公网 IP（OpenDNS myip 机制）
type DNSProbe struct {
	Question string
	Resolver string
}

var _ Probe = (*DNSProbe)(nil)

// Name 实现 Probe 接口
func (p *DNSProbe) Name() string { return "dns:" + p.Resolver }

// Lookup 实现 Probe 接口
func (p *DNSProbe) Lookup(ctx context.Context) (string, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(p.Question), dns.TypeA)

	client := new(dns.Client)
	resp, _, err := client.ExchangeContext(ctx, m, p.Resolver)
	if err != nil {
		return "", err
	}
	for _, ans := range resp.Answer {
		if a, ok := ans.(*dns.A); ok {
			return a.A.String(), nil
		}
	}
	return "", fmt.Errorf("%w: no A record", ErrEmptyResponse)
}

// ============================================================================
//                              NAT-PMP 探测
// ============================================================================

// NATPMPProbe 向默认网关发起 NAT-PMP 外部地址查询
type NATPMPProbe struct {
	Timeout time.Duration
}

var _ Probe = (*NATPMPProbe)(nil)

// Name 实现 Probe 接口
func (p *NATPMPProbe) Name() string { return "natpmp:gateway" }

// Lookup 实现 Probe 接口
func (p *NATPMPProbe) Lookup(_ context.Context) (string, error) {
	gatewayIP, err := gateway.DiscoverGateway()
	if err != nil {
		return "", fmt.Errorf("discover gateway: %w", err)
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	client := natpmp.NewClientWithTimeout(gatewayIP, timeout)
	result, err := client.GetExternalAddress()
	if err != nil {
		return "", fmt.Errorf("get external address: %w", err)
	}
	return net.IP(result.ExternalIPAddress[:]).String(), nil
}

// ============================================================================
//                              默认机制表
// ============================================================================

// DefaultProbes 返回默认的探测机制表（顺序即优先级）
func DefaultProbes() []Probe {
	return []Probe{
		&ShellProbe{Host: "ifconfig.me"},
		&HTTPProbe{URL: "https://api.ipify.org"},
		&HTTPProbe{URL: "https://checkip.amazonaws.com"},
		&DNSProbe{Question: "myip.opendns.com", Resolver: "resolver1.opendns.com:53"},
		&HTTPProbe{URL: "https://ident.me"},
		&HTTPProbe{URL: "https://www.wikipedia.org", Header: "X-Client-IP"},
		&NATPMPProbe{},
	}
}
