package upnp

import (
	"fmt"
	"time"

	"github.com/huin/goupnp/dcps/internetgateway1"
	"github.com/huin/goupnp/dcps/internetgateway2"
)

// IGDClient UPnP IGD 客户端接口
//
// goupnp 的 WANIPConnection1/WANPPPConnection1（IGDv1 与 IGDv2）
// 都实现了这些方法。接口化便于测试注入假网关。
type IGDClient interface {
	AddPortMapping(
		NewRemoteHost string,
		NewExternalPort uint16,
		NewProtocol string,
		NewInternalPort uint16,
		NewInternalClient string,
		NewEnabled bool,
		NewPortMappingDescription string,
		NewLeaseDuration uint32,
	) error

	DeletePortMapping(
		NewRemoteHost string,
		NewExternalPort uint16,
		NewProtocol string,
	) error

	// GetSpecificPortMappingEntry 查询指定外部端口上的既有映射；
	// 无映射时返回错误（SOAP NoSuchEntryInArray）
	GetSpecificPortMappingEntry(
		NewRemoteHost string,
		NewExternalPort uint16,
		NewProtocol string,
	) (
		NewInternalPort uint16,
		NewInternalClient string,
		NewEnabled bool,
		NewPortMappingDescription string,
		NewLeaseDuration uint32,
		err error,
	)

	// GetExternalIPAddress 获取路由器的外部 IP 地址
	GetExternalIPAddress() (string, error)
}

// DefaultDiscoverTimeout 默认网关发现超时
//
// goupnp 的默认发现可能需要 8 秒以上，通过超时快速失败。
const DefaultDiscoverTimeout = 3 * time.Second

// discoverIGDClient 发现 UPnP 网关设备
//
// 依次尝试 IGDv2 (WANIPConnection1 → WANPPPConnection1)，
// 再回退到 IGDv1 的两种连接类型。
func discoverIGDClient() (IGDClient, error) {
	if clients, _, err := internetgateway2.NewWANIPConnection1Clients(); err == nil && len(clients) > 0 {
		return clients[0], nil
	}
	if clients, _, err := internetgateway2.NewWANPPPConnection1Clients(); err == nil && len(clients) > 0 {
		return clients[0], nil
	}
	if clients, _, err := internetgateway1.NewWANIPConnection1Clients(); err == nil && len(clients) > 0 {
		return clients[0], nil
	}
	if clients, _, err := internetgateway1.NewWANPPPConnection1Clients(); err == nil && len(clients) > 0 {
		return clients[0], nil
	}
	return nil, ErrNoGateway
}

// discoverWithTimeout 带超时的网关发现（goroutine + select）
func discoverWithTimeout(timeout time.Duration) (IGDClient, error) {
	if timeout <= 0 {
		timeout = DefaultDiscoverTimeout
	}

	type result struct {
		client IGDClient
		err    error
	}
	resultCh := make(chan result, 1)

	go func() {
		client, err := discoverIGDClient()
		resultCh <- result{client: client, err: err}
	}()

	select {
	case res := <-resultCh:
		return res.client, res.err
	case <-time.After(timeout):
		return nil, fmt.Errorf("%w: discovery timeout after %v", ErrNoGateway, timeout)
	}
}
