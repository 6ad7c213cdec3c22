package upnp

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/tensorlink/go-tensorlink/pkg/lib/log"
)

var logger = log.Logger("nat/upnp")

// maxExternalPort 外部端口探测上界
const maxExternalPort = 65535

// Mapping 端口映射记录
type Mapping struct {
	Protocol     string
	InternalPort int
	ExternalPort int
	CreatedAt    time.Time
}

// Mapper UPnP 端口映射器
//
// 在构造时完成网关发现；CreateMapping 从本地端口号开始向上探测
// 空闲外部端口并安装 TCP 映射。
type Mapper struct {
	client IGDClient

	mu       sync.RWMutex
	mappings map[int]*Mapping
}

// NewMapper 创建映射器（使用默认发现超时）
func NewMapper() (*Mapper, error) {
	return NewMapperWithTimeout(DefaultDiscoverTimeout)
}

// NewMapperWithTimeout 创建带发现超时的映射器
func NewMapperWithTimeout(timeout time.Duration) (*Mapper, error) {
	client, err := discoverWithTimeout(timeout)
	if err != nil {
		return nil, err
	}
	return NewMapperWithClient(client), nil
}

// NewMapperWithClient 用现成的 IGD 客户端创建映射器（测试注入用）
func NewMapperWithClient(client IGDClient) *Mapper {
	return &Mapper{
		client:   client,
		mappings: make(map[int]*Mapping),
	}
}

// CreateMapping 创建 TCP 端口映射，返回实际占用的外部端口
//
// 从 localPort 开始向上逐一探测：外部端口已有映射则尝试下一个，
// 直到找到空闲端口或探测至 65535 耗尽（返回 ErrNoAvailablePort）。
// 底层映射调用失败统一包装为 *MappingError。
func (m *Mapper) CreateMapping(ctx context.Context, localPort int) (int, error) {
	if localPort < 1 || localPort > maxExternalPort {
		return 0, &MappingError{Op: "create", Port: localPort, Cause: ErrInvalidPort}
	}

	localIP, err := getLocalIP()
	if err != nil {
		return 0, &MappingError{Op: "create", Port: localPort, Cause: err}
	}

	// 向上探测空闲外部端口：查询成功说明该端口已被占用
	externalPort := localPort
	for {
		if err := ctx.Err(); err != nil {
			return 0, &MappingError{Op: "create", Port: localPort, Cause: err}
		}
		_, _, _, _, _, err := m.client.GetSpecificPortMappingEntry("", uint16(externalPort), "TCP")
		if err != nil {
			break
		}
		if externalPort >= maxExternalPort {
			return 0, ErrNoAvailablePort
		}
		externalPort++
	}

	err = m.client.AddPortMapping(
		"",                   // NewRemoteHost（空 = 任意）
		uint16(externalPort), // NewExternalPort
		"TCP",                // NewProtocol
		uint16(localPort),    // NewInternalPort
		localIP.String(),     // NewInternalClient
		true,                 // NewEnabled
		"tensorlink",         // NewPortMappingDescription
		0,                    // NewLeaseDuration（0 = 永久）
	)
	if err != nil {
		return 0, &MappingError{Op: "create", Port: externalPort, Cause: err}
	}

	m.mu.Lock()
	m.mappings[externalPort] = &Mapping{
		Protocol:     "TCP",
		InternalPort: localPort,
		ExternalPort: externalPort,
		CreatedAt:    time.Now(),
	}
	m.mu.Unlock()

	logger.Info("UPnP 端口映射成功",
		"localPort", localPort,
		"externalPort", externalPort,
		"localIP", localIP.String())

	return externalPort, nil
}

// DeleteMapping 删除指定外部端口上的 TCP 映射
func (m *Mapper) DeleteMapping(ctx context.Context, externalPort int) error {
	if err := ctx.Err(); err != nil {
		return &MappingError{Op: "delete", Port: externalPort, Cause: err}
	}
	if err := m.client.DeletePortMapping("", uint16(externalPort), "TCP"); err != nil {
		return &MappingError{Op: "delete", Port: externalPort, Cause: err}
	}

	m.mu.Lock()
	delete(m.mappings, externalPort)
	m.mu.Unlock()

	logger.Info("UPnP 端口映射已删除", "externalPort", externalPort)
	return nil
}

// ExternalIP 查询路由器的外部 IP 地址
func (m *Mapper) ExternalIP() (string, error) {
	ip, err := m.client.GetExternalIPAddress()
	if err != nil {
		return "", &MappingError{Op: "external-ip", Port: 0, Cause: err}
	}
	return ip, nil
}

// Mappings 返回当前记录的映射快照
func (m *Mapper) Mappings() []*Mapping {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Mapping, 0, len(m.mappings))
	for _, mapping := range m.mappings {
		out = append(out, mapping)
	}
	return out
}

// Close 尽力删除所有已记录的映射
func (m *Mapper) Close() error {
	m.mu.Lock()
	ports := make([]int, 0, len(m.mappings))
	for port := range m.mappings {
		ports = append(ports, port)
	}
	m.mappings = make(map[int]*Mapping)
	m.mu.Unlock()

	for _, port := range ports {
		if err := m.client.DeletePortMapping("", uint16(port), "TCP"); err != nil {
			logger.Warn("清理端口映射失败", "externalPort", port, "err", err)
		}
	}
	return nil
}

// getLocalIP 获取本地出口 IP 地址
//
// 连接到外部地址以确定本地出口（不会实际发送数据）。
func getLocalIP() (net.IP, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)
	return localAddr.IP, nil
}
