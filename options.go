package tensorlink

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/tensorlink/go-tensorlink/internal/config"
	"github.com/tensorlink/go-tensorlink/internal/core/axon"
)

// nodeConfig Node 构造期配置
type nodeConfig struct {
	config     *config.Config
	synapse    axon.Synapse
	registerer prometheus.Registerer

	userFxOptions []fx.Option
}

// defaultNodeConfig 返回默认构造配置
func defaultNodeConfig() *nodeConfig {
	return &nodeConfig{
		config: config.DefaultConfig(),
	}
}

// Option Node 配置选项
type Option func(*nodeConfig)

// WithConfig 使用完整配置（通常来自 TOML 文件）
func WithConfig(cfg *config.Config) Option {
	return func(c *nodeConfig) {
		if cfg != nil {
			c.config = cfg
		}
	}
}

// WithListenAddr 设置 Axon 监听地址
func WithListenAddr(addr string) Option {
	return func(c *nodeConfig) { c.config.Axon.ListenAddr = addr }
}

// WithRequestTimeout 设置单请求处理超时
func WithRequestTimeout(d time.Duration) Option {
	return func(c *nodeConfig) {
		if d > 0 {
			c.config.Axon.RequestTimeout = config.Duration(d)
		}
	}
}

// WithSynapse 设置启动时注册的 Synapse
//
// 未设置时节点以 NotServingSynapse 状态启动，随后可通过
// Node.Serve 注册。
func WithSynapse(s axon.Synapse) Option {
	return func(c *nodeConfig) { c.synapse = s }
}

// WithPublicKey 设置节点公钥（随请求携带，用于日志标识）
func WithPublicKey(key string) Option {
	return func(c *nodeConfig) { c.config.Node.PublicKey = key }
}

// WithExternalIPDiscovery 启用/禁用启动时的外部地址探测
func WithExternalIPDiscovery(enabled bool) Option {
	return func(c *nodeConfig) { c.config.NAT.DiscoverExternalIP = enabled }
}

// WithPortMapping 启用/禁用启动时的 UPnP 端口映射
func WithPortMapping(enabled bool) Option {
	return func(c *nodeConfig) { c.config.NAT.MapPort = enabled }
}

// WithRegisterer 设置指标注册器
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *nodeConfig) { c.registerer = reg }
}

// WithFxOptions 追加用户自定义 Fx 选项（高级用法）
func WithFxOptions(opts ...fx.Option) Option {
	return func(c *nodeConfig) {
		c.userFxOptions = append(c.userFxOptions, opts...)
	}
}
