package axon

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config Axon 配置
type Config struct {
	// Registerer 指标注册器；nil 时使用独立的私有注册器
	Registerer prometheus.Registerer
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{}
}

// Option Axon 配置选项
type Option func(*Config)

// WithRegisterer 设置指标注册器
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *Config) { c.Registerer = reg }
}

// ============================================================================
//                              Server 选项
// ============================================================================

// DefaultRequestTimeout 单个请求的默认处理超时
const DefaultRequestTimeout = 30 * time.Second

// ServerConfig 流式服务端配置
type ServerConfig struct {
	// RequestTimeout 单个请求的处理超时；超时后该请求以
	// UnknownException 终结，不会悬挂
	RequestTimeout time.Duration
}

// DefaultServerConfig 返回默认服务端配置
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		RequestTimeout: DefaultRequestTimeout,
	}
}

// ServerOption 服务端配置选项
type ServerOption func(*ServerConfig)

// WithRequestTimeout 设置单请求处理超时
func WithRequestTimeout(d time.Duration) ServerOption {
	return func(c *ServerConfig) {
		if d > 0 {
			c.RequestTimeout = d
		}
	}
}
