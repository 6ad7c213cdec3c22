// Package config 节点配置
//
// 提供默认配置、校验与 TOML 文件加载。
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// 错误定义
var (
	// ErrInvalidConfig 配置不合法
	ErrInvalidConfig = errors.New("config: invalid config")
)

// 默认值
const (
	// DefaultListenAddr 默认监听地址
	DefaultListenAddr = "0.0.0.0:8091"

	// DefaultRequestTimeout 单请求默认处理超时
	DefaultRequestTimeout = 30 * time.Second

	// DefaultProbeTimeout 外部地址探测的单源超时
	DefaultProbeTimeout = 5 * time.Second

	// DefaultMappingLifetime 端口映射的租期（0 表示永久）
	DefaultMappingLifetime = 0
)

// Config 节点配置
type Config struct {
	// Node 节点级配置
	Node NodeConfig `toml:"node"`

	// Axon 服务端配置
	Axon AxonConfig `toml:"axon"`

	// NAT 地址发现与端口映射配置
	NAT NATConfig `toml:"nat"`

	// Log 日志配置
	Log LogConfig `toml:"log"`
}

// NodeConfig 节点级配置
type NodeConfig struct {
	// PublicKey 节点公钥（十六进制或 base58 文本，随请求携带）
	PublicKey string `toml:"public_key"`
}

// AxonConfig Axon 服务端配置
type AxonConfig struct {
	// ListenAddr TCP 监听地址
	ListenAddr string `toml:"listen_addr"`

	// RequestTimeout 单请求处理超时
	RequestTimeout Duration `toml:"request_timeout"`
}

// NATConfig 地址发现与端口映射配置
type NATConfig struct {
	// DiscoverExternalIP 启动时是否探测外部地址
	DiscoverExternalIP bool `toml:"discover_external_ip"`

	// ProbeTimeout 单个探测源的超时
	ProbeTimeout Duration `toml:"probe_timeout"`

	// MapPort 启动时是否尝试 UPnP 端口映射
	MapPort bool `toml:"map_port"`
}

// LogConfig 日志配置
type LogConfig struct {
	// Level 日志级别：debug/info/warn/error
	Level string `toml:"level"`

	// JSON 是否输出 JSON 格式
	JSON bool `toml:"json"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Axon: AxonConfig{
			ListenAddr:     DefaultListenAddr,
			RequestTimeout: Duration(DefaultRequestTimeout),
		},
		NAT: NATConfig{
			DiscoverExternalIP: true,
			ProbeTimeout:       Duration(DefaultProbeTimeout),
			MapPort:            false,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load 从 TOML 文件加载配置，文件中未出现的字段保持默认值
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.Axon.ListenAddr == "" {
		return fmt.Errorf("%w: axon.listen_addr is empty", ErrInvalidConfig)
	}
	if c.Axon.RequestTimeout.Duration() <= 0 {
		return fmt.Errorf("%w: axon.request_timeout must be positive", ErrInvalidConfig)
	}
	if c.NAT.ProbeTimeout.Duration() <= 0 {
		return fmt.Errorf("%w: nat.probe_timeout must be positive", ErrInvalidConfig)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, c.Log.Level)
	}
	return nil
}
