package config

import (
	"fmt"
	"time"
)

// Duration 是支持 TOML 字符串解析的 time.Duration 包装类型
//
// 支持 "30s"、"5m"、"1h30m" 等格式。
//
// 使用示例:
//
//	type Config struct {
//	    Timeout Duration `toml:"timeout"`
//	}
//
//	// TOML: timeout = "30s"
type Duration time.Duration

// UnmarshalText 实现 encoding.TextUnmarshaler 接口
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration string %q: %w", string(text), err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText 实现 encoding.TextMarshaler 接口
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Duration 返回底层的 time.Duration 值
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// String 返回字符串表示
func (d Duration) String() string {
	return time.Duration(d).String()
}
