package breaker

import (
	"time"

	"github.com/sony/gobreaker/v2"
)

// Config 对应配置文件的 lastid.breaker 段
type Config struct {
	// MaxRequests 半开时放行的探测请求数，默认 1
	MaxRequests uint32 `mapstructure:"max_requests"`
	// Interval 闭合时清零计数的周期，0 表示从不清零
	Interval time.Duration `mapstructure:"interval"`
	// Timeout 打开多久后进入半开，默认 30s
	Timeout time.Duration `mapstructure:"timeout"`
	// FailureRatio 达到该失败率即打开，默认 0.6
	FailureRatio float64 `mapstructure:"failure_ratio"`
	// MinimumRequests 计数不足时不打开，默认 10
	MinimumRequests uint32 `mapstructure:"minimum_requests"`
}

func (c *Config) setDefaults() {
	if c.MaxRequests == 0 {
		c.MaxRequests = 1
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.FailureRatio == 0 {
		c.FailureRatio = 0.6
	}
	if c.MinimumRequests == 0 {
		c.MinimumRequests = 10
	}
}

func (c *Config) validate() error {
	switch {
	case c.FailureRatio < 0, c.FailureRatio > 1:
		return ErrInvalidConfig
	case c.Interval < 0, c.Timeout < 0:
		return ErrInvalidConfig
	}
	return nil
}

func (c *Config) tripped(n gobreaker.Counts) bool {
	return n.Requests >= c.MinimumRequests &&
		float64(n.TotalFailures) >= c.FailureRatio*float64(n.Requests)
}
