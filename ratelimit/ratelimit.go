// Package ratelimit 为 flaked 的 HTTP 接口提供令牌桶限流。
//
// 单机模式基于 golang.org/x/time/rate，每个键一个内存令牌桶；
// redis 模式用 Lua 脚本在 Redis 中维护令牌桶，多个 flaked 实例共享额度。
// 批量接口按申请的 ID 个数消耗令牌（AllowN）。
//
//	limiter, _ := ratelimit.New(&ratelimit.Config{Rate: 1000, Burst: 2000},
//	    ratelimit.WithLogger(logger), ratelimit.WithMeter(meter))
//	defer limiter.Close()
//
//	r.Use(ratelimit.GinMiddleware(limiter, nil, ratelimit.QueryCost("count")))
package ratelimit

import (
	"context"
	"time"

	"github.com/ceyewan/flake/clog"
	"github.com/ceyewan/flake/xerrors"
)

// ========================================
// 接口定义 (Interface Definitions)
// ========================================

// Limit 令牌桶规则
type Limit struct {
	Rate  float64 // 每秒生成的令牌数
	Burst int     // 桶容量
}

func (l Limit) valid() bool {
	return l.Rate > 0 && l.Burst > 0
}

// Limiter 限流器核心接口
type Limiter interface {
	// Allow 尝试获取 1 个令牌（非阻塞）
	Allow(ctx context.Context, key string) (bool, error)

	// AllowN 尝试获取 n 个令牌（非阻塞），n 大于 Burst 时永远不会被允许
	AllowN(ctx context.Context, key string, n int) (bool, error)

	// Limit 返回限流规则
	Limit() Limit

	// Close 释放限流器持有的资源
	Close() error
}

// 限流模式
const (
	ModeStandalone = "standalone"
	ModeRedis      = "redis"
)

// ========================================
// 配置定义 (Configuration)
// ========================================

// Config 限流配置
//
//	ratelimit:
//	  enabled: true
//	  mode: standalone
//	  rate: 1000
//	  burst: 2000
type Config struct {
	// Enabled 为 false 时 flaked 不挂载限流中间件
	Enabled bool `mapstructure:"enabled"`

	// Mode standalone | redis，默认 standalone
	Mode string `mapstructure:"mode"`

	// Rate 每个客户端每秒可申请的 ID 数
	Rate float64 `mapstructure:"rate"`

	// Burst 突发容量，应不小于单次批量上限
	Burst int `mapstructure:"burst"`

	// Prefix redis 模式的键前缀，默认 "flake:ratelimit:"
	Prefix string `mapstructure:"prefix"`

	// MaxKeys 单机模式最多保留的令牌桶数量，默认 100000
	MaxKeys int `mapstructure:"max_keys"`

	// IdleTimeout 单机模式令牌桶的空闲回收时间，默认 5 分钟
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
}

func (c *Config) setDefaults() {
	if c.Mode == "" {
		c.Mode = ModeStandalone
	}
	if c.Prefix == "" {
		c.Prefix = "flake:ratelimit:"
	}
	if c.MaxKeys <= 0 {
		c.MaxKeys = 100_000
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 5 * time.Minute
	}
}

func (c *Config) validate() error {
	if c.Mode != ModeStandalone && c.Mode != ModeRedis {
		return xerrors.Wrapf(ErrInvalidConfig, "mode %q", c.Mode)
	}
	if !c.limit().valid() {
		return xerrors.Wrapf(ErrInvalidLimit, "rate=%v burst=%d", c.Rate, c.Burst)
	}
	return nil
}

func (c *Config) limit() Limit {
	return Limit{Rate: c.Rate, Burst: c.Burst}
}

// ========================================
// 工厂函数 (Factory Functions)
// ========================================

// New 按 cfg.Mode 创建限流器，redis 模式需要 WithRedisConnector
func New(cfg *Config, opts ...Option) (Limiter, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}
	c := *cfg
	c.setDefaults()
	if err := c.validate(); err != nil {
		return nil, err
	}

	o := applyOptions(opts)
	m, err := newLimiterMetrics(o.meter, c.Mode)
	if err != nil {
		return nil, err
	}

	var limiter Limiter
	switch c.Mode {
	case ModeRedis:
		limiter, err = newDistributed(&c, o.redisConn, o.logger, m)
	default:
		limiter, err = newStandalone(&c, o.logger, m)
	}
	if err != nil {
		return nil, err
	}

	o.logger.Info("rate limiter created",
		clog.String("mode", c.Mode),
		clog.Float64("rate", c.Rate),
		clog.Int("burst", c.Burst))
	return limiter, nil
}
