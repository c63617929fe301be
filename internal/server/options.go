package server

import (
	"github.com/ceyewan/flake/auth"
	"github.com/ceyewan/flake/clog"
	"github.com/ceyewan/flake/metrics"
	"github.com/ceyewan/flake/ratelimit"
)

// Option 服务选项
type Option func(*options)

type options struct {
	logger  clog.Logger
	meter   metrics.Meter
	limiter ratelimit.Limiter
	auth    auth.Authenticator
	checks  map[string]HealthCheck
}

// WithLogger 设置 Logger，自动追加 "server" 命名空间
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger.WithNamespace("server")
		}
	}
}

// WithMeter 设置 Meter，/metrics 由它的 Handler 提供
func WithMeter(meter metrics.Meter) Option {
	return func(o *options) {
		if meter != nil {
			o.meter = meter
		}
	}
}

// WithRateLimiter 为发号接口挂载限流，批量接口按 count 消耗令牌
func WithRateLimiter(limiter ratelimit.Limiter) Option {
	return func(o *options) {
		o.limiter = limiter
	}
}

// WithAuthenticator 发号接口要求有效的 Bearer 令牌
func WithAuthenticator(a auth.Authenticator) Option {
	return func(o *options) {
		o.auth = a
	}
}

// WithHealthCheck 注册 /healthz 的依赖探测
func WithHealthCheck(name string, check HealthCheck) Option {
	return func(o *options) {
		if check != nil {
			o.checks[name] = check
		}
	}
}

func applyOptions(opts []Option) *options {
	o := &options{
		logger: clog.Discard(),
		meter:  metrics.Discard(),
		checks: make(map[string]HealthCheck),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
