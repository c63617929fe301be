package breaker

import (
	"github.com/ceyewan/flake/clog"
	"github.com/ceyewan/flake/metrics"
)

// Option 配置 Breaker
type Option func(*options)

type options struct {
	logger clog.Logger
	meter  metrics.Meter
}

func applyOptions(opts []Option) options {
	o := options{logger: clog.Discard(), meter: metrics.Discard()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger 日志带 "breaker" 命名空间
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger.WithNamespace("breaker")
		}
	}
}

// WithMeter 统计拒绝次数和状态切换
func WithMeter(meter metrics.Meter) Option {
	return func(o *options) {
		if meter != nil {
			o.meter = meter
		}
	}
}
