package connector

import (
	"github.com/ceyewan/flake/clog"
	"github.com/ceyewan/flake/metrics"
)

// Option 作用于单个连接器实例
type Option func(*options)

type options struct {
	logger  clog.Logger
	meter   metrics.Meter
	tracing bool
}

func applyOptions(opts []Option) *options {
	o := &options{logger: clog.Discard(), meter: metrics.Discard()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger 日志带 "connector" 命名空间以及 connector、name 两个字段
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger.WithNamespace("connector")
		}
	}
}

// WithMeter 导出 connector_connect_attempts_total 和 connector_healthy
func WithMeter(meter metrics.Meter) Option {
	return func(o *options) {
		if meter != nil {
			o.meter = meter
		}
	}
}

// WithTracing 对 Redis 命令和 GORM 查询生成 Span，其余后端忽略
func WithTracing() Option {
	return func(o *options) { o.tracing = true }
}
