package metrics

import "github.com/ceyewan/flake/clog"

// Option 配置 Meter
type Option func(*options)

type options struct {
	logger clog.Logger
}

func applyOptions(opts []Option) options {
	o := options{logger: clog.Discard()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger 日志带 "metrics" 命名空间
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger.WithNamespace("metrics")
		}
	}
}
