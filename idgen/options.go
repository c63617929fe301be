package idgen

import (
	"context"

	"github.com/ceyewan/flake/clog"
	"github.com/ceyewan/flake/metrics"
)

// Store 生成器持久化最近一次 ID 的协作者，lastid.Store 满足该接口
type Store interface {
	Write(ctx context.Context, id uint64) error
}

// Option 组件初始化选项函数
type Option func(*options)

type options struct {
	logger   clog.Logger
	meter    metrics.Meter
	clock    Clock
	store    Store
	identity IdentityProvider
}

// WithLogger 设置 Logger，自动追加 "idgen" 命名空间
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger.WithNamespace("idgen")
		}
	}
}

// WithMeter 设置 Meter
func WithMeter(meter metrics.Meter) Option {
	return func(o *options) {
		if meter != nil {
			o.meter = meter
		}
	}
}

// WithClock 替换时钟，测试中使用
func WithClock(clock Clock) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithStore 设置最近 ID 的持久化目标。未设置时不持久化
func WithStore(store Store) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithIdentityProvider 替换主机信息来源，仅在 Method="host" 时使用
func WithIdentityProvider(p IdentityProvider) Option {
	return func(o *options) {
		if p != nil {
			o.identity = p
		}
	}
}

func applyOptions(opts []Option) *options {
	o := &options{
		logger:   clog.Discard(),
		meter:    metrics.Discard(),
		clock:    SystemClock(),
		identity: HostIdentity{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
