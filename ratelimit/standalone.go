package ratelimit

import (
	"context"
	"time"

	"github.com/maypok86/otter/v2"
	"golang.org/x/time/rate"

	"github.com/ceyewan/flake/clog"
	"github.com/ceyewan/flake/xerrors"
)

// standaloneLimiter 进程内限流器，每个键一个 rate.Limiter。
// 令牌桶存放在 otter 缓存中，空闲超过 IdleTimeout 或超出 MaxKeys 时被淘汰
type standaloneLimiter struct {
	limit   Limit
	logger  clog.Logger
	metrics *limiterMetrics
	now     func() time.Time

	buckets *otter.Cache[string, *rate.Limiter]
	loader  otter.Loader[string, *rate.Limiter]
}

func newStandalone(cfg *Config, logger clog.Logger, m *limiterMetrics) (*standaloneLimiter, error) {
	buckets, err := otter.New(&otter.Options[string, *rate.Limiter]{
		MaximumSize:      cfg.MaxKeys,
		ExpiryCalculator: otter.ExpiryAccessing[string, *rate.Limiter](cfg.IdleTimeout),
	})
	if err != nil {
		return nil, xerrors.Wrap(err, "ratelimit: build bucket cache")
	}

	l := &standaloneLimiter{
		limit:   cfg.limit(),
		logger:  logger,
		metrics: m,
		now:     time.Now,
		buckets: buckets,
	}
	l.loader = otter.LoaderFunc[string, *rate.Limiter](func(context.Context, string) (*rate.Limiter, error) {
		return rate.NewLimiter(rate.Limit(l.limit.Rate), l.limit.Burst), nil
	})
	return l, nil
}

func (l *standaloneLimiter) Allow(ctx context.Context, key string) (bool, error) {
	return l.AllowN(ctx, key, 1)
}

func (l *standaloneLimiter) AllowN(ctx context.Context, key string, n int) (bool, error) {
	if key == "" {
		return false, ErrKeyEmpty
	}
	if n <= 0 {
		return false, xerrors.Wrapf(ErrInvalidLimit, "n=%d", n)
	}

	bucket, err := l.buckets.Get(ctx, key, l.loader)
	if err != nil {
		return false, xerrors.Wrap(err, "ratelimit: load bucket")
	}
	allowed := bucket.AllowN(l.now(), n)

	l.metrics.record(ctx, allowed)
	if !allowed {
		l.logger.DebugContext(ctx, "rate limited",
			clog.String("key", key),
			clog.Int("requested", n))
	}
	return allowed, nil
}

func (l *standaloneLimiter) Limit() Limit {
	return l.limit
}

// Close 清空所有令牌桶，可重复调用
func (l *standaloneLimiter) Close() error {
	l.buckets.InvalidateAll()
	return nil
}
