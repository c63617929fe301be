package ratelimit

import (
	"context"

	"github.com/ceyewan/flake/metrics"
	"github.com/ceyewan/flake/xerrors"
)

// Metrics 指标常量定义
const (
	// MetricAllowed 允许通过的请求数 (Counter)
	MetricAllowed = "ratelimit_allowed_total"

	// MetricDenied 被拒绝的请求数 (Counter)
	MetricDenied = "ratelimit_denied_total"

	// MetricErrors 限流器后端错误数 (Counter)
	MetricErrors = "ratelimit_errors_total"

	// LabelMode 模式标签 (standalone/redis)
	LabelMode = "mode"
)

type limiterMetrics struct {
	mode    metrics.Label
	allowed metrics.Counter
	denied  metrics.Counter
	errors  metrics.Counter
}

func newLimiterMetrics(meter metrics.Meter, mode string) (*limiterMetrics, error) {
	m := &limiterMetrics{mode: metrics.L(LabelMode, mode)}
	var err error
	if m.allowed, err = meter.Counter(MetricAllowed, "Requests allowed by the rate limiter"); err != nil {
		return nil, xerrors.Wrap(err, "create allowed counter")
	}
	if m.denied, err = meter.Counter(MetricDenied, "Requests denied by the rate limiter"); err != nil {
		return nil, xerrors.Wrap(err, "create denied counter")
	}
	if m.errors, err = meter.Counter(MetricErrors, "Rate limiter backend errors"); err != nil {
		return nil, xerrors.Wrap(err, "create errors counter")
	}
	return m, nil
}

func (m *limiterMetrics) record(ctx context.Context, allowed bool) {
	if allowed {
		m.allowed.Inc(ctx, m.mode)
		return
	}
	m.denied.Inc(ctx, m.mode)
}
