package metrics

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

func (m *promMeter) Counter(name, desc string, opts ...MetricOption) (Counter, error) {
	mo := collect(opts)
	c, err := m.meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(mo.Unit))
	if err != nil {
		return nil, err
	}
	return counter{c}, nil
}

func (m *promMeter) Gauge(name, desc string, opts ...MetricOption) (Gauge, error) {
	mo := collect(opts)
	g, err := m.meter.Float64Gauge(name, metric.WithDescription(desc), metric.WithUnit(mo.Unit))
	if err != nil {
		return nil, err
	}
	return &gauge{g: g, current: make(map[attribute.Distinct]float64)}, nil
}

func (m *promMeter) Histogram(name, desc string, opts ...MetricOption) (Histogram, error) {
	mo := collect(opts)
	hopts := []metric.Float64HistogramOption{metric.WithDescription(desc), metric.WithUnit(mo.Unit)}
	if len(mo.Buckets) > 0 {
		hopts = append(hopts, metric.WithExplicitBucketBoundaries(mo.Buckets...))
	}
	h, err := m.meter.Float64Histogram(name, hopts...)
	if err != nil {
		return nil, err
	}
	return histogram{h}, nil
}

func attrs(labels []Label) metric.MeasurementOption {
	kvs := make([]attribute.KeyValue, len(labels))
	for i, l := range labels {
		kvs[i] = attribute.String(l.Key, l.Value)
	}
	return metric.WithAttributes(kvs...)
}

type counter struct{ c metric.Int64Counter }

func (c counter) Inc(ctx context.Context, labels ...Label) { c.c.Add(ctx, 1, attrs(labels)) }

// Add 负数直接忽略
func (c counter) Add(ctx context.Context, val float64, labels ...Label) {
	if val >= 0 {
		c.c.Add(ctx, int64(val), attrs(labels))
	}
}

// gauge 同步 Gauge 只能记录绝对值，Inc/Dec 需要记住每组标签的当前值
type gauge struct {
	g       metric.Float64Gauge
	mu      sync.Mutex
	current map[attribute.Distinct]float64
}

func (g *gauge) Set(ctx context.Context, val float64, labels ...Label) {
	g.update(ctx, labels, func(float64) float64 { return val })
}

func (g *gauge) Inc(ctx context.Context, labels ...Label) {
	g.update(ctx, labels, func(v float64) float64 { return v + 1 })
}

func (g *gauge) Dec(ctx context.Context, labels ...Label) {
	g.update(ctx, labels, func(v float64) float64 { return v - 1 })
}

func (g *gauge) update(ctx context.Context, labels []Label, next func(float64) float64) {
	kvs := make([]attribute.KeyValue, len(labels))
	for i, l := range labels {
		kvs[i] = attribute.String(l.Key, l.Value)
	}
	set := attribute.NewSet(kvs...)

	g.mu.Lock()
	v := next(g.current[set.Equivalent()])
	g.current[set.Equivalent()] = v
	g.mu.Unlock()

	g.g.Record(ctx, v, metric.WithAttributeSet(set))
}

type histogram struct{ h metric.Float64Histogram }

func (h histogram) Record(ctx context.Context, val float64, labels ...Label) {
	h.h.Record(ctx, val, attrs(labels))
}
