// Package metrics 基于 OpenTelemetry 提供 Counter、Gauge、Histogram 三类指标，
// 通过 Prometheus exporter 暴露。
//
//	meter, err := metrics.New(metrics.NewDevDefaultConfig("flaked"))
//	if err != nil {
//	    return err
//	}
//	defer meter.Shutdown(ctx)
//
//	generated, _ := meter.Counter("idgen_snowflake_generated_total", "Snowflake IDs issued")
//	generated.Inc(ctx)
//
// Enabled 为 false 或使用 Discard() 时，所有操作都是空操作，
// 组件可以无条件地记录指标。
package metrics

import (
	"context"
	"net/http"
	"slices"
)

// Counter 只增不减的累计值
type Counter interface {
	// Inc 将计数器增加 1
	Inc(ctx context.Context, labels ...Label)
	// Add 将计数器增加 val，负数会被底层忽略
	Add(ctx context.Context, val float64, labels ...Label)
}

// Gauge 可任意增减的瞬时值
type Gauge interface {
	Set(ctx context.Context, val float64, labels ...Label)
	Inc(ctx context.Context, labels ...Label)
	Dec(ctx context.Context, labels ...Label)
}

// Histogram 值的分布，例如存储写入耗时
type Histogram interface {
	Record(ctx context.Context, val float64, labels ...Label)
}

// Meter 指标创建工厂，创建出的指标可并发使用
type Meter interface {
	Counter(name string, desc string, opts ...MetricOption) (Counter, error)
	Gauge(name string, desc string, opts ...MetricOption) (Gauge, error)
	Histogram(name string, desc string, opts ...MetricOption) (Histogram, error)

	// Handler 返回 Prometheus 采集端点；noop Meter 返回 404 处理器
	Handler() http.Handler

	// Shutdown 刷新并关闭，通常在进程退出时调用
	Shutdown(ctx context.Context) error
}

// MetricOption 调整单个指标
type MetricOption func(*MetricOptions)

// MetricOptions Unit 用 UCUM 代码（如 "s"）；Buckets 只对 Histogram 生效
type MetricOptions struct {
	Unit    string
	Buckets []float64
}

func WithUnit(unit string) MetricOption {
	return func(o *MetricOptions) { o.Unit = unit }
}

func WithBuckets(buckets []float64) MetricOption {
	return func(o *MetricOptions) { o.Buckets = slices.Clone(buckets) }
}

func collect(opts []MetricOption) MetricOptions {
	var mo MetricOptions
	for _, opt := range opts {
		opt(&mo)
	}
	return mo
}
