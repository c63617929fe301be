package metrics

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ceyewan/flake/xerrors"
)

// HTTP 服务端指标
const (
	// MetricHTTPRequests 请求数 (Counter)
	MetricHTTPRequests = "http_server_requests_total"

	// MetricHTTPDuration 请求耗时 (Histogram, 秒)
	MetricHTTPDuration = "http_server_request_duration_seconds"
)

// flaked 的请求基本都在毫秒级，批量接口最多几十毫秒
var httpDurationBuckets = []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.5, 1}

// HTTPMetrics 按路由模板记录请求数与耗时
type HTTPMetrics struct {
	service  Label
	requests Counter
	duration Histogram
}

// NewHTTPMetrics 在 m 上注册 HTTP 指标，service 写入每个样本的 service 标签
func NewHTTPMetrics(m Meter, service string) (*HTTPMetrics, error) {
	if m == nil {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "metrics: meter is nil")
	}
	requests, err := m.Counter(MetricHTTPRequests, "HTTP requests served")
	if err != nil {
		return nil, xerrors.Wrap(err, "create http request counter")
	}
	duration, err := m.Histogram(MetricHTTPDuration, "HTTP request latency",
		WithUnit("s"), WithBuckets(httpDurationBuckets))
	if err != nil {
		return nil, xerrors.Wrap(err, "create http duration histogram")
	}
	return &HTTPMetrics{
		service:  L(LabelService, service),
		requests: requests,
		duration: duration,
	}, nil
}

// Observe 记录一次请求。route 应为路由模板（如 /v1/ids/:id），为空时记为 unknown
func (h *HTTPMetrics) Observe(ctx context.Context, method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = UnknownRoute
	}
	labels := []Label{
		h.service,
		L(LabelMethod, method),
		L(LabelRoute, route),
		L(LabelStatusClass, HTTPStatusClass(status)),
		L(LabelOutcome, HTTPOutcome(status)),
	}
	h.requests.Inc(ctx, labels...)
	h.duration.Record(ctx, elapsed.Seconds(), labels...)
}

// GinMiddleware 以 c.FullPath() 作为 route 标签，未命中的路由统一记为 unknown
func (h *HTTPMetrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.Observe(c.Request.Context(), c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}
