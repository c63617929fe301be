package trace

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// GinMiddleware 为每个请求创建服务端 Span
func GinMiddleware(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName)
}

// TraceIDKey 写入 gin.Context 和请求 Context 的键，与 clog.WithStandardContext 对齐
const TraceIDKey = "trace_id"

// GinTraceID 把当前 Span 的 TraceID 放进 gin.Context，供日志提取。
// 必须注册在 GinMiddleware 之后。
func GinTraceID() gin.HandlerFunc {
	return func(c *gin.Context) {
		sc := oteltrace.SpanContextFromContext(c.Request.Context())
		if sc.HasTraceID() {
			c.Set(TraceIDKey, sc.TraceID().String())
		}
		c.Next()
	}
}
