package ratelimit

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// KeyFunc 从请求中提取限流键，返回空串表示不限流
type KeyFunc func(*gin.Context) string

// CostFunc 返回本次请求消耗的令牌数，返回值小于 1 时按 1 计
type CostFunc func(*gin.Context) int

// ClientIP 按客户端 IP 限流
func ClientIP(c *gin.Context) string {
	return c.ClientIP()
}

// QueryCost 以查询参数的整数值作为消耗，参数缺失或非法时为 1。
// 非法值由后续 handler 负责拒绝
func QueryCost(param string) CostFunc {
	return func(c *gin.Context) int {
		n, err := strconv.Atoi(c.Query(param))
		if err != nil || n < 1 {
			return 1
		}
		return n
	}
}

// GinMiddleware 创建 Gin 限流中间件。keyFunc 为 nil 时按客户端 IP，costFunc 为 nil 时每个请求消耗 1。
// 被拒绝的请求返回 429 并带上 X-RateLimit-Limit；限流器出错时放行
//
//	r.GET("/v1/ids", ratelimit.GinMiddleware(limiter, nil, ratelimit.QueryCost("count")), handler)
func GinMiddleware(limiter Limiter, keyFunc KeyFunc, costFunc CostFunc) gin.HandlerFunc {
	if keyFunc == nil {
		keyFunc = ClientIP
	}
	if costFunc == nil {
		costFunc = func(*gin.Context) int { return 1 }
	}
	burst := strconv.Itoa(limiter.Limit().Burst)

	return func(c *gin.Context) {
		key := keyFunc(c)
		if key == "" {
			c.Next()
			return
		}

		cost := max(costFunc(c), 1)
		allowed, err := limiter.AllowN(c.Request.Context(), key, cost)
		if err != nil {
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", burst)
		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
