// Package testkit 为各组件测试提供公共依赖：日志、指标、唯一 ID，
// 以及基于 testcontainers 的 Redis/Etcd/MySQL/NATS/Kafka 连接器。
//
// 容器类辅助函数在 -short 模式或 Docker 不可用时调用 t.Skip，
// 资源生命周期统一交给 t.Cleanup。
package testkit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ceyewan/flake/clog"
	"github.com/ceyewan/flake/metrics"
)

// Kit 包含通用的测试依赖
type Kit struct {
	Ctx    context.Context
	Logger clog.Logger
	Meter  metrics.Meter
}

// NewKit 返回一个包含默认依赖的测试工具包
func NewKit(t *testing.T) *Kit {
	t.Helper()
	meter := NewMeter()
	t.Cleanup(func() { _ = meter.Shutdown(context.Background()) })
	return &Kit{
		Ctx:    context.Background(),
		Logger: NewLogger(),
		Meter:  meter,
	}
}

// NewLogger 返回一个用于测试的 logger，只输出 Warn 及以上，避免淹没测试输出
func NewLogger() clog.Logger {
	logger, err := clog.New(&clog.Config{Level: "warn", Format: "console", Output: "stderr"},
		clog.WithNamespace("test"))
	if err != nil {
		return clog.Discard()
	}
	return logger
}

// NewMeter 返回一个用于测试的 meter，使用独立 Registry，可通过 Handler() 断言输出
func NewMeter() metrics.Meter {
	meter, err := metrics.New(metrics.NewDevDefaultConfig("flake-test"))
	if err != nil {
		return metrics.Discard()
	}
	return meter
}

// NewContext 返回一个带有超时的测试上下文，超时取消会注册到 t.Cleanup
func NewContext(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// NewID 返回一个唯一的测试 ID (UUID v4 前 8 位)，用于 Key、Topic、表名后缀
func NewID() string {
	return uuid.New().String()[0:8]
}

// RequireIntegration 在 -short 模式下跳过依赖外部服务的测试
func RequireIntegration(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
}

// skipOnContainerError 容器启动失败通常意味着本机没有 Docker，跳过而不是失败
func skipOnContainerError(t *testing.T, what string, err error) {
	t.Helper()
	if err != nil {
		t.Skipf("%s container unavailable: %v", what, err)
	}
}
