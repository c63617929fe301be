// Package clog 提供基于 slog 的结构化日志组件，flake 的所有组件都通过它输出日志。
//
// 组件默认使用 clog.Discard()，由调用方通过 WithLogger 注入真实实例，
// 组件内部再派生自己的命名空间（例如 "flaked.idgen"）。
//
// 基本使用：
//
//	logger, _ := clog.New(&clog.Config{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "stdout",
//	})
//	logger.Info("id issued", clog.Uint64("id", id))
//
// 带 Context 的日志：
//
//	logger, _ := clog.New(nil, clog.WithStandardContext())
//	logger.InfoContext(ctx, "request served")
package clog

import "context"

// Logger 日志接口，五个级别各有带 Context 和不带 Context 的版本
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)

	// Context 版本会按 WithContextField 的规则从 ctx 中提取字段
	DebugContext(ctx context.Context, msg string, fields ...Field)
	InfoContext(ctx context.Context, msg string, fields ...Field)
	WarnContext(ctx context.Context, msg string, fields ...Field)
	ErrorContext(ctx context.Context, msg string, fields ...Field)
	FatalContext(ctx context.Context, msg string, fields ...Field)

	// With 创建一个带有预设字段的子 Logger，不影响父 Logger
	With(fields ...Field) Logger

	// WithNamespace 在现有命名空间后追加层级，例如 "flaked" -> "flaked.idgen"
	WithNamespace(parts ...string) Logger

	// SetLevel 运行时调整日志级别
	SetLevel(level Level) error

	// Flush 确保日志已写入输出目标
	Flush()
}
