package clog

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"slices"
	"strings"
	"time"
)

// NamespaceKey 命名空间在日志中的字段名
const NamespaceKey = "namespace"

// logger 派生出的子 Logger 共享 handler，各自持有字段和命名空间的副本
type logger struct {
	handler   *levelHandler
	namespace string
	ctxFields []ContextField
	attrs     []slog.Attr
}

func newLogger(cfg *Config, o *options) (Logger, error) {
	h, err := newHandler(cfg, o)
	if err != nil {
		return nil, err
	}
	return &logger{
		handler:   h,
		namespace: strings.Join(o.namespace, "."),
		ctxFields: o.ctxFields,
	}, nil
}

func (l *logger) Debug(msg string, fields ...Field) { l.emit(nil, DebugLevel, msg, fields) }
func (l *logger) Info(msg string, fields ...Field)  { l.emit(nil, InfoLevel, msg, fields) }
func (l *logger) Warn(msg string, fields ...Field)  { l.emit(nil, WarnLevel, msg, fields) }
func (l *logger) Error(msg string, fields ...Field) { l.emit(nil, ErrorLevel, msg, fields) }
func (l *logger) Fatal(msg string, fields ...Field) { l.emit(nil, FatalLevel, msg, fields) }

func (l *logger) DebugContext(ctx context.Context, msg string, fields ...Field) {
	l.emit(ctx, DebugLevel, msg, fields)
}

func (l *logger) InfoContext(ctx context.Context, msg string, fields ...Field) {
	l.emit(ctx, InfoLevel, msg, fields)
}

func (l *logger) WarnContext(ctx context.Context, msg string, fields ...Field) {
	l.emit(ctx, WarnLevel, msg, fields)
}

func (l *logger) ErrorContext(ctx context.Context, msg string, fields ...Field) {
	l.emit(ctx, ErrorLevel, msg, fields)
}

func (l *logger) FatalContext(ctx context.Context, msg string, fields ...Field) {
	l.emit(ctx, FatalLevel, msg, fields)
}

func (l *logger) With(fields ...Field) Logger {
	child := *l
	child.attrs = append(slices.Clip(l.attrs), fields...)
	return &child
}

func (l *logger) WithNamespace(parts ...string) Logger {
	child := *l
	child.namespace = strings.Join(parts, ".")
	if l.namespace != "" {
		child.namespace = l.namespace + "." + child.namespace
	}
	return &child
}

func (l *logger) SetLevel(level Level) error {
	l.handler.level.Set(level.slogLevel())
	return nil
}

// Flush slog 同步写出，没有需要刷新的缓冲
func (l *logger) Flush() {}

// emit 的调用深度固定为 Logger 方法 -> emit，source 据此跳过三层
func (l *logger) emit(ctx context.Context, level Level, msg string, fields []Field) {
	if ctx == nil {
		ctx = context.Background()
	}
	sl := level.slogLevel()
	if !l.handler.Enabled(ctx, sl) {
		return
	}

	var pcs [1]uintptr
	runtime.Callers(3, pcs[:])
	r := slog.NewRecord(time.Now(), sl, msg, pcs[0])
	r.AddAttrs(l.attrs...)
	r.AddAttrs(fields...)
	for _, cf := range l.ctxFields {
		if v := ctx.Value(cf.Key); v != nil {
			r.AddAttrs(slog.Any(cf.FieldName, v))
		}
	}
	if l.namespace != "" {
		r.AddAttrs(slog.String(NamespaceKey, l.namespace))
	}
	_ = l.handler.Handle(ctx, r)

	if level == FatalLevel {
		os.Exit(1)
	}
}
