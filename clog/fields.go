package clog

import (
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"
)

// Field 即 slog.Attr，构造函数直接转发给 slog
type Field = slog.Attr

func String(k, v string) Field                 { return slog.String(k, v) }
func Int(k string, v int) Field                { return slog.Int(k, v) }
func Int64(k string, v int64) Field            { return slog.Int64(k, v) }
func Float64(k string, v float64) Field        { return slog.Float64(k, v) }
func Bool(k string, v bool) Field              { return slog.Bool(k, v) }
func Time(k string, v time.Time) Field         { return slog.Time(k, v) }
func Duration(k string, v time.Duration) Field { return slog.Duration(k, v) }
func Any(k string, v any) Field                { return slog.Any(k, v) }

// Uint64 用于 ID 等无符号值
func Uint64(k string, v uint64) Field { return slog.Uint64(k, v) }

// Error 只记录错误消息，字段名 err_msg；err 为 nil 时输出为空
func Error(err error) Field {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String("err_msg", err.Error())
}

// ErrorWithCode 输出 error={msg, code}，code 通常来自 xerrors.GetCode
func ErrorWithCode(err error, code string) Field {
	attrs := []any{slog.String("code", code)}
	if err != nil {
		attrs = append([]any{slog.String("msg", err.Error())}, attrs...)
	}
	return slog.Group("error", attrs...)
}

// ErrorWithStack 输出 error={msg, type, stack}，栈从调用方开始，开销较大
func ErrorWithStack(err error) Field {
	if err == nil {
		return slog.Attr{}
	}
	attrs := []any{
		slog.String("msg", err.Error()),
		slog.String("type", fmt.Sprintf("%T", err)),
	}
	if stack := callerStack(3); stack != "" {
		attrs = append(attrs, slog.String("stack", stack))
	}
	return slog.Group("error", attrs...)
}

// callerStack 跳过 skip 层后最多记录 32 帧，每帧一行 "file:line func"
func callerStack(skip int) string {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(skip, pcs)
	if n == 0 {
		return ""
	}
	var b strings.Builder
	frames := runtime.CallersFrames(pcs[:n])
	for {
		f, more := frames.Next()
		fmt.Fprintf(&b, "%s:%d %s\n", f.File, f.Line, f.Function)
		if !more {
			return b.String()
		}
	}
}
