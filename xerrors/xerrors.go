// Package xerrors 是 flake 共用的错误工具。
//
// 各组件把自己的哨兵错误建立在这里的通用错误之上（例如 idgen.ErrInvalidInput
// 包装 ErrInvalidInput），调用方只需 Is/GetCode 即可分类处理。
package xerrors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrTimeout      = errors.New("timeout")
	// ErrUnavailable 外部依赖（存储、Redis 等）不可达
	ErrUnavailable  = errors.New("unavailable")
	ErrNotSupported = errors.New("not supported")
)

// 与标准库同名同义，方便只导入一个包
var (
	New    = errors.New
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Wrap 返回 "msg: err"；err 为 nil 时返回 nil
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &wrapped{msg: msg, cause: err}
}

// Wrapf 同 Wrap，消息按 format 格式化
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &wrapped{msg: fmt.Sprintf(format, args...), cause: err}
}

type wrapped struct {
	msg   string
	cause error
}

func (w *wrapped) Error() string { return w.msg + ": " + w.cause.Error() }
func (w *wrapped) Unwrap() error { return w.cause }

// CodedError 给错误附加机器可读的错误码，HTTP 层和日志据此分类
type CodedError struct {
	Code  string
	Cause error
}

// WithCode err 为 nil 时返回 nil
func WithCode(err error, code string) error {
	if err == nil {
		return nil
	}
	return &CodedError{Code: code, Cause: err}
}

func (e *CodedError) Error() string {
	if e.Cause == nil {
		return "[" + e.Code + "]"
	}
	return "[" + e.Code + "] " + e.Cause.Error()
}

func (e *CodedError) Unwrap() error { return e.Cause }

// GetCode 返回错误链上最外层的错误码，没有则为空
func GetCode(err error) string {
	var ce *CodedError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// Must 用于启动阶段，err 非 nil 时 panic
func Must[T any](v T, err error) T {
	if err != nil {
		panic("must: " + err.Error())
	}
	return v
}

// Collector 依次执行多个可能失败的步骤时记录第一个错误
type Collector struct {
	err error
}

func (c *Collector) Collect(err error) {
	if c.err == nil {
		c.err = err
	}
}

func (c *Collector) Err() error { return c.err }

// MultiError 由 Combine 产生，Is/As 会遍历其中每个错误
type MultiError struct {
	Errors []error
}

func (m *MultiError) Error() string {
	switch len(m.Errors) {
	case 0:
		return "no errors"
	case 1:
		return m.Errors[0].Error()
	}
	var b strings.Builder
	b.WriteString(m.Errors[0].Error())
	fmt.Fprintf(&b, " (and %d more errors)", len(m.Errors)-1)
	return b.String()
}

func (m *MultiError) Unwrap() []error { return m.Errors }

// Combine 丢弃 nil；只剩一个时原样返回，多个时合并为 *MultiError
func Combine(errs ...error) error {
	var kept []error
	for _, err := range errs {
		if err != nil {
			kept = append(kept, err)
		}
	}
	if len(kept) <= 1 {
		if len(kept) == 0 {
			return nil
		}
		return kept[0]
	}
	return &MultiError{Errors: kept}
}
