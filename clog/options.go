package clog

import "io"

// ContextField 描述一条从 Context 取值写入日志的规则
type ContextField struct {
	Key       any
	FieldName string
}

// Option 配置 Logger 实例
type Option func(*options)

type options struct {
	namespace []string
	ctxFields []ContextField
	// sink 仅在 Output 为 "buffer" 时使用
	sink io.Writer
}

// WithNamespace 追加命名空间层级，输出时以 "." 连接，如 clog.WithNamespace("flaked", "http")
func WithNamespace(parts ...string) Option {
	return func(o *options) { o.namespace = append(o.namespace, parts...) }
}

// WithContextField 记录 ctx.Value(key)，字段名为 fieldName
func WithContextField(key any, fieldName string) Option {
	return func(o *options) {
		o.ctxFields = append(o.ctxFields, ContextField{Key: key, FieldName: fieldName})
	}
}

// WithStandardContext 记录 trace_id、request_id 和 user_id
func WithStandardContext() Option {
	return func(o *options) {
		for _, k := range []string{"trace_id", "request_id", "user_id"} {
			o.ctxFields = append(o.ctxFields, ContextField{Key: k, FieldName: k})
		}
	}
}

func applyOptions(opts ...Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
