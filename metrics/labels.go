package metrics

import "strconv"

// 跨组件共用的标签名
const (
	LabelService     = "service"
	LabelMethod      = "method"
	LabelRoute       = "route"
	LabelStatusClass = "status_class"
	LabelOutcome     = "outcome"
	LabelDriver      = "driver"
)

// outcome 标签的取值
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// UnknownRoute 未命中路由的 route 取值
const UnknownRoute = "unknown"

// Label 指标标签。取值必须是有限集合，ID、key 之类不能作为标签
type Label struct {
	Key   string
	Value string
}

// L 构造标签
//
//	counter.Inc(ctx, metrics.L(metrics.LabelDriver, "redis"))
func L(key, value string) Label {
	return Label{Key: key, Value: value}
}

// HTTPStatusClass 2xx、4xx 这类状态码分组，越界时为 unknown
func HTTPStatusClass(status int) string {
	if status < 100 || status >= 600 {
		return "unknown"
	}
	return strconv.Itoa(status/100) + "xx"
}

// HTTPOutcome 1xx 到 3xx 记为成功
func HTTPOutcome(status int) string {
	if status >= 100 && status < 400 {
		return OutcomeSuccess
	}
	return OutcomeError
}

// Outcome err 为 nil 时记为成功
func Outcome(err error) string {
	if err == nil {
		return OutcomeSuccess
	}
	return OutcomeError
}
