package lastid

// Metrics 指标常量定义
const (
	// MetricWriteTotal 写入次数，按 driver 与 outcome 区分 (Counter)
	MetricWriteTotal = "lastid_write_total"

	// MetricWriteDuration 写入耗时 (Histogram)
	MetricWriteDuration = "lastid_write_duration_seconds"
)
