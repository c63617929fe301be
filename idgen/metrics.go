package idgen

// Metrics 指标常量定义
const (
	// MetricSnowflakeGenerated 雪花 ID 生成总数 (Counter)
	MetricSnowflakeGenerated = "idgen_snowflake_generated_total"

	// MetricClockRegressions 检测到时钟回拨的次数 (Counter)
	MetricClockRegressions = "idgen_clock_regressions_total"

	// MetricSequenceExhausted 单毫秒序列号耗尽、需要等待下一毫秒的次数 (Counter)
	MetricSequenceExhausted = "idgen_sequence_exhausted_total"

	// MetricPersistFailures 持久化最近 ID 失败的次数 (Counter)
	MetricPersistFailures = "idgen_persist_failures_total"
)
