package auth

const (
	// MetricTokensValidated 令牌校验计数，标签: status, error_type
	MetricTokensValidated = "auth_tokens_validated_total"

	LabelStatus    = "status"
	LabelErrorType = "error_type"
)
