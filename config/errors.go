package config

import "github.com/ceyewan/flake/xerrors"

// ErrValidationFailed 验证失败
var ErrValidationFailed = xerrors.WithCode(xerrors.ErrInvalidInput, "CONFIG_INVALID")

// IsInvalidInput 检查错误是否为配置格式无效或验证失败
func IsInvalidInput(err error) bool {
	return xerrors.Is(err, xerrors.ErrInvalidInput)
}
