package ratelimit

import "github.com/ceyewan/flake/xerrors"

// 错误定义
var (
	// ErrConfigNil 配置为空
	ErrConfigNil = xerrors.New("ratelimit: config is nil")

	// ErrInvalidConfig 配置取值非法
	ErrInvalidConfig = xerrors.WithCode(xerrors.ErrInvalidInput, "RATELIMIT_INVALID")

	// ErrConnectorNil redis 模式缺少连接器
	ErrConnectorNil = xerrors.New("ratelimit: connector is nil")

	// ErrKeyEmpty 限流键为空
	ErrKeyEmpty = xerrors.New("ratelimit: key is empty")

	// ErrInvalidLimit 限流规则或申请数量无效
	ErrInvalidLimit = xerrors.New("ratelimit: invalid limit")
)
