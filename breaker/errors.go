package breaker

import "github.com/ceyewan/flake/xerrors"

var (
	ErrConfigNil     = xerrors.New("breaker: config is nil")
	ErrInvalidConfig = xerrors.WithCode(xerrors.ErrInvalidInput, "BREAKER_INVALID")
	ErrKeyEmpty      = xerrors.New("breaker: key is empty")
	// ErrOpenState 熔断打开，或半开时探测名额已用完
	ErrOpenState = xerrors.New("breaker: circuit is open")
)
