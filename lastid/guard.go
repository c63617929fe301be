package lastid

import (
	"context"
	"time"

	"github.com/ceyewan/flake/breaker"
	"github.com/ceyewan/flake/xerrors"
)

// guarded 网络型驱动的保护层：单次写入超时 + 可选熔断
type guarded struct {
	Store
	key     string
	timeout time.Duration
	brk     breaker.Breaker
}

// Guard 包装 store，使写入在 timeout 内返回；brk 非空时后端持续失败会直接返回 ErrCircuitOpen
func Guard(store Store, key string, timeout time.Duration, brk breaker.Breaker) Store {
	return &guarded{Store: store, key: key, timeout: timeout, brk: brk}
}

func (s *guarded) Write(ctx context.Context, id uint64) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	if s.brk == nil {
		return s.Store.Write(ctx, id)
	}

	err := s.brk.Do(ctx, s.key, func() error {
		return s.Store.Write(ctx, id)
	})
	if xerrors.Is(err, breaker.ErrOpenState) {
		return xerrors.Join(ErrCircuitOpen, err)
	}
	return err
}

func (s *guarded) Read(ctx context.Context) (uint64, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.Store.Read(ctx)
}
