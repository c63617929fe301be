// Package breaker 基于 gobreaker 为每个键维护一个独立的熔断器。
//
// lastid 用驱动名作为键保护网络型存储：后端持续失败时 Do 直接返回 ErrOpenState，
// ID 生成不再每次都等到写入超时。
//
//	brk, _ := breaker.New(&breaker.Config{Timeout: 30 * time.Second}, breaker.WithLogger(logger))
//	err := brk.Do(ctx, "redis", func() error {
//		return client.Set(ctx, key, value, 0).Err()
//	})
package breaker

import (
	"context"
	"sync"

	"github.com/sony/gobreaker/v2"

	"github.com/ceyewan/flake/clog"
	"github.com/ceyewan/flake/metrics"
	"github.com/ceyewan/flake/xerrors"
)

const (
	MetricRejects      = "breaker_rejects_total"
	MetricTransitions  = "breaker_state_changes_total"
	labelKey           = "key"
	labelFrom, labelTo = "from_state", "to_state"
)

// Breaker 按键熔断。未出现过的键视为闭合
type Breaker interface {
	Do(ctx context.Context, key string, fn func() error) error
	State(key string) (State, error)
}

// State 熔断状态
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

var stateNames = map[State]string{
	StateClosed:   "closed",
	StateHalfOpen: "half_open",
	StateOpen:     "open",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "unknown"
}

func stateOf(s gobreaker.State) State {
	switch s {
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	}
	return StateClosed
}

type keyed struct {
	cfg    Config
	logger clog.Logger

	rejects     metrics.Counter
	transitions metrics.Counter

	mu       sync.Mutex
	circuits map[string]*gobreaker.CircuitBreaker[struct{}]
}

// New cfg 不可为 nil，零值字段取默认值
func New(cfg *Config, opts ...Option) (Breaker, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}
	c := *cfg
	c.setDefaults()
	if err := c.validate(); err != nil {
		return nil, err
	}
	o := applyOptions(opts)

	k := &keyed{
		cfg:      c,
		logger:   o.logger,
		circuits: make(map[string]*gobreaker.CircuitBreaker[struct{}]),
	}
	var err error
	if k.rejects, err = o.meter.Counter(MetricRejects, "Calls rejected by an open circuit"); err != nil {
		return nil, xerrors.Wrap(err, "breaker: rejects counter")
	}
	if k.transitions, err = o.meter.Counter(MetricTransitions, "Circuit state transitions"); err != nil {
		return nil, xerrors.Wrap(err, "breaker: transitions counter")
	}

	k.logger.Info("circuit breaker ready",
		clog.Duration("open_timeout", c.Timeout),
		clog.Float64("failure_ratio", c.FailureRatio),
		clog.Int("minimum_requests", int(c.MinimumRequests)),
	)
	return k, nil
}

// Do 执行 fn。熔断打开或半开探测名额已满时不调用 fn，返回包装了 ErrOpenState 的错误
func (k *keyed) Do(ctx context.Context, key string, fn func() error) error {
	if key == "" {
		return ErrKeyEmpty
	}
	_, err := k.circuit(key).Execute(func() (struct{}, error) {
		return struct{}{}, fn()
	})
	if xerrors.Is(err, gobreaker.ErrOpenState) || xerrors.Is(err, gobreaker.ErrTooManyRequests) {
		k.rejects.Inc(ctx, metrics.L(labelKey, key))
		return xerrors.Wrapf(ErrOpenState, "key %s", key)
	}
	return err
}

func (k *keyed) State(key string) (State, error) {
	if key == "" {
		return StateClosed, ErrKeyEmpty
	}
	k.mu.Lock()
	cb, ok := k.circuits[key]
	k.mu.Unlock()
	if !ok {
		return StateClosed, nil
	}
	return stateOf(cb.State()), nil
}

func (k *keyed) circuit(key string) *gobreaker.CircuitBreaker[struct{}] {
	k.mu.Lock()
	defer k.mu.Unlock()
	if cb, ok := k.circuits[key]; ok {
		return cb
	}
	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        key,
		MaxRequests: k.cfg.MaxRequests,
		Interval:    k.cfg.Interval,
		Timeout:     k.cfg.Timeout,
		ReadyToTrip: k.cfg.tripped,
		// 调用方自己取消的请求不计入失败
		IsSuccessful: func(err error) bool {
			return err == nil || xerrors.Is(err, context.Canceled)
		},
		OnStateChange: k.transition,
	})
	k.circuits[key] = cb
	return cb
}

func (k *keyed) transition(key string, from, to gobreaker.State) {
	f, t := stateOf(from).String(), stateOf(to).String()
	k.transitions.Inc(context.Background(),
		metrics.L(labelKey, key), metrics.L(labelFrom, f), metrics.L(labelTo, t))
	k.logger.Warn("circuit state changed", clog.String("key", key), clog.String("from", f), clog.String("to", t))
}
