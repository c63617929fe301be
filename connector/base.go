package connector

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/ceyewan/flake/clog"
	"github.com/ceyewan/flake/metrics"
	"github.com/ceyewan/flake/xerrors"
)

const (
	metricConnectAttempts = "connector_connect_attempts_total"
	metricHealthy         = "connector_healthy"
)

// driver 描述一种后端：如何建立客户端、如何探活、如何释放
type driver[T comparable] struct {
	kind    string
	target  clog.Field
	dial    func(ctx context.Context) (T, error)
	probe   func(ctx context.Context, client T) error
	release func(client T) error
}

// conn 为所有后端实现 TypedConnector，客户端的零值表示未连接
type conn[T comparable] struct {
	driver[T]
	name    string
	logger  clog.Logger
	tracing bool
	healthy atomic.Bool

	mu     sync.RWMutex
	client T

	attempts metrics.Counter
	health   metrics.Gauge
}

func newConn[T comparable](name string, o *options, d driver[T]) (*conn[T], error) {
	attempts, err := o.meter.Counter(metricConnectAttempts, "Connection attempts by connector and outcome")
	if err != nil {
		return nil, xerrors.Wrap(err, "connector: attempts counter")
	}
	health, err := o.meter.Gauge(metricHealthy, "1 when the last health probe succeeded")
	if err != nil {
		return nil, xerrors.Wrap(err, "connector: healthy gauge")
	}
	return &conn[T]{
		driver:   d,
		name:     name,
		logger:   o.logger.With(clog.String("connector", d.kind), clog.String("name", name)),
		tracing:  o.tracing,
		attempts: attempts,
		health:   health,
	}, nil
}

// Connect 已连接时直接返回；dial 成功但 probe 失败的客户端会被释放
func (c *conn[T]) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	if c.client != zero {
		return nil
	}

	c.logger.Info("connecting", c.target)
	client, err := c.dial(ctx)
	if err == nil {
		if err = c.probe(ctx, client); err != nil {
			_ = c.release(client)
		}
	}
	c.attempts.Inc(ctx, c.labels(metrics.L(metrics.LabelOutcome, metrics.Outcome(err)))...)
	if err != nil {
		c.setHealthy(ctx, false)
		c.logger.Error("connect failed", clog.Error(err))
		return xerrors.Wrapf(xerrors.Join(ErrConnection, err), "%s connector[%s]", c.kind, c.name)
	}

	c.client = client
	c.setHealthy(ctx, true)
	c.logger.Info("connected")
	return nil
}

func (c *conn[T]) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.setHealthy(context.Background(), false)
	var zero T
	if c.client == zero {
		return nil
	}
	client := c.client
	c.client = zero
	if err := c.release(client); err != nil {
		c.logger.Error("close failed", clog.Error(err))
		return xerrors.Wrapf(err, "%s connector[%s]: close", c.kind, c.name)
	}
	c.logger.Info("connection closed")
	return nil
}

func (c *conn[T]) HealthCheck(ctx context.Context) error {
	client := c.GetClient()
	var zero T
	if client == zero {
		c.healthy.Store(false)
		return xerrors.Wrapf(ErrNotConnected, "%s connector[%s]", c.kind, c.name)
	}
	if err := c.probe(ctx, client); err != nil {
		c.setHealthy(ctx, false)
		c.logger.Warn("health check failed", clog.Error(err))
		return xerrors.Wrapf(xerrors.Join(ErrHealthCheck, err), "%s connector[%s]", c.kind, c.name)
	}
	c.setHealthy(ctx, true)
	return nil
}

func (c *conn[T]) GetClient() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client
}

func (c *conn[T]) IsHealthy() bool { return c.healthy.Load() }
func (c *conn[T]) Name() string    { return c.name }

func (c *conn[T]) labels(extra ...metrics.Label) []metrics.Label {
	return append([]metrics.Label{metrics.L("connector", c.kind), metrics.L("name", c.name)}, extra...)
}

func (c *conn[T]) setHealthy(ctx context.Context, ok bool) {
	c.healthy.Store(ok)
	var v float64
	if ok {
		v = 1
	}
	c.health.Set(ctx, v, c.labels()...)
}
