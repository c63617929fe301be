package connector

import (
	"context"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"github.com/redis/go-redis/v9/maintnotifications"

	"github.com/ceyewan/flake/clog"
	"github.com/ceyewan/flake/xerrors"
)

// NewRedis 只校验配置，Connect 时才拨号
func NewRedis(cfg *RedisConfig, opts ...Option) (RedisConnector, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	o := applyOptions(opts)
	c, err := newConn(cfg.Name, o, driver[*redis.Client]{
		kind:   "redis",
		target: clog.String("addr", cfg.Addr),
		dial: func(context.Context) (*redis.Client, error) {
			client := redis.NewClient(&redis.Options{
				Addr:         cfg.Addr,
				Password:     cfg.Password,
				DB:           cfg.DB,
				PoolSize:     cfg.PoolSize,
				MinIdleConns: cfg.MinIdleConns,
				DialTimeout:  cfg.DialTimeout,
				ReadTimeout:  cfg.ReadTimeout,
				WriteTimeout: cfg.WriteTimeout,
				// 不订阅集群维护通知
				MaintNotificationsConfig: &maintnotifications.Config{Mode: maintnotifications.ModeDisabled},
			})
			if o.tracing {
				if err := redisotel.InstrumentTracing(client); err != nil {
					_ = client.Close()
					return nil, xerrors.Wrap(err, "redis tracing")
				}
			}
			return client, nil
		},
		probe: func(ctx context.Context, client *redis.Client) error {
			return client.Ping(ctx).Err()
		},
		release: func(client *redis.Client) error { return client.Close() },
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}
