// Package app 装配 flaked 的各个组件并负责它们的逆序关闭。
// 顺序为日志、链路追踪、指标、连接器、最近 ID 存储、生成器、限流、认证、HTTP 服务。
package app

import (
	"context"
	"time"

	"github.com/ceyewan/flake/auth"
	"github.com/ceyewan/flake/clog"
	"github.com/ceyewan/flake/config"
	"github.com/ceyewan/flake/idgen"
	"github.com/ceyewan/flake/internal/server"
	"github.com/ceyewan/flake/lastid"
	"github.com/ceyewan/flake/metrics"
	"github.com/ceyewan/flake/ratelimit"
	"github.com/ceyewan/flake/trace"
	"github.com/ceyewan/flake/xerrors"
)

const shutdownTimeout = 10 * time.Second

// Shutdown 逆序执行的清理函数
type Shutdown func(context.Context) error

// App 装配完成的服务
type App struct {
	Logger    clog.Logger
	Meter     metrics.Meter
	Generator *idgen.Generator
	Store     lastid.Store
	Server    *server.Server

	shutdowns []Shutdown
}

// New 按配置装配所有组件。任何一步失败都会回滚已创建的资源
func New(ctx context.Context, cfg *Config) (_ *App, err error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	a := &App{}
	defer func() {
		if err != nil {
			a.Close(context.WithoutCancel(ctx))
		}
	}()

	a.Logger, err = clog.New(&cfg.Log, clog.WithNamespace(ServiceName), clog.WithStandardContext())
	if err != nil {
		return nil, xerrors.Wrap(err, "init logger")
	}

	traceShutdown, err := trace.Setup(&cfg.Trace)
	if err != nil {
		return nil, xerrors.Wrap(err, "init trace")
	}
	a.onClose(func(ctx context.Context) error { return traceShutdown(ctx) })

	a.Meter, err = metrics.New(&cfg.Metrics, metrics.WithLogger(a.Logger))
	if err != nil {
		return nil, xerrors.Wrap(err, "init metrics")
	}
	a.onClose(a.Meter.Shutdown)

	conns := newConnectorSet(&cfg.Connectors, a.Logger, a.Meter)
	a.onClose(func(context.Context) error { return conns.Close() })

	storeOpts, err := conns.lastidOptions(ctx, cfg.LastID.Driver)
	if err != nil {
		return nil, err
	}
	a.Store, err = lastid.New(&cfg.LastID,
		append(storeOpts, lastid.WithLogger(a.Logger), lastid.WithMeter(a.Meter))...)
	if err != nil {
		return nil, xerrors.Wrap(err, "init lastid store")
	}
	a.onClose(func(context.Context) error { return a.Store.Close() })

	a.Generator, err = idgen.New(&cfg.IDGen,
		idgen.WithLogger(a.Logger),
		idgen.WithMeter(a.Meter),
		idgen.WithStore(a.Store),
	)
	if err != nil {
		return nil, xerrors.Wrap(err, "init generator")
	}

	serverOpts := []server.Option{server.WithLogger(a.Logger), server.WithMeter(a.Meter)}
	for name, check := range conns.healthChecks() {
		serverOpts = append(serverOpts, server.WithHealthCheck(name, check))
	}

	if cfg.RateLimit.Enabled {
		limiterOpts := []ratelimit.Option{ratelimit.WithLogger(a.Logger), ratelimit.WithMeter(a.Meter)}
		if cfg.RateLimit.Mode == ratelimit.ModeRedis {
			redisConn, err := conns.redis(ctx)
			if err != nil {
				return nil, err
			}
			limiterOpts = append(limiterOpts, ratelimit.WithRedisConnector(redisConn))
		}
		limiter, err := ratelimit.New(&cfg.RateLimit, limiterOpts...)
		if err != nil {
			return nil, xerrors.Wrap(err, "init rate limiter")
		}
		a.onClose(func(context.Context) error { return limiter.Close() })
		serverOpts = append(serverOpts, server.WithRateLimiter(limiter))
	}

	if cfg.Auth.Enabled {
		authn, err := auth.New(&cfg.Auth, auth.WithLogger(a.Logger), auth.WithMeter(a.Meter))
		if err != nil {
			return nil, xerrors.Wrap(err, "init auth")
		}
		serverOpts = append(serverOpts, server.WithAuthenticator(authn))
	}

	a.Server, err = server.New(&cfg.HTTP, a.Generator, serverOpts...)
	if err != nil {
		return nil, xerrors.Wrap(err, "init http server")
	}
	return a, nil
}

// Run 启动 HTTP 服务直到 ctx 取消，随后关闭所有组件
func (a *App) Run(ctx context.Context) error {
	identity := a.Generator.Identity()
	a.Logger.Info("flaked started",
		clog.String("method", a.Generator.Method()),
		clog.Int64("worker_id", identity.WorkerID),
		clog.Int64("datacenter_id", identity.DatacenterID),
	)

	err := a.Server.Run(ctx)
	a.Close(context.WithoutCancel(ctx))
	return err
}

// WatchLogLevel 配置文件中 log.level 变化时动态调整日志级别
func (a *App) WatchLogLevel(ctx context.Context, loader config.Loader) error {
	events, err := loader.Watch(ctx, "log.level")
	if err != nil {
		return xerrors.Wrap(err, "watch log.level")
	}
	go func() {
		for ev := range events {
			raw, _ := ev.Value.(string)
			level, err := clog.ParseLevel(raw)
			if err != nil {
				a.Logger.Warn("ignore invalid log level", clog.String("level", raw), clog.Error(err))
				continue
			}
			if err := a.Logger.SetLevel(level); err != nil {
				a.Logger.Warn("set log level failed", clog.Error(err))
				continue
			}
			a.Logger.Info("log level changed", clog.String("level", raw))
		}
	}()
	return nil
}

// Close 逆序执行清理函数，可重复调用
func (a *App) Close(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	for i := len(a.shutdowns) - 1; i >= 0; i-- {
		if err := a.shutdowns[i](ctx); err != nil && a.Logger != nil {
			a.Logger.Warn("shutdown step failed", clog.Error(err))
		}
	}
	a.shutdowns = nil
	if a.Logger != nil {
		a.Logger.Flush()
	}
}

func (a *App) onClose(fn Shutdown) {
	a.shutdowns = append(a.shutdowns, fn)
}
