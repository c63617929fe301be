package connector

import (
	"context"

	"github.com/nats-io/nats.go"

	"github.com/ceyewan/flake/clog"
	"github.com/ceyewan/flake/xerrors"
)

// NewNATS 断线期间 nats.go 自行重连，健康标记随回调更新
func NewNATS(cfg *NATSConfig, opts ...Option) (NATSConnector, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	var c *conn[*nats.Conn]
	c, err := newConn(cfg.Name, applyOptions(opts), driver[*nats.Conn]{
		kind:   "nats",
		target: clog.String("url", cfg.URL),
		dial: func(context.Context) (*nats.Conn, error) {
			return nats.Connect(cfg.URL, natsOptions(cfg, func(up bool, detail clog.Field) {
				c.healthy.Store(up)
				if up {
					c.logger.Info("nats reconnected", detail)
				} else {
					c.logger.Warn("nats disconnected", detail)
				}
			})...)
		},
		probe: func(ctx context.Context, nc *nats.Conn) error {
			if s := nc.Status(); s != nats.CONNECTED {
				return xerrors.Wrapf(xerrors.ErrUnavailable, "nats status %s", s)
			}
			return nc.FlushWithContext(ctx)
		},
		release: func(nc *nats.Conn) error {
			nc.Close()
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func natsOptions(cfg *NATSConfig, onLink func(up bool, detail clog.Field)) []nats.Option {
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.Timeout(cfg.Timeout),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.PingInterval(cfg.PingInterval),
		nats.MaxPingsOutstanding(cfg.MaxPingsOut),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) { onLink(false, clog.Error(err)) }),
		nats.ReconnectHandler(func(nc *nats.Conn) { onLink(true, clog.String("url", nc.ConnectedUrl())) }),
	}
	if cfg.Username != "" && cfg.Password != "" {
		opts = append(opts, nats.UserInfo(cfg.Username, cfg.Password))
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}
	return opts
}
