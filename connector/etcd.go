package connector

import (
	"context"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/ceyewan/flake/clog"
)

// NewEtcd clientv3.New 不等待连接就绪，探活改用第一个 endpoint 的 Status
func NewEtcd(cfg *EtcdConfig, opts ...Option) (EtcdConnector, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	c, err := newConn(cfg.Name, applyOptions(opts), driver[*clientv3.Client]{
		kind:   "etcd",
		target: clog.Any("endpoints", cfg.Endpoints),
		dial: func(context.Context) (*clientv3.Client, error) {
			return clientv3.New(clientv3.Config{
				Endpoints:            cfg.Endpoints,
				Username:             cfg.Username,
				Password:             cfg.Password,
				DialTimeout:          cfg.DialTimeout,
				DialKeepAliveTime:    cfg.KeepAliveTime,
				DialKeepAliveTimeout: cfg.KeepAliveTimeout,
			})
		},
		probe: func(ctx context.Context, client *clientv3.Client) error {
			ctx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
			defer cancel()
			_, err := client.Status(ctx, cfg.Endpoints[0])
			return err
		},
		release: func(client *clientv3.Client) error { return client.Close() },
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}
