package app

import (
	"context"

	"github.com/ceyewan/flake/clog"
	"github.com/ceyewan/flake/connector"
	"github.com/ceyewan/flake/internal/server"
	"github.com/ceyewan/flake/lastid"
	"github.com/ceyewan/flake/metrics"
	"github.com/ceyewan/flake/xerrors"
)

// connectorSet 按需建立连接，同一种连接器只创建一次
type connectorSet struct {
	cfg    *Connectors
	logger clog.Logger
	meter  metrics.Meter

	opened    []opened
	redisConn connector.RedisConnector
}

type opened struct {
	kind string
	conn connector.Connector
}

func newConnectorSet(cfg *Connectors, logger clog.Logger, meter metrics.Meter) *connectorSet {
	return &connectorSet{cfg: cfg, logger: logger, meter: meter}
}

func (s *connectorSet) options() []connector.Option {
	return []connector.Option{
		connector.WithLogger(s.logger),
		connector.WithMeter(s.meter),
		connector.WithTracing(),
	}
}

func (s *connectorSet) connect(ctx context.Context, kind string, conn connector.Connector, err error) error {
	if err != nil {
		return xerrors.Wrapf(err, "create %s connector", kind)
	}
	if err := conn.Connect(ctx); err != nil {
		_ = conn.Close()
		return xerrors.Wrapf(err, "connect %s", conn.Name())
	}
	s.opened = append(s.opened, opened{kind: kind, conn: conn})
	return nil
}

func (s *connectorSet) redis(ctx context.Context) (connector.RedisConnector, error) {
	if s.redisConn != nil {
		return s.redisConn, nil
	}
	conn, err := connector.NewRedis(&s.cfg.Redis, s.options()...)
	if err := s.connect(ctx, "redis", conn, err); err != nil {
		return nil, err
	}
	s.redisConn = conn
	return conn, nil
}

// lastidOptions 为 driver 建立所需的连接器，本地驱动不需要连接
func (s *connectorSet) lastidOptions(ctx context.Context, driver string) ([]lastid.Option, error) {
	switch driver {
	case lastid.DriverRedis:
		conn, err := s.redis(ctx)
		if err != nil {
			return nil, err
		}
		return []lastid.Option{lastid.WithRedisConnector(conn)}, nil

	case lastid.DriverEtcd:
		conn, err := connector.NewEtcd(&s.cfg.Etcd, s.options()...)
		if err := s.connect(ctx, "etcd", conn, err); err != nil {
			return nil, err
		}
		return []lastid.Option{lastid.WithEtcdConnector(conn)}, nil

	case lastid.DriverMySQL:
		conn, err := connector.NewMySQL(&s.cfg.MySQL, s.options()...)
		if err := s.connect(ctx, "mysql", conn, err); err != nil {
			return nil, err
		}
		return []lastid.Option{lastid.WithMySQLConnector(conn)}, nil

	case lastid.DriverSQLite:
		conn, err := connector.NewSQLite(&s.cfg.SQLite, s.options()...)
		if err := s.connect(ctx, "sqlite", conn, err); err != nil {
			return nil, err
		}
		return []lastid.Option{lastid.WithSQLiteConnector(conn)}, nil

	case lastid.DriverNATS:
		conn, err := connector.NewNATS(&s.cfg.NATS, s.options()...)
		if err := s.connect(ctx, "nats", conn, err); err != nil {
			return nil, err
		}
		return []lastid.Option{lastid.WithNATSConnector(conn)}, nil

	case lastid.DriverKafka:
		conn, err := connector.NewKafka(&s.cfg.Kafka, s.options()...)
		if err := s.connect(ctx, "kafka", conn, err); err != nil {
			return nil, err
		}
		return []lastid.Option{lastid.WithKafkaConnector(conn)}, nil
	}
	return nil, nil
}

// healthChecks 每个已建立的连接器对应一项 /healthz 探测
func (s *connectorSet) healthChecks() map[string]server.HealthCheck {
	checks := make(map[string]server.HealthCheck, len(s.opened))
	for _, o := range s.opened {
		checks[o.kind+":"+o.conn.Name()] = o.conn.HealthCheck
	}
	return checks
}

// Close 逆序关闭所有连接器
func (s *connectorSet) Close() error {
	var errs xerrors.Collector
	for i := len(s.opened) - 1; i >= 0; i-- {
		errs.Collect(s.opened[i].conn.Close())
	}
	s.opened = nil
	return errs.Err()
}
