package lastid

import (
	"github.com/ceyewan/flake/clog"
	"github.com/ceyewan/flake/connector"
	"github.com/ceyewan/flake/metrics"
)

// Option 组件初始化选项函数
type Option func(*options)

type options struct {
	logger clog.Logger
	meter  metrics.Meter

	redis  connector.RedisConnector
	etcd   connector.EtcdConnector
	mysql  connector.MySQLConnector
	sqlite connector.SQLiteConnector
	nats   connector.NATSConnector
	kafka  connector.KafkaConnector
}

// WithLogger 设置 Logger，自动追加 "lastid" 命名空间
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger.WithNamespace("lastid")
		}
	}
}

// WithMeter 设置 Meter
func WithMeter(meter metrics.Meter) Option {
	return func(o *options) {
		if meter != nil {
			o.meter = meter
		}
	}
}

// WithRedisConnector redis 驱动使用的连接器
func WithRedisConnector(conn connector.RedisConnector) Option {
	return func(o *options) { o.redis = conn }
}

// WithEtcdConnector etcd 驱动使用的连接器
func WithEtcdConnector(conn connector.EtcdConnector) Option {
	return func(o *options) { o.etcd = conn }
}

// WithMySQLConnector mysql 驱动使用的连接器
func WithMySQLConnector(conn connector.MySQLConnector) Option {
	return func(o *options) { o.mysql = conn }
}

// WithSQLiteConnector sqlite 驱动使用的连接器
func WithSQLiteConnector(conn connector.SQLiteConnector) Option {
	return func(o *options) { o.sqlite = conn }
}

// WithNATSConnector nats 驱动使用的连接器，服务端需开启 JetStream
func WithNATSConnector(conn connector.NATSConnector) Option {
	return func(o *options) { o.nats = conn }
}

// WithKafkaConnector kafka 驱动使用的连接器
func WithKafkaConnector(conn connector.KafkaConnector) Option {
	return func(o *options) { o.kafka = conn }
}

func applyOptions(opts []Option) *options {
	o := &options{
		logger: clog.Discard(),
		meter:  metrics.Discard(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
