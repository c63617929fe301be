// Package connector 管理 flake 各存储驱动使用的外部连接（Redis、Etcd、MySQL、
// SQLite、NATS、Kafka）。
//
// NewXXX 只校验配置，Connect 才真正建立连接，且可重复调用。
// Connector 拥有底层客户端的生命周期；lastid 等组件只借用客户端，不负责 Close。
//
//	conn, err := connector.NewRedis(&connector.RedisConfig{Addr: "127.0.0.1:6379"},
//		connector.WithLogger(logger), connector.WithTracing())
//	if err != nil {
//		return err
//	}
//	defer conn.Close()
//	if err := conn.Connect(ctx); err != nil {
//		return err
//	}
//	store, err := lastid.New(cfg, lastid.WithRedisConnector(conn))
package connector

import (
	"context"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/twmb/franz-go/pkg/kgo"
	clientv3 "go.etcd.io/etcd/client/v3"
	"gorm.io/gorm"
)

// Connector 定义所有连接器的通用行为，方法均并发安全
type Connector interface {
	// Connect 建立连接，幂等
	Connect(ctx context.Context) error

	// Close 关闭连接并释放资源，幂等。关闭后 GetClient 返回 nil
	Close() error

	// HealthCheck 主动探测连接并刷新 IsHealthy 的缓存结果
	HealthCheck(ctx context.Context) error

	// IsHealthy 返回最近一次探测的结果，不阻塞
	IsHealthy() bool

	// Name 连接实例名称，用于日志和指标
	Name() string
}

// TypedConnector 提供类型安全的客户端访问
type TypedConnector[T any] interface {
	Connector

	// GetClient 返回底层客户端，Connect 之前或 Close 之后为零值
	GetClient() T
}

// RedisConnector Redis 连接器
type RedisConnector interface {
	TypedConnector[*redis.Client]
}

// MySQLConnector MySQL 连接器，基于 GORM
type MySQLConnector interface {
	TypedConnector[*gorm.DB]
}

// SQLiteConnector SQLite 连接器，基于 GORM，支持内存库
type SQLiteConnector interface {
	TypedConnector[*gorm.DB]
}

// EtcdConnector Etcd 连接器
type EtcdConnector interface {
	TypedConnector[*clientv3.Client]
}

// NATSConnector NATS 连接器，内置自动重连
type NATSConnector interface {
	TypedConnector[*nats.Conn]
}

// KafkaConnector Kafka 连接器，基于 franz-go
type KafkaConnector interface {
	TypedConnector[*kgo.Client]
}
