// Package lastid 保存生成器最近一次签发的 ID，供外部审计和排障查看。
//
// 记录格式在所有后端中一致：ID 的十进制字符串，UTF-8，无任何附加结构，
// 单个值反复覆盖。生成器只写不读，Read 仅用于检查，进程重启时不会据此恢复状态。
//
//	store, err := lastid.New(&lastid.Config{Driver: lastid.DriverRedis},
//	    lastid.WithRedisConnector(redisConn),
//	    lastid.WithLogger(logger),
//	    lastid.WithMeter(meter),
//	)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//	gen, err := idgen.New(cfg, idgen.WithStore(store))
package lastid

import (
	"context"

	"github.com/ceyewan/flake/breaker"
	"github.com/ceyewan/flake/clog"
)

// ========================================
// 接口定义 (Interface Definitions)
// ========================================

// Store 最近 ID 的存储后端，方法并发安全
type Store interface {
	// Write 覆盖写入最近 ID
	Write(ctx context.Context, id uint64) error

	// Read 读取当前值，尚未写入时返回 ErrNotFound
	Read(ctx context.Context) (uint64, error)

	// Close 释放存储自身的资源。连接器由调用方管理，不会被关闭
	Close() error
}

// 支持的驱动
const (
	DriverFile   = "file"
	DriverMemory = "memory"
	DriverRedis  = "redis"
	DriverEtcd   = "etcd"
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
	DriverNATS   = "nats"
	DriverKafka  = "kafka"
)

// ========================================
// 工厂函数 (Factory Functions)
// ========================================

// New 按 cfg.Driver 创建存储。网络型驱动需要通过对应的 WithXXXConnector 传入
// 已连接的连接器，并自动加上超时与熔断保护；所有驱动都带有指标与 Span
func New(cfg *Config, opts ...Option) (Store, error) {
	c := Config{}
	if cfg != nil {
		c = *cfg
	}
	c.setDefaults()
	if err := c.validate(); err != nil {
		return nil, err
	}

	o := applyOptions(opts)
	logger := o.logger.With(clog.String("driver", c.Driver))

	store, err := newDriver(&c, o, logger)
	if err != nil {
		return nil, err
	}

	if isNetworkDriver(c.Driver) {
		var brk breaker.Breaker
		if c.Breaker != nil {
			brk, err = breaker.New(c.Breaker, breaker.WithLogger(o.logger), breaker.WithMeter(o.meter))
			if err != nil {
				return nil, err
			}
		}
		store = Guard(store, c.Driver, c.Timeout, brk)
	}

	store, err = Instrument(store, c.Driver, o.meter)
	if err != nil {
		return nil, err
	}

	logger.Info("last id store created", clog.String("target", c.target()))
	return store, nil
}

func newDriver(c *Config, o *options, logger clog.Logger) (Store, error) {
	switch c.Driver {
	case DriverFile:
		return NewFile(c.Path)
	case DriverMemory:
		return NewMemory(), nil
	case DriverRedis:
		return newRedis(o.redis, c.Key)
	case DriverEtcd:
		return newEtcd(o.etcd, c.Key)
	case DriverMySQL:
		return newGorm(o.mysql, c.Key, logger)
	case DriverSQLite:
		return newGorm(o.sqlite, c.Key, logger)
	case DriverNATS:
		return newNATS(o.nats, c.Bucket, c.Key)
	case DriverKafka:
		return newKafka(o.kafka, c.Topic, c.Key)
	default:
		return nil, unsupportedDriver(c.Driver)
	}
}

func isNetworkDriver(driver string) bool {
	switch driver {
	case DriverFile, DriverMemory, DriverSQLite:
		return false
	default:
		return true
	}
}
