package lastid

import (
	"time"

	"github.com/ceyewan/flake/breaker"
	"github.com/ceyewan/flake/xerrors"
)

const (
	DefaultPath   = "./lastId.txt"
	DefaultKey    = "flake.last_id"
	DefaultBucket = "flake"
	DefaultTopic  = "flake.last_id"
)

// ========================================
// 配置结构 (Configuration)
// ========================================

// Config 最近 ID 存储配置
//
//	lastid:
//	  driver: redis
//	  key: flake.last_id
//	  timeout: 2s
//	  breaker:
//	    timeout: 30s
//	    failure_ratio: 0.6
type Config struct {
	// Driver file | memory | redis | etcd | mysql | sqlite | nats | kafka，默认 file
	Driver string `mapstructure:"driver"`

	// Path file 驱动的文件路径，默认 ./lastId.txt
	Path string `mapstructure:"path"`

	// Key 记录名：Redis/Etcd 键、SQL 行主键、NATS KV 键、Kafka 消息键。
	// 默认 flake.last_id，只使用 NATS KV 允许的字符
	Key string `mapstructure:"key"`

	// Bucket nats 驱动的 KV bucket，默认 flake
	Bucket string `mapstructure:"bucket"`

	// Topic kafka 驱动的主题，建议配置为 compacted，默认 flake.last_id
	Topic string `mapstructure:"topic"`

	// Timeout 网络型驱动单次写入的超时，默认 2s
	Timeout time.Duration `mapstructure:"timeout"`

	// Breaker 网络型驱动的熔断配置，为空时不启用熔断
	Breaker *breaker.Config `mapstructure:"breaker"`
}

func (c *Config) setDefaults() {
	if c.Driver == "" {
		c.Driver = DriverFile
	}
	if c.Path == "" {
		c.Path = DefaultPath
	}
	if c.Key == "" {
		c.Key = DefaultKey
	}
	if c.Bucket == "" {
		c.Bucket = DefaultBucket
	}
	if c.Topic == "" {
		c.Topic = DefaultTopic
	}
	if c.Timeout == 0 {
		c.Timeout = 2 * time.Second
	}
}

func (c *Config) validate() error {
	switch c.Driver {
	case DriverFile, DriverMemory, DriverRedis, DriverEtcd, DriverMySQL, DriverSQLite, DriverNATS, DriverKafka:
	default:
		return unsupportedDriver(c.Driver)
	}
	if c.Timeout < 0 {
		return xerrors.WithCode(ErrInvalidInput, "timeout_negative")
	}
	return nil
}

// target 日志中展示的写入目标
func (c *Config) target() string {
	switch c.Driver {
	case DriverFile:
		return c.Path
	case DriverMemory:
		return "memory"
	case DriverNATS:
		return c.Bucket + "/" + c.Key
	case DriverKafka:
		return c.Topic + "/" + c.Key
	default:
		return c.Key
	}
}
