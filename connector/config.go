package connector

import (
	"fmt"
	"time"

	"github.com/ceyewan/flake/xerrors"
)

// 未命名的连接器统一叫 default，日志和指标按名称区分实例
const defaultName = "default"

func configError(format string, args ...any) error {
	return xerrors.Wrapf(ErrConfig, format, args...)
}

// orDefault 零值字段取默认值
func orDefault[T comparable](field *T, value T) {
	var zero T
	if *field == zero {
		*field = value
	}
}

// RedisConfig 对应 connectors.redis
type RedisConfig struct {
	Name     string `mapstructure:"name"`
	Addr     string `mapstructure:"addr"` // host:port，必填
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	PoolSize     int           `mapstructure:"pool_size"`      // 10
	MinIdleConns int           `mapstructure:"min_idle_conns"` // 0
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`   // 5s
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`   // 3s
	WriteTimeout time.Duration `mapstructure:"write_timeout"`  // 3s
}

func (c *RedisConfig) validate() error {
	if c == nil {
		return configError("redis config is nil")
	}
	orDefault(&c.Name, defaultName)
	if c.PoolSize < 0 {
		c.PoolSize = 0
	}
	orDefault(&c.PoolSize, 10)
	orDefault(&c.DialTimeout, 5*time.Second)
	orDefault(&c.ReadTimeout, 3*time.Second)
	orDefault(&c.WriteTimeout, 3*time.Second)

	switch {
	case c.Addr == "":
		return configError("redis addr is required")
	case c.DB < 0:
		return configError("redis db %d is negative", c.DB)
	}
	return nil
}

// EtcdConfig 对应 connectors.etcd
type EtcdConfig struct {
	Name      string   `mapstructure:"name"`
	Endpoints []string `mapstructure:"endpoints"` // 必填
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`

	DialTimeout      time.Duration `mapstructure:"dial_timeout"`       // 5s
	KeepAliveTime    time.Duration `mapstructure:"keep_alive_time"`    // 10s
	KeepAliveTimeout time.Duration `mapstructure:"keep_alive_timeout"` // 3s
}

func (c *EtcdConfig) validate() error {
	if c == nil {
		return configError("etcd config is nil")
	}
	orDefault(&c.Name, defaultName)
	orDefault(&c.DialTimeout, 5*time.Second)
	orDefault(&c.KeepAliveTime, 10*time.Second)
	orDefault(&c.KeepAliveTimeout, 3*time.Second)
	if len(c.Endpoints) == 0 {
		return configError("etcd endpoints are required")
	}
	return nil
}

// MySQLConfig 对应 connectors.mysql。DSN 非空时忽略 Host 等拆分字段
type MySQLConfig struct {
	Name     string `mapstructure:"name"`
	DSN      string `mapstructure:"dsn"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"` // 3306
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	Charset  string `mapstructure:"charset"` // utf8mb4

	MaxIdleConns    int           `mapstructure:"max_idle_conns"`    // 10
	MaxOpenConns    int           `mapstructure:"max_open_conns"`    // 100
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"` // 1h
}

func (c *MySQLConfig) validate() error {
	if c == nil {
		return configError("mysql config is nil")
	}
	orDefault(&c.Name, defaultName)
	orDefault(&c.Port, 3306)
	orDefault(&c.Charset, "utf8mb4")
	orDefault(&c.MaxIdleConns, 10)
	orDefault(&c.MaxOpenConns, 100)
	orDefault(&c.ConnMaxLifetime, time.Hour)

	if c.DSN != "" {
		return nil
	}
	var missing string
	switch {
	case c.Host == "":
		missing = "host"
	case c.Username == "":
		missing = "username"
	case c.Database == "":
		missing = "database"
	case c.Port < 0:
		return configError("mysql port %d is negative", c.Port)
	default:
		return nil
	}
	return configError("mysql %s is required", missing)
}

// dsn 统一用 UTC 解析时间列
func (c *MySQLConfig) dsn() string {
	if c.DSN != "" {
		return c.DSN
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=UTC",
		c.Username, c.Password, c.Host, c.Port, c.Database, c.Charset)
}

// SQLiteConfig 对应 connectors.sqlite
type SQLiteConfig struct {
	Name string `mapstructure:"name"`
	// Path 文件路径；"file::memory:?cache=shared" 为进程内共享的内存库
	Path string `mapstructure:"path"`
}

func (c *SQLiteConfig) validate() error {
	if c == nil {
		return configError("sqlite config is nil")
	}
	orDefault(&c.Name, defaultName)
	if c.Path == "" {
		return configError("sqlite path is required")
	}
	return nil
}

// NATSConfig 对应 connectors.nats
type NATSConfig struct {
	Name     string `mapstructure:"name"`
	URL      string `mapstructure:"url"` // nats://host:4222，必填
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Token    string `mapstructure:"token"`

	Timeout       time.Duration `mapstructure:"timeout"`        // 5s
	MaxReconnects int           `mapstructure:"max_reconnects"` // 60
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"` // 2s
	PingInterval  time.Duration `mapstructure:"ping_interval"`  // 2m
	MaxPingsOut   int           `mapstructure:"max_pings_out"`  // 2
}

func (c *NATSConfig) validate() error {
	if c == nil {
		return configError("nats config is nil")
	}
	orDefault(&c.Name, defaultName)
	orDefault(&c.Timeout, 5*time.Second)
	orDefault(&c.MaxReconnects, 60)
	orDefault(&c.ReconnectWait, 2*time.Second)
	orDefault(&c.PingInterval, 2*time.Minute)
	orDefault(&c.MaxPingsOut, 2)
	if c.URL == "" {
		return configError("nats url is required")
	}
	return nil
}

// KafkaConfig 对应 connectors.kafka
type KafkaConfig struct {
	Name     string   `mapstructure:"name"`
	Seed     []string `mapstructure:"seed"` // 初始 broker，必填
	ClientID string   `mapstructure:"client_id"`

	ConnectTimeout time.Duration `mapstructure:"connect_timeout"` // 10s
	RequestTimeout time.Duration `mapstructure:"request_timeout"` // 10s
}

func (c *KafkaConfig) validate() error {
	if c == nil {
		return configError("kafka config is nil")
	}
	orDefault(&c.Name, defaultName)
	orDefault(&c.ClientID, "flake")
	orDefault(&c.ConnectTimeout, 10*time.Second)
	orDefault(&c.RequestTimeout, 10*time.Second)
	if len(c.Seed) == 0 {
		return configError("kafka seed brokers are required")
	}
	return nil
}
