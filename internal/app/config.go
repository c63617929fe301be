package app

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/ceyewan/flake/auth"
	"github.com/ceyewan/flake/clog"
	"github.com/ceyewan/flake/config"
	"github.com/ceyewan/flake/connector"
	"github.com/ceyewan/flake/idgen"
	"github.com/ceyewan/flake/internal/server"
	"github.com/ceyewan/flake/lastid"
	"github.com/ceyewan/flake/metrics"
	"github.com/ceyewan/flake/ratelimit"
	"github.com/ceyewan/flake/trace"
	"github.com/ceyewan/flake/xerrors"
)

// ServiceName 默认服务名，也是默认配置文件名
const ServiceName = "flaked"

// Config flaked 的完整配置，对应 flaked.yaml 的顶层结构
type Config struct {
	Log        clog.Config      `mapstructure:"log"`
	Metrics    metrics.Config   `mapstructure:"metrics"`
	Trace      trace.Config     `mapstructure:"trace"`
	HTTP       server.Config    `mapstructure:"http"`
	IDGen      idgen.Config     `mapstructure:"idgen"`
	LastID     lastid.Config    `mapstructure:"lastid"`
	RateLimit  ratelimit.Config `mapstructure:"ratelimit"`
	Auth       auth.Config      `mapstructure:"auth"`
	Connectors Connectors       `mapstructure:"connectors"`
}

// Connectors 各存储后端的连接配置，只有被 lastid.driver 或 ratelimit.mode 用到的才会建立连接
type Connectors struct {
	Redis  connector.RedisConfig  `mapstructure:"redis"`
	Etcd   connector.EtcdConfig   `mapstructure:"etcd"`
	MySQL  connector.MySQLConfig  `mapstructure:"mysql"`
	SQLite connector.SQLiteConfig `mapstructure:"sqlite"`
	NATS   connector.NATSConfig   `mapstructure:"nats"`
	Kafka  connector.KafkaConfig  `mapstructure:"kafka"`
}

// defaults 注册所有可被 FLAKE_* 环境变量覆盖的 key
func defaults() map[string]any {
	return map[string]any{
		"log.level":  "info",
		"log.format": "json",
		"log.output": "stdout",

		"metrics.enabled":      true,
		"metrics.service_name": ServiceName,
		"metrics.runtime":      true,

		"trace.enabled":      false,
		"trace.service_name": ServiceName,
		"trace.endpoint":     "localhost:4317",
		"trace.sampler":      1.0,
		"trace.insecure":     true,

		"http.addr":         ":8080",
		"http.service_name": ServiceName,
		"http.max_batch":    server.DefaultMaxBatch,

		"idgen.method":        idgen.MethodHost,
		"idgen.worker_id":     0,
		"idgen.datacenter_id": 0,
		"idgen.epoch":         idgen.DefaultEpoch,

		"lastid.driver":  lastid.DriverFile,
		"lastid.path":    lastid.DefaultPath,
		"lastid.key":     lastid.DefaultKey,
		"lastid.bucket":  lastid.DefaultBucket,
		"lastid.topic":   lastid.DefaultTopic,
		"lastid.timeout": "2s",

		"ratelimit.enabled": false,
		"ratelimit.mode":    ratelimit.ModeStandalone,
		"ratelimit.rate":    1000.0,
		"ratelimit.burst":   2 * server.DefaultMaxBatch,

		"auth.enabled":    false,
		"auth.secret_key": "",
		"auth.issuer":     ServiceName,
		"auth.token_ttl":  "24h",

		"connectors.redis.addr":      "127.0.0.1:6379",
		"connectors.etcd.endpoints":  []string{"127.0.0.1:2379"},
		"connectors.mysql.host":      "127.0.0.1",
		"connectors.mysql.database":  "flake",
		"connectors.sqlite.path":     "./flake.db",
		"connectors.nats.url":        "nats://127.0.0.1:4222",
		"connectors.kafka.seed":      []string{"127.0.0.1:9092"},
		"connectors.kafka.client_id": ServiceName,
	}
}

// validate 检查跨组件的约束：开启限流时桶容量必须容纳一次最大批量
func (c *Config) validate() error {
	if !c.RateLimit.Enabled {
		return nil
	}
	maxBatch := c.HTTP.MaxBatch
	if maxBatch <= 0 {
		maxBatch = server.DefaultMaxBatch
	}
	if c.RateLimit.Burst < maxBatch {
		return xerrors.Wrapf(ratelimit.ErrInvalidConfig,
			"ratelimit.burst %d is below http.max_batch %d", c.RateLimit.Burst, maxBatch)
	}
	return nil
}

// Load 读取配置。path 为空时在 . 和 ./config 下查找 flaked.yaml；
// 否则按 path 的目录、文件名和扩展名定位。环境变量 FLAKE_* 优先于文件
func Load(ctx context.Context, path string, logger clog.Logger) (*Config, config.Loader, error) {
	loaderCfg := &config.Config{Name: ServiceName}
	if path != "" {
		ext := filepath.Ext(path)
		loaderCfg.Name = strings.TrimSuffix(filepath.Base(path), ext)
		loaderCfg.Paths = []string{filepath.Dir(path)}
		if ext != "" {
			loaderCfg.FileType = strings.TrimPrefix(ext, ".")
		}
	}

	loader, err := config.New(loaderCfg, config.WithLogger(logger), config.WithDefaults(defaults()))
	if err != nil {
		return nil, nil, err
	}
	if err := loader.Load(ctx); err != nil {
		return nil, nil, xerrors.Wrap(err, "load config")
	}

	var cfg Config
	if err := loader.Unmarshal(&cfg); err != nil {
		return nil, nil, xerrors.Wrap(err, "unmarshal config")
	}
	return &cfg, loader, nil
}
