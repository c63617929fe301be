package config

import (
	"context"
	"maps"
	"strings"

	"github.com/ceyewan/flake/clog"
	"github.com/ceyewan/flake/xerrors"
)

// DefaultEnvPrefix 环境变量默认前缀，例如 FLAKE_HTTP_ADDR
const DefaultEnvPrefix = "FLAKE"

// Config 描述去哪里找配置；零值字段在 New 中补齐
type Config struct {
	Name      string   // 文件名，不含扩展名，默认 "config"
	Paths     []string // 默认 "." 和 "./config"
	FileType  string   // 默认 yaml
	EnvPrefix string   // 默认 FLAKE，统一转成大写
}

func (c *Config) setDefaults() {
	orDefault(&c.Name, "config")
	orDefault(&c.FileType, "yaml")
	orDefault(&c.EnvPrefix, DefaultEnvPrefix)
	if c.Paths == nil {
		c.Paths = []string{".", "./config"}
	}
	c.EnvPrefix = strings.ToUpper(c.EnvPrefix)
}

func orDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}

// Option 加载器选项
type Option func(*options)

type options struct {
	logger   clog.Logger
	defaults map[string]any
}

// WithLogger 注入日志记录器，加载过程中的提示信息通过它输出
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger.WithNamespace("config")
		}
	}
}

// WithDefaults 注册默认值。
//
// 只有注册过的 key 才能被环境变量覆盖后参与 Unmarshal，
// 因此纯环境变量部署时应为每个 key 提供默认值。
func WithDefaults(defaults map[string]any) Option {
	return func(o *options) {
		if o.defaults == nil {
			o.defaults = make(map[string]any, len(defaults))
		}
		maps.Copy(o.defaults, defaults)
	}
}

// New 创建配置加载器，cfg 为 nil 时使用默认配置
func New(cfg *Config, opts ...Option) (Loader, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.setDefaults()

	o := &options{logger: clog.Discard()}
	for _, opt := range opts {
		opt(o)
	}

	return newLoader(cfg, o), nil
}

// MustLoad 创建并加载配置，失败时 panic，仅用于 main 初始化阶段
func MustLoad(cfg *Config, opts ...Option) Loader {
	loader := xerrors.Must(New(cfg, opts...))
	xerrors.Must(struct{}{}, loader.Load(context.Background()))
	return loader
}
