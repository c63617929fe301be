package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/ceyewan/flake/clog"
	"github.com/ceyewan/flake/xerrors"
)

type loader struct {
	v      *viper.Viper
	cfg    *Config
	logger clog.Logger
	subs   *subscriptions
}

func newLoader(cfg *Config, o *options) *loader {
	v := viper.New()
	for k, val := range o.defaults {
		v.SetDefault(k, val)
	}
	return &loader{v: v, cfg: cfg, logger: o.logger, subs: newSubscriptions(v.Get, o.logger)}
}

// Load 依次应用 .env、主配置文件、环境专属文件，只有找到主配置文件时才监听它
func (l *loader) Load(context.Context) error {
	l.v.SetConfigName(l.cfg.Name)
	l.v.SetConfigType(l.cfg.FileType)
	for _, p := range l.cfg.Paths {
		l.v.AddConfigPath(p)
	}
	l.v.SetEnvPrefix(l.cfg.EnvPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	l.applyDotEnv()

	found, err := readOptional(l.v.ReadInConfig)
	if err != nil {
		return xerrors.Wrapf(err, "config: read %s", l.cfg.Name)
	}
	if !found {
		l.logger.Info("config file not found, using defaults and environment", clog.String("name", l.cfg.Name))
	}
	if err := l.mergeEnvFile(); err != nil {
		return err
	}
	if err := l.Validate(); err != nil {
		return err
	}
	l.subs.snapshot()

	if found {
		l.v.OnConfigChange(func(fsnotify.Event) {
			if err := l.mergeEnvFile(); err != nil {
				l.logger.Warn("reload env config failed", clog.Error(err))
			}
			l.subs.publish("file")
		})
		l.v.WatchConfig()
	}
	return nil
}

// readOptional 把"文件不存在"与其他读取错误区分开
func readOptional(read func() error) (bool, error) {
	err := read()
	if err == nil {
		return true, nil
	}
	var notFound viper.ConfigFileNotFoundError
	if xerrors.As(err, &notFound) {
		return false, nil
	}
	return false, err
}

// applyDotEnv 不覆盖进程里已有的环境变量
func (l *loader) applyDotEnv() {
	files := []string{".env"}
	for _, p := range l.cfg.Paths {
		files = append(files, filepath.Join(p, ".env"))
	}
	var loaded int
	for _, f := range files {
		if godotenv.Load(f) == nil {
			loaded++
		}
	}
	l.logger.Debug("dotenv files applied", clog.Int("count", loaded))
}

// mergeEnvFile 合并 <name>.<env>.<type>，env 取自 <PREFIX>_ENV
func (l *loader) mergeEnvFile() error {
	env := os.Getenv(l.cfg.EnvPrefix + "_ENV")
	if env == "" {
		return nil
	}
	name := l.cfg.Name + "." + env
	l.v.SetConfigName(name)
	defer l.v.SetConfigName(l.cfg.Name)

	found, err := readOptional(l.v.MergeInConfig)
	if err != nil {
		return xerrors.Wrapf(err, "config: merge %s", name)
	}
	if found {
		l.logger.Info("env config merged", clog.String("env", env))
	}
	return nil
}

func (l *loader) Get(key string) any { return l.v.Get(key) }

func (l *loader) Unmarshal(v any) error {
	return xerrors.Wrap(invalid(l.v.Unmarshal(v)), "config: unmarshal")
}

func (l *loader) UnmarshalKey(key string, v any) error {
	return xerrors.Wrapf(invalid(l.v.UnmarshalKey(key, v)), "config: unmarshal %s", key)
}

func (l *loader) ConfigFileUsed() string { return l.v.ConfigFileUsed() }

func (l *loader) Watch(ctx context.Context, key string) (<-chan Event, error) {
	return l.subs.add(ctx, key), nil
}

// Validate 既没有文件也没有默认值时配置为空，视为无效
func (l *loader) Validate() error {
	if len(l.v.AllSettings()) == 0 {
		return xerrors.Wrap(ErrValidationFailed, "config: nothing loaded")
	}
	return nil
}

func invalid(err error) error {
	if err == nil {
		return nil
	}
	return xerrors.Join(ErrValidationFailed, err)
}
