package clog

import "github.com/ceyewan/flake/xerrors"

// New 按配置创建 Logger，config 为 nil 时使用 NewDevDefaultConfig
func New(config *Config, opts ...Option) (Logger, error) {
	if config == nil {
		config = NewDevDefaultConfig()
	}
	if err := config.validate(); err != nil {
		return nil, xerrors.Wrap(err, "clog: invalid config")
	}
	return newLogger(config, applyOptions(opts...))
}

// Must 出错时 panic，只在进程启动时使用
func Must(config *Config, opts ...Option) Logger {
	return xerrors.Must(New(config, opts...))
}
