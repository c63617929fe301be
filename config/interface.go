// Package config 基于 Viper 合并多个配置来源。
//
// 优先级从低到高：WithDefaults 注册的默认值、<name>.yaml、<name>.<env>.yaml
// （env 取自 <PREFIX>_ENV）、.env 文件、<PREFIX>_* 环境变量。
// 主配置文件由 fsnotify 监听，变化按 key 经 Watch 的通道投递。
//
//	loader, err := config.New(&config.Config{Name: "flaked"},
//		config.WithDefaults(map[string]any{"http.addr": ":8080"}))
//	if err == nil {
//		err = loader.Load(ctx)
//	}
//	var cfg app.Config
//	err = loader.Unmarshal(&cfg)
package config

import (
	"context"
	"time"
)

// Loader 并发安全
type Loader interface {
	Load(ctx context.Context) error
	Get(key string) any
	Unmarshal(v any) error
	UnmarshalKey(key string, v any) error

	// Watch 在 key 的值变化时投递 Event，ctx 取消后通道关闭
	Watch(ctx context.Context, key string) (<-chan Event, error)

	// Validate 没有任何配置项时返回 ErrValidationFailed
	Validate() error

	// ConfigFileUsed 未读到配置文件时为空
	ConfigFileUsed() string
}

// Event 一次配置变化
type Event struct {
	Key       string
	Value     any
	OldValue  any
	Source    string // 目前只有 "file"
	Timestamp time.Time
}
