package idgen

import (
	"github.com/ceyewan/flake/xerrors"
)

// 身份获取方式
const (
	// MethodHost 由主机名和第一个非回环 IPv4 推导标签（默认）
	MethodHost = "host"
	// MethodStatic 使用配置中显式给出的标签，用于没有可路由地址的环境
	MethodStatic = "static"
)

// ========================================
// 配置结构 (Configuration)
// ========================================

// Config 雪花生成器配置
type Config struct {
	// Method 身份获取方式: "host" | "static"，默认 "host"
	Method string `mapstructure:"method"`

	// WorkerID Method="static" 时使用，[0, 256)
	WorkerID int64 `mapstructure:"worker_id"`

	// DatacenterID Method="static" 时使用，[0, 16)
	DatacenterID int64 `mapstructure:"datacenter_id"`

	// Epoch 起始时间戳（毫秒），默认 DefaultEpoch
	Epoch int64 `mapstructure:"epoch"`
}

func (c *Config) setDefaults() {
	if c.Method == "" {
		c.Method = MethodHost
	}
	if c.Epoch == 0 {
		c.Epoch = DefaultEpoch
	}
}

func (c *Config) validate() error {
	switch c.Method {
	case MethodHost:
	case MethodStatic:
		if c.WorkerID < 0 || c.WorkerID >= MaxWorkers {
			return xerrors.WithCode(ErrInvalidInput, "worker_id_out_of_range")
		}
		if c.DatacenterID < 0 || c.DatacenterID >= MaxDatacenters {
			return xerrors.WithCode(ErrInvalidInput, "datacenter_id_out_of_range")
		}
	default:
		return xerrors.Wrapf(xerrors.WithCode(ErrInvalidInput, "unsupported_method"), "method %q", c.Method)
	}
	if c.Epoch < 0 {
		return xerrors.WithCode(ErrInvalidInput, "epoch_negative")
	}
	return nil
}
