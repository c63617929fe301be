package trace

import "github.com/ceyewan/flake/xerrors"

// Config 对应配置文件的 trace 段
//
//	trace:
//	  enabled: true
//	  endpoint: "tempo:4317"
//	  sampler: 0.1
type Config struct {
	// Enabled 为 false 时仍生成 TraceID 供日志关联，只是不导出
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	Endpoint    string  `mapstructure:"endpoint"`
	Sampler     float64 `mapstructure:"sampler"`
	// Batcher 取 batch 或 simple，simple 逐个同步导出
	Batcher  string `mapstructure:"batcher"`
	Insecure bool   `mapstructure:"insecure"`
}

// DefaultConfig 全量采样，导出到本机 OTLP/gRPC 端口
func DefaultConfig(serviceName string) *Config {
	return &Config{
		ServiceName: serviceName,
		Endpoint:    "localhost:4317",
		Sampler:     1,
		Batcher:     "batch",
		Insecure:    true,
	}
}

func (c *Config) validate() error {
	if c == nil {
		return xerrors.Wrap(xerrors.ErrInvalidInput, "trace: nil config")
	}
	var problem string
	switch {
	case c.ServiceName == "":
		problem = "service_name is empty"
	case c.Endpoint == "":
		problem = "endpoint is empty"
	case c.Sampler < 0 || c.Sampler > 1:
		problem = "sampler outside [0, 1]"
	case c.Batcher != "" && c.Batcher != "batch" && c.Batcher != "simple":
		problem = "batcher is neither batch nor simple"
	default:
		return nil
	}
	return xerrors.Wrap(xerrors.ErrInvalidInput, "trace: "+problem)
}
