package metrics

// Config 指标系统配置
//
//	metrics:
//	  enabled: true
//	  service_name: "flaked"
//	  version: "v1.0.0"
//	  port: 0          # >0 时额外启动独立的 Prometheus HTTP 服务
//	  path: "/metrics"
//	  runtime: true
type Config struct {
	// Enabled 为 false 时 New 返回 noop Meter
	Enabled bool `mapstructure:"enabled"`

	// ServiceName 写入 OpenTelemetry Resource 的 service.name
	ServiceName string `mapstructure:"service_name"`

	// Version 写入 service.version
	Version string `mapstructure:"version"`

	// Port 大于 0 时启动独立的指标 HTTP 服务；flaked 默认把 /metrics 挂在主路由上
	Port int `mapstructure:"port"`

	// Path 独立指标服务的路径，默认 /metrics
	Path string `mapstructure:"path"`

	// Runtime 是否采集 Go 运行时指标（GC、goroutine、内存）
	Runtime bool `mapstructure:"runtime"`
}

// NewDevDefaultConfig 开发环境默认配置：启用，不启动独立端口
func NewDevDefaultConfig(serviceName string) *Config {
	return &Config{
		Enabled:     true,
		ServiceName: serviceName,
		Version:     "dev",
		Path:        "/metrics",
	}
}

// NewProdDefaultConfig 生产环境默认配置：额外采集运行时指标
func NewProdDefaultConfig(serviceName, version string) *Config {
	return &Config{
		Enabled:     true,
		ServiceName: serviceName,
		Version:     version,
		Path:        "/metrics",
		Runtime:     true,
	}
}

func (c *Config) setDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "flake"
	}
	if c.Path == "" {
		c.Path = "/metrics"
	}
}
