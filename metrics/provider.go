package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.20.0"

	"github.com/ceyewan/flake/clog"
	"github.com/ceyewan/flake/xerrors"
)

const scopeName = "github.com/ceyewan/flake"

// promMeter 把 OTel 指标导出到自己的 Prometheus Registry，
// 因此 Handler 只包含本实例创建的指标
type promMeter struct {
	meter    metric.Meter
	provider *sdkmetric.MeterProvider
	handler  http.Handler
	logger   clog.Logger
	// standalone 仅在 Config.Port > 0 时存在
	standalone *http.Server
}

// New Enabled 为 false 时返回 Discard()。启用时同时注册为全局 MeterProvider
func New(cfg *Config, opts ...Option) (Meter, error) {
	if cfg == nil {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "metrics: nil config")
	}
	if !cfg.Enabled {
		return Discard(), nil
	}
	cfg.setDefaults()
	o := applyOptions(opts)

	res, err := resource.New(context.Background(), resource.WithAttributes(
		semconv.ServiceNameKey.String(cfg.ServiceName),
		semconv.ServiceVersionKey.String(cfg.Version),
	))
	if err != nil {
		return nil, xerrors.Wrap(err, "metrics: resource")
	}
	registry := promclient.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, xerrors.Wrap(err, "metrics: prometheus exporter")
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter), sdkmetric.WithResource(res))
	otel.SetMeterProvider(provider)

	if cfg.Runtime {
		if err := runtime.Start(runtime.WithMeterProvider(provider)); err != nil {
			return nil, xerrors.Combine(xerrors.Wrap(err, "metrics: runtime"), provider.Shutdown(context.Background()))
		}
	}

	m := &promMeter{
		meter:    provider.Meter(scopeName),
		provider: provider,
		handler:  promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		logger:   o.logger,
	}
	if cfg.Port > 0 {
		m.serve(":"+strconv.Itoa(cfg.Port), cfg.Path)
	}
	m.logger.Info("metrics enabled",
		clog.String("service", cfg.ServiceName),
		clog.Int("port", cfg.Port),
		clog.Bool("runtime", cfg.Runtime))
	return m, nil
}

// Must 出错时 panic，只在进程启动时使用
func Must(cfg *Config, opts ...Option) Meter {
	return xerrors.Must(New(cfg, opts...))
}

func (m *promMeter) serve(addr, path string) {
	mux := http.NewServeMux()
	mux.Handle(path, m.handler)
	m.standalone = &http.Server{Addr: addr, Handler: mux}

	go func() {
		m.logger.Info("standalone metrics server listening", clog.String("addr", addr), clog.String("path", path))
		if err := m.standalone.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("standalone metrics server failed", clog.Error(err))
		}
	}()
}

func (m *promMeter) Handler() http.Handler { return m.handler }

// Shutdown 先停独立服务，再刷新 Provider
func (m *promMeter) Shutdown(ctx context.Context) error {
	var errs xerrors.Collector
	if m.standalone != nil {
		errs.Collect(m.standalone.Shutdown(ctx))
	}
	return xerrors.Combine(errs.Err(), m.provider.Shutdown(ctx))
}
