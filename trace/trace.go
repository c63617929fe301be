// Package trace 安装全局 OpenTelemetry TracerProvider，并提供 Gin 中间件和 Span 辅助函数。
//
//	shutdown, err := trace.Setup(&cfg.Trace)
//	if err != nil {
//	    return err
//	}
//	defer shutdown(ctx)
package trace

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.20.0"

	"github.com/ceyewan/flake/xerrors"
)

const exportTimeout = 5 * time.Second

// ShutdownFunc 导出剩余 Span 并释放 Provider
type ShutdownFunc func(context.Context) error

// Setup 安装全局 Provider 和 W3C TraceContext + Baggage 传播器。
// 未启用时 Provider 不挂导出器，Span 仍带有效的 TraceID
func Setup(cfg *Config) (ShutdownFunc, error) {
	ctx := context.Background()

	if cfg == nil || !cfg.Enabled {
		var name string
		if cfg != nil {
			name = cfg.ServiceName
		}
		res, err := serviceResource(ctx, name)
		if err != nil {
			return nil, err
		}
		return install(sdktrace.NewTracerProvider(
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sdktrace.AlwaysSample()),
		)), nil
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	exporterOpts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
		otlptracegrpc.WithTimeout(exportTimeout),
	}
	if cfg.Insecure {
		exporterOpts = append(exporterOpts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, exporterOpts...)
	if err != nil {
		return nil, xerrors.Wrap(err, "trace: otlp exporter")
	}
	res, err := serviceResource(ctx, cfg.ServiceName)
	if err != nil {
		return nil, err
	}

	export := sdktrace.WithBatcher(exporter)
	if cfg.Batcher == "simple" {
		export = sdktrace.WithSyncer(exporter)
	}
	return install(sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.Sampler))),
		export,
	)), nil
}

func serviceResource(ctx context.Context, name string) (*resource.Resource, error) {
	var opts []resource.Option
	if name != "" {
		opts = append(opts, resource.WithAttributes(semconv.ServiceNameKey.String(name)))
	}
	res, err := resource.New(ctx, opts...)
	return res, xerrors.Wrap(err, "trace: resource")
}

func install(tp *sdktrace.TracerProvider) ShutdownFunc {
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))
	return tp.Shutdown
}
