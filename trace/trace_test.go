package trace

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/ceyewan/flake/xerrors"
)

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "default", mutate: func(*Config) {}},
		{name: "missing service", mutate: func(c *Config) { c.ServiceName = "" }, wantErr: true},
		{name: "missing endpoint", mutate: func(c *Config) { c.Endpoint = "" }, wantErr: true},
		{name: "sampler out of range", mutate: func(c *Config) { c.Sampler = 1.5 }, wantErr: true},
		{name: "unknown batcher", mutate: func(c *Config) { c.Batcher = "async" }, wantErr: true},
		{name: "simple batcher", mutate: func(c *Config) { c.Batcher = "simple" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig("flaked")
			tt.mutate(cfg)
			err := cfg.validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
				return
			}
			assert.NoError(t, err)
		})
	}
	var nilCfg *Config
	assert.Error(t, nilCfg.validate())
}

func TestSetupDisabledUsesDiscard(t *testing.T) {
	shutdown, err := Setup(&Config{Enabled: false, ServiceName: "flaked"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = shutdown(context.Background()) })

	_, span := StartSpan(context.Background(), "probe")
	defer span.End()
	assert.True(t, span.SpanContext().HasTraceID())
}

func TestStartSpanAndEnd(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	_, ok := StartSpan(context.Background(), "lastid.write", attribute.String("driver", "file"))
	End(ok, nil)
	_, failed := StartSpan(context.Background(), "lastid.write")
	End(failed, errors.New("disk full"))

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "lastid.write", spans[0].Name())
	assert.Contains(t, spans[0].Attributes(), attribute.String("driver", "file"))
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Equal(t, "disk full", spans[1].Status().Description)
}

func TestGinTraceID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tp := sdktrace.NewTracerProvider()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	r := gin.New()
	r.Use(GinMiddleware("flaked"), GinTraceID())
	var traceID any
	r.GET("/ping", func(c *gin.Context) {
		traceID, _ = c.Get(TraceIDKey)
		c.Status(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Len(t, traceID, 32)
}
