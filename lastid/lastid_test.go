package lastid

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/ceyewan/flake/breaker"
	"github.com/ceyewan/flake/metrics"
	"github.com/ceyewan/flake/testkit"
)

// flakyStore 按需失败或阻塞的存储
type flakyStore struct {
	MemoryStore
	err   error
	block bool
	calls atomic.Int32
}

func (s *flakyStore) Write(ctx context.Context, id uint64) error {
	s.calls.Add(1)
	if s.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if s.err != nil {
		return s.err
	}
	return s.MemoryStore.Write(ctx, id)
}

func TestNew(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		cfg     *Config
		opts    []Option
		wantErr error
	}{
		{name: "file is the default driver", cfg: &Config{Path: filepath.Join(dir, "a.txt")}},
		{name: "memory", cfg: &Config{Driver: DriverMemory}},
		{name: "unknown driver", cfg: &Config{Driver: "s3"}, wantErr: ErrInvalidInput},
		{name: "negative timeout", cfg: &Config{Driver: DriverMemory, Timeout: -time.Second}, wantErr: ErrInvalidInput},
		{name: "redis without connector", cfg: &Config{Driver: DriverRedis}, wantErr: ErrConnectorNil},
		{name: "etcd without connector", cfg: &Config{Driver: DriverEtcd}, wantErr: ErrConnectorNil},
		{name: "mysql without connector", cfg: &Config{Driver: DriverMySQL}, wantErr: ErrConnectorNil},
		{name: "sqlite without connector", cfg: &Config{Driver: DriverSQLite}, wantErr: ErrConnectorNil},
		{name: "nats without connector", cfg: &Config{Driver: DriverNATS}, wantErr: ErrConnectorNil},
		{name: "kafka without connector", cfg: &Config{Driver: DriverKafka}, wantErr: ErrConnectorNil},
		{name: "sqlite", cfg: &Config{Driver: DriverSQLite},
			opts: []Option{WithSQLiteConnector(testkit.NewSQLiteConnector(t))}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := New(tt.cfg, append(tt.opts, WithLogger(testkit.NewLogger()))...)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, store)
				return
			}
			require.NoError(t, err)
			require.NoError(t, store.Write(context.Background(), 42))
			got, err := store.Read(context.Background())
			require.NoError(t, err)
			assert.Equal(t, uint64(42), got)
		})
	}
}

func TestNew_DefaultPath(t *testing.T) {
	t.Chdir(t.TempDir())

	store, err := New(nil)
	require.NoError(t, err)
	require.NoError(t, store.Write(context.Background(), 7))

	fs, err := NewFile(DefaultPath)
	require.NoError(t, err)
	got, err := fs.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(7), got)
}

func TestGuard_Timeout(t *testing.T) {
	inner := &flakyStore{block: true}
	store := Guard(inner, DriverRedis, 20*time.Millisecond, nil)

	start := time.Now()
	err := store.Write(context.Background(), 1)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestGuard_CircuitOpens(t *testing.T) {
	backendDown := errors.New("dial tcp: connection refused")
	inner := &flakyStore{err: backendDown}
	brk, err := breaker.New(&breaker.Config{MinimumRequests: 3, FailureRatio: 0.5, Timeout: time.Minute})
	require.NoError(t, err)
	store := Guard(inner, DriverRedis, time.Second, brk)
	ctx := context.Background()

	for range 3 {
		assert.ErrorIs(t, store.Write(ctx, 1), backendDown)
	}

	err = store.Write(ctx, 2)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.ErrorIs(t, err, breaker.ErrOpenState)
	assert.Equal(t, int32(3), inner.calls.Load(), "open circuit does not reach the backend")

	state, err := brk.State(DriverRedis)
	require.NoError(t, err)
	assert.Equal(t, breaker.StateOpen, state)
}

func TestInstrument_Metrics(t *testing.T) {
	meter, err := metrics.New(metrics.NewDevDefaultConfig("lastid-test"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = meter.Shutdown(context.Background()) })

	inner := &flakyStore{}
	store, err := Instrument(inner, DriverMemory, meter)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, 1))
	inner.err = errors.New("boom")
	require.Error(t, store.Write(ctx, 2))

	rec := httptest.NewRecorder()
	meter.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	out := string(body)
	assert.Contains(t, out, "lastid_write_total{")
	assert.Contains(t, out, `driver="memory"`)
	assert.Contains(t, out, `outcome="success"`)
	assert.Contains(t, out, `outcome="error"`)
	assert.Contains(t, out, "lastid_write_duration_seconds_bucket")
}

func TestInstrument_Spans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	inner := &flakyStore{}
	store, err := Instrument(inner, DriverFile, nil)
	require.NoError(t, err)

	require.NoError(t, store.Write(context.Background(), 4195095552))
	inner.err = errors.New("no space left on device")
	require.Error(t, store.Write(context.Background(), 4195095553))

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "lastid.write", spans[0].Name())
	assert.Contains(t, spans[0].Attributes(), attribute.String("lastid.driver", DriverFile))
	assert.Contains(t, spans[0].Attributes(), attribute.String("lastid.value", "4195095552"))
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.Equal(t, codes.Error, spans[1].Status().Code)
}
