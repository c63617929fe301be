package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/ceyewan/flake/auth"
	"github.com/ceyewan/flake/idgen"
	"github.com/ceyewan/flake/lastid"
	"github.com/ceyewan/flake/metrics"
	"github.com/ceyewan/flake/ratelimit"
	"github.com/ceyewan/flake/testkit"
	"github.com/ceyewan/flake/xerrors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type failingStore struct{}

func (failingStore) Write(context.Context, uint64) error {
	return errors.New("disk full")
}

func newGenerator(t *testing.T, store idgen.Store) *idgen.Generator {
	t.Helper()
	gen, err := idgen.New(&idgen.Config{Method: idgen.MethodStatic, WorkerID: 5, DatacenterID: 3},
		idgen.WithStore(store))
	require.NoError(t, err)
	return gen
}

func newTestServer(t *testing.T, gen *idgen.Generator, opts ...Option) *Server {
	t.Helper()
	s, err := New(&Config{MaxBatch: 100}, gen, append(opts, WithLogger(testkit.NewLogger()))...)
	require.NoError(t, err)
	return s
}

func get(t *testing.T, h http.Handler, target string, out any) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	if out != nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec
}

func TestNew_NilGenerator(t *testing.T) {
	_, err := New(nil, nil)
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
}

func TestHandleID(t *testing.T) {
	store := lastid.NewMemory()
	s := newTestServer(t, newGenerator(t, store))

	var resp idResponse
	rec := get(t, s.Handler(), "/v1/id", &resp)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, resp.PersistError)

	id, err := idgen.Parse(resp.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), id.WorkerID())
	assert.Equal(t, int64(3), id.DatacenterID())

	persisted, err := store.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(id), persisted)
}

func TestHandleID_PersistError(t *testing.T) {
	s := newTestServer(t, newGenerator(t, failingStore{}))

	var resp idResponse
	rec := get(t, s.Handler(), "/v1/id", &resp)
	require.Equal(t, http.StatusOK, rec.Code, "id is still issued")
	assert.NotEmpty(t, resp.ID)
	assert.Contains(t, resp.PersistError, "disk full")
}

func TestHandleIDs(t *testing.T) {
	store := lastid.NewMemory()
	s := newTestServer(t, newGenerator(t, store))

	var resp idsResponse
	rec := get(t, s.Handler(), "/v1/ids?count=50", &resp)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, resp.IDs, 50)

	prev := uint64(0)
	for _, raw := range resp.IDs {
		v, err := strconv.ParseUint(raw, 10, 64)
		require.NoError(t, err)
		assert.Greater(t, v, prev)
		prev = v
	}

	persisted, err := store.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, prev, persisted, "batch persists its last id")

	for _, q := range []string{"count=0", "count=101", "count=-1", "count=ten"} {
		assert.Equal(t, http.StatusBadRequest, get(t, s.Handler(), "/v1/ids?"+q, nil).Code, q)
	}
	assert.Equal(t, http.StatusOK, get(t, s.Handler(), "/v1/ids", nil).Code, "count defaults to 1")
}

func TestHandleIDs_MsgPack(t *testing.T) {
	s := newTestServer(t, newGenerator(t, nil))

	req := httptest.NewRequest(http.MethodGet, "/v1/ids?count=3", nil)
	req.Header.Set("Accept", "application/msgpack")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/msgpack", rec.Header().Get("Content-Type"))

	var resp idsMsgPack
	require.NoError(t, msgpack.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.IDs, 3)
	assert.Less(t, resp.IDs[0], resp.IDs[1])
	assert.Less(t, resp.IDs[1], resp.IDs[2])
	assert.Equal(t, int64(5), idgen.ID(resp.IDs[0]).WorkerID())
}

func TestHandleDecode(t *testing.T) {
	s := newTestServer(t, newGenerator(t, nil))

	var parts map[string]any
	rec := get(t, s.Handler(), "/v1/ids/4195095552", &parts)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "4195095552", parts["id"])
	assert.EqualValues(t, 1000, parts["timestamp"])
	assert.EqualValues(t, 3, parts["datacenter_id"])
	assert.EqualValues(t, 5, parts["worker_id"])
	assert.EqualValues(t, 0, parts["sequence"])
	assert.Equal(t, "2021-05-05T13:00:01Z", parts["time"])

	for _, bad := range []string{"abc", "-1", "9223372036854775808"} {
		assert.Equal(t, http.StatusBadRequest, get(t, s.Handler(), "/v1/ids/"+bad, nil).Code, bad)
	}
}

func TestHandleIdentity(t *testing.T) {
	s := newTestServer(t, newGenerator(t, nil))

	var resp map[string]any
	rec := get(t, s.Handler(), "/v1/identity", &resp)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 5, resp["worker_id"])
	assert.EqualValues(t, 3, resp["datacenter_id"])
	assert.Equal(t, idgen.MethodStatic, resp["method"])
	assert.EqualValues(t, idgen.DefaultEpoch, resp["epoch"])
}

func TestHandleHealth(t *testing.T) {
	healthy := newTestServer(t, newGenerator(t, nil),
		WithHealthCheck("store", func(context.Context) error { return nil }))
	var resp map[string]any
	rec := get(t, healthy.Handler(), "/healthz", &resp)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", resp["status"])

	degraded := newTestServer(t, newGenerator(t, nil),
		WithHealthCheck("store", func(context.Context) error { return errors.New("redis: connection refused") }))
	rec = get(t, degraded.Handler(), "/healthz", &resp)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "degraded", resp["status"])
	assert.Equal(t, map[string]any{"store": "redis: connection refused"}, resp["checks"])
}

func TestRateLimit(t *testing.T) {
	limiter, err := ratelimit.New(&ratelimit.Config{Rate: 0.001, Burst: 10})
	require.NoError(t, err)
	t.Cleanup(func() { _ = limiter.Close() })
	s := newTestServer(t, newGenerator(t, nil), WithRateLimiter(limiter))

	assert.Equal(t, http.StatusOK, get(t, s.Handler(), "/v1/ids?count=10", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, get(t, s.Handler(), "/v1/id", nil).Code)
	assert.Equal(t, http.StatusOK, get(t, s.Handler(), "/v1/ids/4195095552", nil).Code, "decode is not limited")
}

func TestRateLimit_InvalidCountIsNotCharged(t *testing.T) {
	limiter, err := ratelimit.New(&ratelimit.Config{Rate: 0.001, Burst: 10})
	require.NoError(t, err)
	t.Cleanup(func() { _ = limiter.Close() })
	s := newTestServer(t, newGenerator(t, nil), WithRateLimiter(limiter))

	for _, q := range []string{"count=500", "count=101", "count=0", "count=ten"} {
		assert.Equal(t, http.StatusBadRequest, get(t, s.Handler(), "/v1/ids?"+q, nil).Code, q)
	}
	assert.Equal(t, http.StatusOK, get(t, s.Handler(), "/v1/ids?count=10", nil).Code, "bucket is still full")
	assert.Equal(t, http.StatusTooManyRequests, get(t, s.Handler(), "/v1/ids?count=1", nil).Code)
}

func TestAuth(t *testing.T) {
	authn, err := auth.New(&auth.Config{SecretKey: "0123456789abcdef0123456789abcdef"})
	require.NoError(t, err)
	limiter, err := ratelimit.New(&ratelimit.Config{Rate: 0.001, Burst: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = limiter.Close() })
	s := newTestServer(t, newGenerator(t, nil), WithAuthenticator(authn), WithRateLimiter(limiter))

	withToken := func(subject string) *httptest.ResponseRecorder {
		token, err := authn.GenerateToken(context.Background(), subject)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/v1/id", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusUnauthorized, get(t, s.Handler(), "/v1/id", nil).Code)
	assert.Equal(t, http.StatusOK, withToken("orders").Code)
	assert.Equal(t, http.StatusTooManyRequests, withToken("orders").Code)
	assert.Equal(t, http.StatusOK, withToken("billing").Code, "limits are per subject")
	assert.Equal(t, http.StatusOK, get(t, s.Handler(), "/v1/identity", nil).Code, "read-only routes stay open")
}

func TestMetricsEndpoint(t *testing.T) {
	meter, err := metrics.New(metrics.NewDevDefaultConfig("flaked-test"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = meter.Shutdown(context.Background()) })

	gen, err := idgen.New(&idgen.Config{Method: idgen.MethodStatic}, idgen.WithMeter(meter))
	require.NoError(t, err)
	s := newTestServer(t, gen, WithMeter(meter))

	require.Equal(t, http.StatusOK, get(t, s.Handler(), "/v1/id", nil).Code)

	rec := get(t, s.Handler(), "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "idgen_snowflake_generated_total")
	assert.Contains(t, string(body), "http_server_requests_total")
	assert.Contains(t, string(body), `route="/v1/id"`)
}

func TestRun_StopsOnCancel(t *testing.T) {
	gen := newGenerator(t, nil)
	s, err := New(&Config{Addr: "127.0.0.1:0", ShutdownTimeout: time.Second}, gen)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
