package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/flake/testkit"
)

func newTestStandalone(t *testing.T, rate float64, burst int) *standaloneLimiter {
	t.Helper()
	l, err := New(&Config{Rate: rate, Burst: burst}, WithLogger(testkit.NewLogger()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l.(*standaloneLimiter)
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		opts    []Option
		wantErr error
	}{
		{name: "nil config", cfg: nil, wantErr: ErrConfigNil},
		{name: "zero rate", cfg: &Config{Burst: 1}, wantErr: ErrInvalidLimit},
		{name: "zero burst", cfg: &Config{Rate: 1}, wantErr: ErrInvalidLimit},
		{name: "unknown mode", cfg: &Config{Mode: "memcached", Rate: 1, Burst: 1}, wantErr: ErrInvalidConfig},
		{name: "redis without connector", cfg: &Config{Mode: ModeRedis, Rate: 1, Burst: 1}, wantErr: ErrConnectorNil},
		{name: "standalone", cfg: &Config{Rate: 10, Burst: 20}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg, tt.opts...)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, l)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, Limit{Rate: 10, Burst: 20}, l.Limit())
			assert.NoError(t, l.Close())
			assert.NoError(t, l.Close(), "close is idempotent")
		})
	}
}

func TestStandalone_AllowN(t *testing.T) {
	l := newTestStandalone(t, 1, 5)
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	ok, err := l.AllowN(ctx, "a", 5)
	require.NoError(t, err)
	assert.True(t, ok, "full bucket serves a burst")

	ok, err = l.Allow(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok, "bucket drained")

	ok, err = l.Allow(ctx, "b")
	require.NoError(t, err)
	assert.True(t, ok, "keys have independent buckets")

	now = now.Add(2 * time.Second)
	ok, err = l.AllowN(ctx, "a", 2)
	require.NoError(t, err)
	assert.True(t, ok, "refilled at rate")

	ok, err = l.AllowN(ctx, "a", 6)
	require.NoError(t, err)
	assert.False(t, ok, "n above burst is never allowed")
}

func TestStandalone_InvalidArgs(t *testing.T) {
	l := newTestStandalone(t, 1, 1)
	ctx := context.Background()

	_, err := l.Allow(ctx, "")
	assert.ErrorIs(t, err, ErrKeyEmpty)

	_, err = l.AllowN(ctx, "a", 0)
	assert.ErrorIs(t, err, ErrInvalidLimit)
}

func TestStandalone_IdleBucketsExpire(t *testing.T) {
	l, err := New(&Config{Rate: 0.001, Burst: 1, IdleTimeout: 50 * time.Millisecond})
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	ctx := context.Background()

	ok, err := l.Allow(ctx, "idle")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = l.Allow(ctx, "idle")
	require.NoError(t, err)
	assert.False(t, ok)

	// 读取缓存会刷新空闲计时，只在超时之后检查一次
	time.Sleep(1500 * time.Millisecond)
	_, present := l.(*standaloneLimiter).buckets.GetIfPresent("idle")
	assert.False(t, present, "idle bucket is evicted")

	ok, err = l.Allow(ctx, "idle")
	require.NoError(t, err)
	assert.True(t, ok, "expired bucket starts full again")
}

func TestStandalone_CloseResetsBuckets(t *testing.T) {
	l := newTestStandalone(t, 0.001, 1)
	ctx := context.Background()

	ok, _ := l.Allow(ctx, "a")
	assert.True(t, ok)
	require.NoError(t, l.Close())
	require.NoError(t, l.Close())

	ok, _ = l.Allow(ctx, "a")
	assert.True(t, ok)
}

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	l := newTestStandalone(t, 0.001, 10)

	r := gin.New()
	r.GET("/ids", GinMiddleware(l, nil, QueryCost("count")), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/anon", GinMiddleware(l, func(*gin.Context) string { return "" }, nil), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	do := func(target string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		return rec
	}

	rec := do("/ids?count=8")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "10", rec.Header().Get("X-RateLimit-Limit"))

	assert.Equal(t, http.StatusTooManyRequests, do("/ids?count=3").Code, "cost follows count")
	assert.Equal(t, http.StatusOK, do("/ids?count=bogus").Code, "invalid count costs one token")
	assert.Equal(t, http.StatusOK, do("/ids").Code)
	assert.Equal(t, http.StatusTooManyRequests, do("/ids").Code)
	assert.Equal(t, http.StatusOK, do("/anon").Code, "empty key bypasses the limiter")
}

func TestQueryCost(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{query: "", want: 1},
		{query: "count=1", want: 1},
		{query: "count=250", want: 250},
		{query: "count=0", want: 1},
		{query: "count=-4", want: 1},
		{query: "count=abc", want: 1},
	}
	cost := QueryCost("count")
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/v1/ids?"+tt.query, nil)
			assert.Equal(t, tt.want, cost(c))
		})
	}
}

func TestDistributed(t *testing.T) {
	conn := testkit.NewRedisConnector(t)
	cfg := &Config{Mode: ModeRedis, Rate: 0.001, Burst: 3, Prefix: "test:" + testkit.NewID() + ":"}
	l, err := New(cfg, WithRedisConnector(conn), WithLogger(testkit.NewLogger()), WithMeter(testkit.NewMeter()))
	require.NoError(t, err)
	ctx := testkit.NewContext(t, 10*time.Second)

	ok, err := l.AllowN(ctx, "client", 3)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.Allow(ctx, "client")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = l.Allow(ctx, "other")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = l.Allow(ctx, "")
	assert.ErrorIs(t, err, ErrKeyEmpty)
}
