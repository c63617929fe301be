package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/flake/idgen"
	"github.com/ceyewan/flake/lastid"
	"github.com/ceyewan/flake/ratelimit"
	"github.com/ceyewan/flake/testkit"
	"github.com/ceyewan/flake/xerrors"
)

const testYAML = `
log:
  level: warn
  format: console
  output: stderr
metrics:
  enabled: true
http:
  addr: "127.0.0.1:0"
  max_batch: 50
idgen:
  method: static
  worker_id: 5
  datacenter_id: 3
lastid:
  driver: memory
ratelimit:
  enabled: true
  rate: 100
  burst: 200
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flaked.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("FLAKE_IDGEN_WORKER_ID", "9")
	path := writeConfig(t, testYAML)

	cfg, loader, err := Load(context.Background(), path, testkit.NewLogger())
	require.NoError(t, err)
	assert.Equal(t, path, loader.ConfigFileUsed())

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, idgen.MethodStatic, cfg.IDGen.Method)
	assert.Equal(t, int64(9), cfg.IDGen.WorkerID, "environment overrides the file")
	assert.Equal(t, int64(3), cfg.IDGen.DatacenterID)
	assert.Equal(t, int64(idgen.DefaultEpoch), cfg.IDGen.Epoch)
	assert.Equal(t, lastid.DriverMemory, cfg.LastID.Driver)
	assert.Equal(t, 2*time.Second, cfg.LastID.Timeout)
	assert.Nil(t, cfg.LastID.Breaker)
	assert.Equal(t, 50, cfg.HTTP.MaxBatch)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, ratelimit.ModeStandalone, cfg.RateLimit.Mode)
	assert.Equal(t, []string{"127.0.0.1:2379"}, cfg.Connectors.Etcd.Endpoints)
}

func TestLoad_Breaker(t *testing.T) {
	path := writeConfig(t, `
lastid:
  driver: redis
  timeout: 500ms
  breaker:
    failure_ratio: 0.5
    minimum_requests: 4
`)
	cfg, _, err := Load(context.Background(), path, nil)
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, cfg.LastID.Timeout)
	require.NotNil(t, cfg.LastID.Breaker)
	assert.Equal(t, 0.5, cfg.LastID.Breaker.FailureRatio)
	assert.Equal(t, uint32(4), cfg.LastID.Breaker.MinimumRequests)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, loader, err := Load(context.Background(), "", nil)
	require.NoError(t, err)
	assert.Empty(t, loader.ConfigFileUsed())
	assert.Equal(t, idgen.MethodHost, cfg.IDGen.Method)
	assert.Equal(t, lastid.DriverFile, cfg.LastID.Driver)
	assert.Equal(t, lastid.DefaultPath, cfg.LastID.Path)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
}

func TestNew_ServesIDs(t *testing.T) {
	cfg, loader, err := Load(context.Background(), writeConfig(t, testYAML), nil)
	require.NoError(t, err)

	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close(context.Background()) })
	require.NoError(t, a.WatchLogLevel(testkit.NewContext(t, time.Minute), loader))

	rec := httptest.NewRecorder()
	a.Server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/id", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	last, err := a.Store.Read(context.Background())
	require.NoError(t, err)
	id := idgen.ID(last)
	assert.Equal(t, int64(5), id.WorkerID())
	assert.Equal(t, int64(3), id.DatacenterID())
	assert.Contains(t, rec.Body.String(), id.String())

	rec = httptest.NewRecorder()
	a.Server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "lastid_write_total")
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg, _, err := Load(context.Background(), writeConfig(t, `
log:
  output: stderr
idgen:
  method: static
  worker_id: 300
lastid:
  driver: memory
`), nil)
	require.NoError(t, err)

	_, err = New(context.Background(), cfg)
	assert.ErrorIs(t, err, idgen.ErrInvalidInput)
}

func TestNew_BurstBelowMaxBatch(t *testing.T) {
	cfg, _, err := Load(context.Background(), writeConfig(t, testYAML), nil)
	require.NoError(t, err)
	cfg.RateLimit.Burst = cfg.HTTP.MaxBatch - 1

	_, err = New(context.Background(), cfg)
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
	assert.Equal(t, "RATELIMIT_INVALID", xerrors.GetCode(err))

	cfg.RateLimit.Enabled = false
	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	a.Close(context.Background())
}

func TestRun_StopsOnCancel(t *testing.T) {
	cfg, _, err := Load(context.Background(), writeConfig(t, testYAML), nil)
	require.NoError(t, err)
	a, err := New(context.Background(), cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
}
