package idgen

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/flake/clog"
)

func newStaticGenerator(t *testing.T, opts ...Option) *Generator {
	t.Helper()
	g, err := New(&Config{Method: MethodStatic, WorkerID: 5, DatacenterID: 3}, opts...)
	require.NoError(t, err)
	return g
}

func TestNew(t *testing.T) {
	hostOK := stubIdentity{hostname: "flake-node-1", addrs: []net.Addr{ipNet("127.0.0.1"), ipNet("10.0.0.7")}}

	tests := []struct {
		name     string
		cfg      *Config
		provider IdentityProvider
		want     Identity
		wantErr  error
	}{
		{name: "nil config uses host identity", cfg: nil, provider: hostOK,
			want: Identity{WorkerID: 244, DatacenterID: 6, Hostname: "flake-node-1", Address: "10.0.0.7"}},
		{name: "static", cfg: &Config{Method: MethodStatic, WorkerID: 255, DatacenterID: 15},
			want: Identity{WorkerID: 255, DatacenterID: 15}},
		{name: "static worker out of range", cfg: &Config{Method: MethodStatic, WorkerID: 256}, wantErr: ErrInvalidInput},
		{name: "static datacenter out of range", cfg: &Config{Method: MethodStatic, DatacenterID: 16}, wantErr: ErrInvalidInput},
		{name: "static negative worker", cfg: &Config{Method: MethodStatic, WorkerID: -1}, wantErr: ErrInvalidInput},
		{name: "unknown method", cfg: &Config{Method: "redis"}, wantErr: ErrInvalidInput},
		{name: "negative epoch", cfg: &Config{Method: MethodStatic, Epoch: -1}, wantErr: ErrInvalidInput},
		{name: "no routable address is fatal", cfg: &Config{Method: MethodHost},
			provider: stubIdentity{hostname: "flake-node-1", addrs: []net.Addr{ipNet("127.0.0.1")}},
			wantErr:  ErrNoAddressFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := New(tt.cfg, WithIdentityProvider(tt.provider), WithLogger(clog.Discard()))
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, g, "no generator may be usable without identity")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, g.Identity())
			assert.Equal(t, DefaultEpoch, g.Epoch())
		})
	}
}

func TestNext_ConcreteScenario(t *testing.T) {
	clock := newFakeClock(DefaultEpoch, 1000)
	g := newStaticGenerator(t, WithClock(clock))
	ctx := context.Background()

	first, err := g.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, ID(1000<<22|3<<18|5<<10|0), first)

	second, err := g.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, first+1, second)
	assert.Equal(t, first.Timestamp(), second.Timestamp())
	assert.Equal(t, int64(1), second.Sequence())
}

func TestNext_NewMillisecondResetsSequence(t *testing.T) {
	clock := newFakeClock(DefaultEpoch, 1000)
	g := newStaticGenerator(t, WithClock(clock))
	ctx := context.Background()

	for range 3 {
		_, err := g.Next(ctx)
		require.NoError(t, err)
	}

	clock.Set(DefaultEpoch, 1007)
	id, err := g.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1007), id.Timestamp())
	assert.Equal(t, int64(0), id.Sequence())
}

func TestNext_SequenceWrap(t *testing.T) {
	tests := []struct {
		name string
		step time.Duration
	}{
		{name: "clock creeps forward", step: 0},
		{name: "clock jumps far ahead", step: 25 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newFakeClock(DefaultEpoch, 1000)
			clock.step = tt.step
			meter := newCountingMeter()
			g := newStaticGenerator(t, WithClock(clock), WithMeter(meter))
			ctx := context.Background()

			for want := int64(0); want < SequenceSpace; want++ {
				id, err := g.Next(ctx)
				require.NoError(t, err)
				require.Equal(t, int64(1000), id.Timestamp())
				require.Equal(t, want, id.Sequence())
			}
			assert.Zero(t, clock.Sleeps(), "no wait before the sequence wraps")

			wrapped, err := g.Next(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(1001), wrapped.Timestamp(), "timestamp advances by exactly one")
			assert.Equal(t, int64(0), wrapped.Sequence())
			assert.Positive(t, clock.Sleeps())
			assert.Equal(t, float64(1), meter.Count(MetricSequenceExhausted))
			assert.Equal(t, float64(SequenceSpace+1), meter.Count(MetricSnowflakeGenerated))
		})
	}
}

// 序列号与 10 位字段同宽，同一毫秒内 4097 次调用跨越四次回绕且不重复
func TestNext_SequenceSpaceMatchesField(t *testing.T) {
	require.Equal(t, int64(1)<<SequenceBits, int64(SequenceSpace))

	clock := newFakeClock(DefaultEpoch, 1000)
	g := newStaticGenerator(t, WithClock(clock))
	ctx := context.Background()

	seen := make(map[ID]struct{}, 4097)
	var last ID
	for range 4097 {
		id, err := g.Next(ctx)
		require.NoError(t, err)
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
		last = id
	}
	assert.Equal(t, int64(1004), last.Timestamp())
	assert.Equal(t, int64(0), last.Sequence())
}

func TestNext_ClockRegressionIsClamped(t *testing.T) {
	clock := newFakeClock(DefaultEpoch, 1000)
	meter := newCountingMeter()
	g := newStaticGenerator(t, WithClock(clock), WithMeter(meter))
	ctx := context.Background()

	before, err := g.Next(ctx)
	require.NoError(t, err)

	clock.Set(DefaultEpoch, 900)
	after, err := g.Next(ctx)
	require.NoError(t, err, "clock regression is not an error")

	assert.Greater(t, after, before)
	assert.Equal(t, int64(1000), after.Timestamp())
	assert.Equal(t, int64(1), after.Sequence())
	assert.Equal(t, float64(1), meter.Count(MetricClockRegressions))

	clock.Set(DefaultEpoch, 1001)
	recovered, err := g.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1001), recovered.Timestamp())
	assert.Equal(t, int64(0), recovered.Sequence())
}

func TestNext_ContextCanceledDuringWait(t *testing.T) {
	clock := newFakeClock(DefaultEpoch, 1000)
	meter := newCountingMeter()
	g := newStaticGenerator(t, WithClock(clock), WithMeter(meter))

	for range SequenceSpace {
		_, err := g.Next(context.Background())
		require.NoError(t, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	id, err := g.Next(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, id)

	// 状态未被修改：下一次调用仍然从回绕处继续
	id, err = g.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1001), id.Timestamp())
	assert.Equal(t, int64(0), id.Sequence())
	assert.Equal(t, float64(SequenceSpace+1), meter.Count(MetricSnowflakeGenerated))
}

func TestNext_PersistsEveryID(t *testing.T) {
	store := &recordingStore{}
	g := newStaticGenerator(t, WithClock(newFakeClock(DefaultEpoch, 1000)), WithStore(store))
	ctx := context.Background()

	var issued []uint64
	for range 3 {
		id, err := g.Next(ctx)
		require.NoError(t, err)
		issued = append(issued, uint64(id))
	}
	assert.Equal(t, issued, store.Writes())
}

func TestNext_PersistenceFailure(t *testing.T) {
	diskFull := errors.New("no space left on device")
	store := &recordingStore{err: diskFull}
	meter := newCountingMeter()
	g := newStaticGenerator(t,
		WithClock(newFakeClock(DefaultEpoch, 1000)),
		WithStore(store),
		WithMeter(meter),
	)
	ctx := context.Background()

	id, err := g.Next(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, diskFull)
	assert.Equal(t, ID(1000<<22|3<<18|5<<10), id, "the id is still valid")
	assert.Equal(t, float64(1), meter.Count(MetricPersistFailures))

	store.mu.Lock()
	store.err = nil
	store.mu.Unlock()

	next, err := g.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), next.Sequence(), "state advanced despite the failed write")
	assert.Equal(t, []uint64{uint64(next)}, store.Writes())
}

func TestNextString(t *testing.T) {
	store := &recordingStore{err: errors.New("read-only file system")}
	g := newStaticGenerator(t, WithClock(newFakeClock(DefaultEpoch, 1000)), WithStore(store))

	s, err := g.NextString(context.Background())
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Equal(t, "4195095552", s)
}

func TestNextN(t *testing.T) {
	store := &recordingStore{}
	g := newStaticGenerator(t, WithClock(newFakeClock(DefaultEpoch, 1000)), WithStore(store))
	ctx := context.Background()

	ids, err := g.NextN(ctx, 5)
	require.NoError(t, err)
	require.Len(t, ids, 5)
	for i, id := range ids {
		assert.Equal(t, int64(i), id.Sequence())
	}
	assert.Equal(t, []uint64{uint64(ids[4])}, store.Writes(), "a batch is one audit record")

	_, err = g.NextN(ctx, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestNext_UniqueAndMonotonic(t *testing.T) {
	g := newStaticGenerator(t)
	ctx := context.Background()

	var prev ID
	for range 5000 {
		id, err := g.Next(ctx)
		require.NoError(t, err)
		require.GreaterOrEqual(t, id, prev)
		require.NotEqual(t, id, prev)
		prev = id
	}
}

func TestNext_ConcurrentUniqueness(t *testing.T) {
	g := newStaticGenerator(t)
	ctx := context.Background()

	const workers, perWorker = 8, 2000
	results := make([][]ID, workers)

	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids := make([]ID, 0, perWorker)
			for range perWorker {
				id, err := g.Next(ctx)
				if err != nil {
					t.Error(err)
					return
				}
				ids = append(ids, id)
			}
			results[w] = ids
		}()
	}
	wg.Wait()

	seen := make(map[ID]struct{}, workers*perWorker)
	for _, ids := range results {
		for i, id := range ids {
			if i > 0 {
				assert.Greater(t, id, ids[i-1], "each caller observes increasing ids")
			}
			_, dup := seen[id]
			require.False(t, dup, "duplicate id %d", id)
			seen[id] = struct{}{}
		}
	}
	assert.Len(t, seen, workers*perWorker)
}

func TestNext_RoundTripWithSystemClock(t *testing.T) {
	g, err := New(nil, WithIdentityProvider(stubIdentity{
		hostname: "flake-node-1",
		addrs:    []net.Addr{ipNet("10.0.0.7")},
	}))
	require.NoError(t, err)

	before := time.Now().UnixMilli() - DefaultEpoch
	id, err := g.Next(context.Background())
	require.NoError(t, err)

	parts := Decompose(id, g.Epoch())
	assert.GreaterOrEqual(t, parts.Timestamp, before)
	assert.Equal(t, g.Identity().WorkerID, parts.WorkerID)
	assert.Equal(t, g.Identity().DatacenterID, parts.DatacenterID)
	assert.WithinDuration(t, time.Now(), parts.Time, time.Second)
}

func TestNext_PersistedValueNeverMovesBackwards(t *testing.T) {
	store := &recordingStore{}
	g := newStaticGenerator(t, WithStore(store))
	ctx := context.Background()

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		maxID ID
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 500 {
				id, err := g.Next(ctx)
				if err != nil {
					t.Error(err)
					return
				}
				mu.Lock()
				if id > maxID {
					maxID = id
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	writes := store.Writes()
	require.NotEmpty(t, writes)
	for i := 1; i < len(writes); i++ {
		assert.Greater(t, writes[i], writes[i-1])
	}
	assert.Equal(t, uint64(maxID), writes[len(writes)-1], "the stored value is the newest id")
}
