package credits

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeComputer struct {
	stats Stats
	err   error
	scans atomic.Int32
}

func (f *fakeComputer) Scan(context.Context) (Stats, error) {
	f.scans.Add(1)
	return f.stats, f.err
}

type brokenStore struct{}

func (brokenStore) GetJSON(context.Context, string, any) (bool, error) {
	return false, errors.New("connection refused")
}

func (brokenStore) SetJSON(context.Context, string, any) error {
	return errors.New("connection refused")
}

func newTestEngine(t *testing.T, c Computer, store CacheStore, now *time.Time) *Engine {
	e := NewEngine(zaptest.NewLogger(t), c, store, "seer-credits-stats:test", 5*time.Minute)
	e.now = func() time.Time { return *now }
	return e
}

func TestEngineServesFreshCache(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	computer := &fakeComputer{stats: Stats{TotalTradesUsingCredits: 12, UniqueWalletsUsingCredits: 4}}
	e := newTestEngine(t, computer, NewMemoryStore(), &now)
	ctx := context.Background()

	s, err := e.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, computer.stats, s)
	assert.EqualValues(t, 1, computer.scans.Load())

	now = now.Add(299_999 * time.Millisecond)
	s, err = e.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, computer.stats, s)
	assert.EqualValues(t, 1, computer.scans.Load(), "record younger than the ttl is served")

	now = time.UnixMilli(1_700_000_000_000).Add(300_000 * time.Millisecond)
	_, err = e.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, computer.scans.Load(), "record as old as the ttl is recomputed")
}

func TestEngineRejectsIncompleteRecord(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	store := NewMemoryStore()
	ms := now.UnixMilli()
	total := 99
	require.NoError(t, store.SetJSON(context.Background(), "seer-credits-stats:test", CachedStats{
		UpdatedAt: &ms,
		Stats:     &cachedCount{TotalTradesUsingCredits: &total},
	}))

	computer := &fakeComputer{stats: Stats{TotalTradesUsingCredits: 1, UniqueWalletsUsingCredits: 1}}
	e := newTestEngine(t, computer, store, &now)

	s, err := e.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, computer.stats, s)
	assert.EqualValues(t, 1, computer.scans.Load())
}

func TestEngineStoreRoundTrip(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	store := NewMemoryStore()
	e := newTestEngine(t, &fakeComputer{stats: Stats{TotalTradesUsingCredits: 5, UniqueWalletsUsingCredits: 3}}, store, &now)

	_, err := e.Refresh(context.Background())
	require.NoError(t, err)

	var raw map[string]any
	found, err := store.GetJSON(context.Background(), "seer-credits-stats:test", &raw)
	require.NoError(t, err)
	require.True(t, found)
	assert.EqualValues(t, 1_700_000_000_000, raw["updatedAt"])
	assert.Equal(t, map[string]any{"totalTradesUsingCredits": float64(5), "uniqueWalletsUsingCredits": float64(3)}, raw["stats"])
}

func TestEngineToleratesBrokenStore(t *testing.T) {
	now := time.Now()
	computer := &fakeComputer{stats: Stats{TotalTradesUsingCredits: 2, UniqueWalletsUsingCredits: 2}}
	e := newTestEngine(t, computer, brokenStore{}, &now)

	s, err := e.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, computer.stats, s)
}

func TestEngineSurfacesScanErrors(t *testing.T) {
	now := time.Now()
	e := newTestEngine(t, &fakeComputer{err: errors.New("rpc down")}, NewMemoryStore(), &now)

	_, err := e.Stats(context.Background())
	require.EqualError(t, err, "rpc down")
}

func TestEngineRefreshAlwaysScans(t *testing.T) {
	now := time.Now()
	computer := &fakeComputer{}
	e := newTestEngine(t, computer, NewMemoryStore(), &now)

	for range 3 {
		_, err := e.Refresh(context.Background())
		require.NoError(t, err)
	}
	assert.EqualValues(t, 3, computer.scans.Load())
}

func TestEngineServesStaleRecordWhenScanFails(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	store := NewMemoryStore()
	require.NoError(t, store.SetJSON(context.Background(), "seer-credits-stats:test",
		newCachedStats(Stats{TotalTradesUsingCredits: 8, UniqueWalletsUsingCredits: 3}, now.Add(-time.Hour))))

	computer := &fakeComputer{err: errors.New("rpc down")}
	e := newTestEngine(t, computer, store, &now)

	s, err := e.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{TotalTradesUsingCredits: 8, UniqueWalletsUsingCredits: 3}, s)
	assert.EqualValues(t, 1, computer.scans.Load())
}

// gatedComputer blocks every scan until release is closed.
type gatedComputer struct {
	started chan struct{}
	release chan struct{}
	scans   atomic.Int32
	scanErr atomic.Value
}

func (g *gatedComputer) Scan(ctx context.Context) (Stats, error) {
	if g.scans.Add(1) == 1 {
		close(g.started)
	}
	<-g.release
	if err := ctx.Err(); err != nil {
		g.scanErr.Store(err)
		return Stats{}, err
	}
	return Stats{TotalTradesUsingCredits: 4, UniqueWalletsUsingCredits: 2}, nil
}

func TestEngineScanOutlivesCancelledCaller(t *testing.T) {
	now := time.Now()
	computer := &gatedComputer{started: make(chan struct{}), release: make(chan struct{})}
	e := newTestEngine(t, computer, NewMemoryStore(), &now)

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := e.Refresh(first)
		firstErr <- err
	}()
	<-computer.started

	type result struct {
		stats Stats
		err   error
	}
	second := make(chan result, 1)
	go func() {
		s, err := e.Refresh(context.Background())
		second <- result{s, err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancel()
	require.ErrorIs(t, <-firstErr, context.Canceled)

	close(computer.release)
	res := <-second
	require.NoError(t, res.err)
	assert.Equal(t, Stats{TotalTradesUsingCredits: 4, UniqueWalletsUsingCredits: 2}, res.stats)
	assert.EqualValues(t, 1, computer.scans.Load())
	assert.Nil(t, computer.scanErr.Load())

	var rec CachedStats
	found, err := e.store.GetJSON(context.Background(), e.key, &rec)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestEngineScanTimeout(t *testing.T) {
	now := time.Now()
	computer := &gatedComputer{started: make(chan struct{}), release: make(chan struct{})}
	e := NewEngine(zaptest.NewLogger(t), computer, NewMemoryStore(), "k", time.Minute, WithScanTimeout(20*time.Millisecond))
	e.now = func() time.Time { return now }

	go func() {
		<-computer.started
		time.Sleep(100 * time.Millisecond)
		close(computer.release)
	}()

	_, err := e.Refresh(context.Background())
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
