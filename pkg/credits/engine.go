package credits

import (
	"context"
	"time"

	"github.com/poh-analytics/pohx/pkg/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultTTL is how long a computed Stats record is served from the cache.
const DefaultTTL = 5 * time.Minute

// Computer produces fresh Stats. *Scanner implements it.
type Computer interface {
	Scan(ctx context.Context) (Stats, error)
}

// CachedStats is the persisted form of Stats. Pointers tell absent fields apart
// from zero counts in records written by other versions.
type CachedStats struct {
	UpdatedAt *int64       `json:"updatedAt"`
	Stats     *cachedCount `json:"stats"`
}

type cachedCount struct {
	TotalTradesUsingCredits   *int `json:"totalTradesUsingCredits"`
	UniqueWalletsUsingCredits *int `json:"uniqueWalletsUsingCredits"`
}

func newCachedStats(s Stats, at time.Time) CachedStats {
	ms := at.UnixMilli()
	return CachedStats{
		UpdatedAt: &ms,
		Stats: &cachedCount{
			TotalTradesUsingCredits:   &s.TotalTradesUsingCredits,
			UniqueWalletsUsingCredits: &s.UniqueWalletsUsingCredits,
		},
	}
}

// complete reports whether every field of the record is present.
func (c CachedStats) complete() (Stats, bool) {
	if c.UpdatedAt == nil || c.Stats == nil ||
		c.Stats.TotalTradesUsingCredits == nil || c.Stats.UniqueWalletsUsingCredits == nil {
		return Stats{}, false
	}
	return Stats{
		TotalTradesUsingCredits:   *c.Stats.TotalTradesUsingCredits,
		UniqueWalletsUsingCredits: *c.Stats.UniqueWalletsUsingCredits,
	}, true
}

// fresh reports whether the record is complete and younger than ttl at now.
func (c CachedStats) fresh(now time.Time, ttl time.Duration) (Stats, bool) {
	s, ok := c.complete()
	if !ok || now.UnixMilli()-*c.UpdatedAt >= ttl.Milliseconds() {
		return Stats{}, false
	}
	return s, true
}

// Engine serves Stats from the cache store and recomputes them once stale.
// Concurrent recomputations are collapsed into one scan, which outlives the
// callers that started it.
type Engine struct {
	logger      *zap.Logger
	computer    Computer
	store       CacheStore
	key         string
	ttl         time.Duration
	scanTimeout time.Duration
	now         func() time.Time
	flight      singleflight.Group
}

// EngineOption customises an Engine.
type EngineOption func(*Engine)

// WithScanTimeout bounds every scan. Zero leaves scans unbounded.
func WithScanTimeout(d time.Duration) EngineOption {
	return func(e *Engine) { e.scanTimeout = d }
}

func NewEngine(logger *zap.Logger, computer Computer, store CacheStore, key string, ttl time.Duration, opts ...EngineOption) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	e := &Engine{
		logger:   logger,
		computer: computer,
		store:    store,
		key:      key,
		ttl:      ttl,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Stats returns the cached record when it is fresh, and otherwise a new scan.
// When the scan fails a complete stale record is served instead. Cache
// failures never fail the call.
func (e *Engine) Stats(ctx context.Context) (Stats, error) {
	rec := e.cached(ctx)
	if s, ok := rec.fresh(e.now(), e.ttl); ok {
		return s, nil
	}

	s, err := e.Refresh(ctx)
	if err == nil {
		return s, nil
	}
	if stale, ok := rec.complete(); ok {
		metrics.CreditsCache.WithLabelValues("stale_served").Inc()
		e.logger.Warn("Credit usage scan failed, serving stale record", zap.String("key", e.key), zap.Error(err))
		return stale, nil
	}
	return Stats{}, err
}

// Refresh always rescans and stores the result. The scan does not stop when
// ctx is cancelled; only the wait for it does.
func (e *Engine) Refresh(ctx context.Context) (Stats, error) {
	ch := e.flight.DoChan(e.key, func() (any, error) {
		sctx := context.WithoutCancel(ctx)
		if e.scanTimeout > 0 {
			var cancel context.CancelFunc
			sctx, cancel = context.WithTimeout(sctx, e.scanTimeout)
			defer cancel()
		}

		s, err := e.computer.Scan(sctx)
		if err != nil {
			return Stats{}, err
		}
		if err := e.store.SetJSON(sctx, e.key, newCachedStats(s, e.now())); err != nil {
			e.logger.Warn("Failed to write credit usage cache", zap.String("key", e.key), zap.Error(err))
		}
		return s, nil
	})

	select {
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Stats{}, res.Err
		}
		return res.Val.(Stats), nil
	}
}

// cached reads the stored record. Missing or unreadable records come back empty.
func (e *Engine) cached(ctx context.Context) CachedStats {
	var rec CachedStats
	found, err := e.store.GetJSON(ctx, e.key, &rec)
	switch {
	case err != nil:
		metrics.CreditsCache.WithLabelValues("error").Inc()
		e.logger.Warn("Failed to read credit usage cache", zap.String("key", e.key), zap.Error(err))
		return CachedStats{}
	case !found:
		metrics.CreditsCache.WithLabelValues("miss").Inc()
		return CachedStats{}
	}

	if _, ok := rec.fresh(e.now(), e.ttl); !ok {
		metrics.CreditsCache.WithLabelValues("stale").Inc()
		return rec
	}
	metrics.CreditsCache.WithLabelValues("hit").Inc()
	return rec
}
