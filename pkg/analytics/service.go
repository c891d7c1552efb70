package analytics

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/poh-analytics/pohx/pkg/chains"
	"github.com/poh-analytics/pohx/pkg/subgraph"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Capability keys of the tiered documents.
const (
	globalQueryKey = "globalAnalytics"
	dailyQueryKey  = "dailyAnalytics"
)

// Service answers the dashboard queries for every registered chain.
type Service struct {
	logger   *zap.Logger
	registry *chains.Registry
	factory  subgraph.Factory
	resolver *subgraph.Resolver
	expired  *expirable.LRU[chains.ChainID, int]
}

// Option customises a Service.
type Option func(*Service)

// WithExpiredCache keeps expired counts for ttl. The count walks every expired
// registration, so it is the most expensive read of the dashboard.
func WithExpiredCache(size int, ttl time.Duration) Option {
	return func(s *Service) {
		if size <= 0 || ttl <= 0 {
			return
		}
		s.expired = expirable.NewLRU[chains.ChainID, int](size, nil, ttl)
	}
}

func NewService(logger *zap.Logger, registry *chains.Registry, factory subgraph.Factory, resolver *subgraph.Resolver, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if resolver == nil {
		resolver = subgraph.NewResolver(logger)
	}
	s := &Service{
		logger:   logger,
		registry: registry,
		factory:  factory,
		resolver: resolver,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry returns the chains the service answers for.
func (s *Service) Registry() *chains.Registry { return s.registry }

func (s *Service) client(id chains.ChainID) (chains.Chain, subgraph.Client, error) {
	chain, err := s.registry.Lookup(id)
	if err != nil {
		return chains.Chain{}, nil, err
	}
	return chain, s.factory.NewClient(chain), nil
}

// tiers lists the documents to try on a chain, richest first. Each missing
// optional field steps down one tier.
func tiers(chain chains.Chain) []subgraph.Tier {
	if chain.Features.TracksCredits {
		return []subgraph.Tier{subgraph.TierFull, subgraph.TierStandard, subgraph.TierLegacy}
	}
	return []subgraph.Tier{subgraph.TierStandard, subgraph.TierLegacy}
}

// resolveTiers runs query with the first tier and falls back through the rest.
// Every step below the first is pinned under its own key.
func resolveTiers[T any](ctx context.Context, r *subgraph.Resolver, key string, ts []subgraph.Tier, query func(context.Context, subgraph.Tier) (T, error)) (T, error) {
	if len(ts) == 1 {
		return query(ctx, ts[0])
	}
	return subgraph.Resolve(ctx, r, key,
		func(ctx context.Context) (T, error) {
			return query(ctx, ts[0])
		},
		func(ctx context.Context) (T, error) {
			return resolveTiers(ctx, r, key+"|"+ts[1].String(), ts[1:], query)
		})
}

// GlobalSnapshot reads the lifetime counters of a chain. Counters the deployment
// does not expose are reported as "0".
func (s *Service) GlobalSnapshot(ctx context.Context, id chains.ChainID) (GlobalSnapshot, error) {
	chain, c, err := s.client(id)
	if err != nil {
		return GlobalSnapshot{}, err
	}

	g, err := resolveTiers(ctx, s.resolver, subgraph.Key(c, globalQueryKey), tiers(chain),
		func(ctx context.Context, tier subgraph.Tier) (GlobalSnapshot, error) {
			return subgraph.QueryGlobalAnalytics(ctx, c, tier)
		})
	if err != nil {
		return GlobalSnapshot{}, fmt.Errorf("global analytics %s: %w", id, err)
	}
	g = NormalizeSnapshot(g)
	if !chain.Features.TracksCredits {
		g.SeerCreditsBuys = "0"
		g.SeerCreditsUsers = "0"
	}

	if chain.Features.OutTransfers && counter(g.RegistrationsTransferredOut).IsZero() {
		n, err := s.countOutTransfers(ctx, c)
		if err != nil {
			return GlobalSnapshot{}, fmt.Errorf("out transfers %s: %w", id, err)
		}
		g.RegistrationsTransferredOut = strconv.Itoa(n)
	}
	return g, nil
}

func (s *Service) countOutTransfers(ctx context.Context, c subgraph.Client) (int, error) {
	pager := subgraph.CursorPager(subgraph.PageSize, subgraph.HexCursorStart, subgraph.EntityID,
		func(ctx context.Context, cursor string) ([]subgraph.Entity, error) {
			return subgraph.QueryOutTransfers(ctx, c, cursor)
		})
	return pager.Count(ctx)
}

// RangeStats reads every daily record of r and aggregates them. On chains indexing
// per-day credit users the aggregate carries the distinct wallet count of the range
// instead of the sum of daily counts.
func (s *Service) RangeStats(ctx context.Context, id chains.ChainID, r DayRange) (RangeStats, error) {
	chain, c, err := s.client(id)
	if err != nil {
		return RangeStats{}, err
	}
	start, end := r.Bounds()
	key := subgraph.Key(c, dailyQueryKey)
	ts := tiers(chain)

	pager := subgraph.SkipPager(subgraph.PageSize, func(ctx context.Context, skip int) ([]DailyRecord, error) {
		return resolveTiers(ctx, s.resolver, key, ts,
			func(ctx context.Context, tier subgraph.Tier) ([]DailyRecord, error) {
				return subgraph.QueryDailyAnalytics(ctx, c, tier, start, end, skip)
			})
	})
	rows, err := pager.All(ctx)
	if err != nil {
		return RangeStats{}, fmt.Errorf("daily analytics %s: %w", id, err)
	}
	for i := range rows {
		rows[i] = NormalizeDaily(rows[i])
	}
	s.logger.Debug("Daily analytics fetched",
		zap.String("chain", string(id)),
		zap.Int("days", r.Days()),
		zap.Int("rows", len(rows)))

	out := RangeStats{
		Chain:      id,
		Start:      start,
		End:        end,
		Daily:      rows,
		Aggregated: Aggregate(rows),
	}
	if out.Daily == nil {
		out.Daily = []DailyRecord{}
	}

	if chain.Features.TracksCredits {
		n, err := s.distinctCreditUsers(ctx, c, r)
		if err != nil {
			return RangeStats{}, fmt.Errorf("credit users %s: %w", id, err)
		}
		out.DistinctCreditUsers = &n
		out.Aggregated.SeerCreditsUsers = decimal.NewFromInt(int64(n))
	}
	return out, nil
}

// distinctCreditUsers counts wallets across "<dayStart>-<wallet>" ids of days in r.
// The id bounds compare as strings, so each day is checked again numerically.
func (s *Service) distinctCreditUsers(ctx context.Context, c subgraph.Client, r DayRange) (int, error) {
	start, end := r.Bounds()
	wallets := make(map[string]struct{})
	endID := fmt.Sprintf("%d-", end)
	pager := subgraph.CursorPager(subgraph.PageSize, fmt.Sprintf("%d-", start), subgraph.EntityID,
		func(ctx context.Context, cursor string) ([]subgraph.Entity, error) {
			return subgraph.QueryCreditDailyUsers(ctx, c, cursor, endID)
		})
	err := pager.Walk(ctx, func(page []subgraph.Entity) error {
		for _, row := range page {
			day, wallet, ok := strings.Cut(row.ID, "-")
			if !ok {
				continue
			}
			ts, err := strconv.ParseInt(day, 10, 64)
			if err != nil || !r.Contains(ts) {
				continue
			}
			wallets[strings.ToLower(wallet)] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(wallets), nil
}

// ExpiredCount counts registrations expired at now. Chains carrying legacy
// requests only count humanities without them. With an expired cache, a count
// younger than its ttl is returned regardless of now.
func (s *Service) ExpiredCount(ctx context.Context, id chains.ChainID, now time.Time) (int, error) {
	chain, c, err := s.client(id)
	if err != nil {
		return 0, err
	}
	if s.expired != nil {
		if n, ok := s.expired.Get(id); ok {
			return n, nil
		}
	}
	ts := now.Unix()
	v2Only := chain.Features.LegacyRequests
	pager := subgraph.CursorPager(subgraph.PageSize, subgraph.HexCursorStart, subgraph.EntityID,
		func(ctx context.Context, cursor string) ([]subgraph.Entity, error) {
			return subgraph.QueryExpiredRegistrations(ctx, c, ts, cursor, v2Only)
		})
	n, err := pager.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("expired registrations %s: %w", id, err)
	}
	if s.expired != nil {
		s.expired.Add(id, n)
	}
	return n, nil
}

// Overview combines the snapshot with the expired count. A failed expired count
// is logged and reported as 0.
func (s *Service) Overview(ctx context.Context, id chains.ChainID, now time.Time) (Overview, error) {
	var (
		snap    GlobalSnapshot
		expired int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snap, err = s.GlobalSnapshot(gctx, id)
		return err
	})
	g.Go(func() error {
		n, err := s.ExpiredCount(gctx, id, now)
		if err != nil {
			s.logger.Warn("Expired count failed, reporting zero", zap.String("chain", string(id)), zap.Error(err))
			return nil
		}
		expired = n
		return nil
	})
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}

	return Overview{
		Chain:           id,
		Global:          snap,
		Expired:         expired,
		CurrentVerified: CurrentVerified(snap.VerifiedHumanProfiles, expired),
	}, nil
}

// CurrentVerified is the verified counter minus expired registrations, never negative.
func CurrentVerified(verified string, expired int) int64 {
	v := counter(verified).Sub(decimal.NewFromInt(int64(expired)))
	if v.IsNegative() {
		return 0
	}
	return v.IntPart()
}

// MultiChain reads the snapshot of every registered chain concurrently. A failing
// chain is reported in its entry without affecting the others.
func (s *Service) MultiChain(ctx context.Context) []ChainSnapshot {
	all := s.registry.All()
	out := make([]ChainSnapshot, len(all))

	var g errgroup.Group
	for i, chain := range all {
		g.Go(func() error {
			out[i] = ChainSnapshot{Chain: chain.ID}
			snap, err := s.GlobalSnapshot(ctx, chain.ID)
			if err != nil {
				s.logger.Error("Global snapshot failed", zap.String("chain", string(chain.ID)), zap.Error(err))
				out[i].Error = err.Error()
				return nil
			}
			out[i].Global = &snap
			return nil
		})
	}
	_ = g.Wait()
	return out
}
