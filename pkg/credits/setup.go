package credits

import (
	"context"
	"fmt"

	"github.com/poh-analytics/pohx/pkg/chains"
	"github.com/poh-analytics/pohx/pkg/config"
	"github.com/poh-analytics/pohx/pkg/evm"
	"github.com/poh-analytics/pohx/pkg/redis"
	"github.com/poh-analytics/pohx/pkg/retry"
	"github.com/poh-analytics/pohx/pkg/subgraph"
	"go.uber.org/zap"
)

// Deps holds the connections opened by Setup.
type Deps struct {
	EVM   *evm.Lazy
	Redis *redis.Client
}

// Close releases every connection.
func (d *Deps) Close() {
	if d == nil {
		return
	}
	if d.EVM != nil {
		d.EVM.Close()
	}
	if d.Redis != nil {
		_ = d.Redis.Close()
	}
}

// Setup wires an Engine over the gnosis node and the cache store. An
// unreachable node is dialed again on the next scan, so the cached record is
// still served meanwhile. Redis is optional: when disabled or unreachable the
// engine caches in memory.
func Setup(ctx context.Context, logger *zap.Logger, cfg config.Config, registry *chains.Registry, factory subgraph.Factory) (*Engine, *Deps, error) {
	deps := &Deps{}

	node := evm.NewLazy(logger, cfg.RPC.GnosisURL, retry.DefaultConfig())
	if _, err := node.Connect(ctx); err != nil {
		logger.Warn("Gnosis RPC unreachable, will dial again on the next scan", zap.Error(err))
	}
	deps.EVM = node

	var store CacheStore = NewMemoryStore()
	if cfg.Redis.Enabled {
		rc, err := redis.NewClient(ctx, logger, cfg.Redis)
		if err != nil {
			logger.Warn("Failed to initialize Redis client - credit usage will be cached in memory", zap.Error(err))
		} else {
			deps.Redis = rc
			store = rc
		}
	} else {
		logger.Info("Redis disabled - credit usage will be cached in memory")
	}

	all := registry.All()
	clients := make([]subgraph.Client, 0, len(all))
	for _, chain := range all {
		clients = append(clients, factory.NewClient(chain))
	}
	identities := NewIdentityChecker(cfg.Credits.IdentityBatch, clients...)

	scanner, err := NewScanner(logger, cfg.Credits, node, identities)
	if err != nil {
		deps.Close()
		return nil, nil, fmt.Errorf("credit scanner: %w", err)
	}

	engine := NewEngine(logger, scanner, store, cfg.Credits.CacheKey, cfg.Credits.CacheTTL,
		WithScanTimeout(cfg.Credits.RefreshTimeout))
	return engine, deps, nil
}
