package query

import (
	"context"

	"github.com/poh-analytics/pohx/app/query/types"
	"github.com/poh-analytics/pohx/pkg/analytics"
	"github.com/poh-analytics/pohx/pkg/chains"
	"github.com/poh-analytics/pohx/pkg/config"
	"github.com/poh-analytics/pohx/pkg/credits"
	"github.com/poh-analytics/pohx/pkg/logging"
	"github.com/poh-analytics/pohx/pkg/metrics"
	"github.com/poh-analytics/pohx/pkg/subgraph"
	"go.uber.org/zap"
)

// Initialize initializes the application.
func Initialize(ctx context.Context) *types.App {
	cfg, err := config.Load()
	if err != nil {
		// no logger yet, nothing else to do here
		panic(err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		// nothing else to do here, we'll just log to stderr'
		panic(err)
	}

	metrics.Init()

	registry := chains.NewRegistry(cfg.Subgraph)
	factory := subgraph.NewHTTPFactory(nil, cfg.Subgraph.Timeout)
	service := analytics.NewService(
		logger,
		registry,
		factory,
		subgraph.NewResolver(logger),
		analytics.WithExpiredCache(cfg.App.ExpiredEntries, cfg.App.ExpiredTTL),
	)

	app := &types.App{
		Config:    cfg,
		Registry:  registry,
		Analytics: service,
		Logger:    logger,
	}

	// Only a misconfigured scanner disables credit usage; the dashboard is served regardless.
	engine, deps, err := credits.Setup(ctx, logger, cfg, registry, factory)
	if err != nil {
		logger.Error("Credit usage engine disabled", zap.Error(err))
	} else {
		app.Credits = engine
		app.Deps = deps
		if deps.Redis != nil {
			app.Cache = deps.Redis
		}
	}

	return app
}
