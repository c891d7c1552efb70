package reporter

import (
	"context"
	"strconv"
	"time"

	"github.com/poh-analytics/pohx/pkg/chains"
	"github.com/poh-analytics/pohx/pkg/config"
	"github.com/poh-analytics/pohx/pkg/credits"
	"github.com/poh-analytics/pohx/pkg/logging"
	"github.com/poh-analytics/pohx/pkg/metrics"
	"github.com/poh-analytics/pohx/pkg/redis"
	"github.com/poh-analytics/pohx/pkg/subgraph"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Refresher recomputes the credit usage record. *credits.Engine implements it.
type Refresher interface {
	Refresh(ctx context.Context) (credits.Stats, error)
}

// Publisher announces a rewritten record. *redis.Client implements it.
type Publisher interface {
	Publish(ctx context.Context, channel string, message any)
}

// App keeps the credit usage cache warm so API requests never pay for a full scan.
type App struct {
	// Cron triggers a refresh according to CronSpec.
	Cron     *cron.Cron
	CronSpec string
	Timeout  time.Duration

	Engine Refresher
	// Publisher is nil when Redis is disabled.
	Publisher Publisher
	Deps      *credits.Deps

	Logger *zap.Logger
}

// Initialize initializes the application.
func Initialize(ctx context.Context) *App {
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
	engine, deps, err := credits.Setup(ctx, logger, cfg, registry, factory)
	if err != nil {
		logger.Fatal("Unable to initialize credit usage engine", zap.Error(err))
	}

	app := &App{
		CronSpec: cfg.Credits.RefreshCron,
		Timeout:  cfg.Credits.RefreshTimeout,
		Engine:   engine,
		Deps:     deps,
		Logger:   logger,
	}
	if deps.Redis != nil {
		app.Publisher = deps.Redis
	}

	if err := app.SetupScheduler(ctx); err != nil {
		logger.Fatal("Unable to schedule credit usage refresh", zap.Error(err), zap.String("cronSpec", app.CronSpec))
	}
	return app
}

// SetupScheduler sets up the cron scheduler.
func (a *App) SetupScheduler(ctx context.Context) error {
	// Seconds field, optional
	a.Cron = cron.New(
		cron.WithSeconds(),
		cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger), cron.Recover(cron.DefaultLogger)),
	)

	_, err := a.Cron.AddFunc(a.CronSpec, func() { a.RefreshOnce(ctx) })
	return err
}

// RefreshOnce runs one bounded refresh. Failures are logged and retried on the next tick.
func (a *App) RefreshOnce(ctx context.Context) {
	timeout := a.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Minute
	}
	rctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	started := time.Now()
	stats, err := a.Engine.Refresh(rctx)
	if err != nil {
		a.Logger.Error("[reporter] credit usage refresh failed", zap.Error(err), zap.Duration("elapsed", time.Since(started)))
		return
	}

	a.Logger.Info("[reporter] credit usage refreshed",
		zap.Int("trades", stats.TotalTradesUsingCredits),
		zap.Int("wallets", stats.UniqueWalletsUsingCredits),
		zap.Duration("elapsed", time.Since(started)))

	if a.Publisher != nil {
		a.Publisher.Publish(ctx, redis.CreditsUpdatedChannel, strconv.FormatInt(time.Now().UnixMilli(), 10))
	}
}

// Start warms the cache, starts the cron scheduler and blocks until the context is canceled.
func (a *App) Start(ctx context.Context) {
	go a.RefreshOnce(ctx)
	a.Cron.Start()
	a.Logger.Info("[reporter] Cron started", zap.String("cronSpec", a.CronSpec))
	<-ctx.Done()
	a.Stop()
}

// Stop stops the scheduler and closes connections.
func (a *App) Stop() {
	if a.Cron != nil {
		<-a.Cron.Stop().Done()
	}
	a.Deps.Close()
	time.Sleep(200 * time.Millisecond)
	a.Logger.Info("さようなら!")
}
