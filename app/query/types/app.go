package types

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/poh-analytics/pohx/pkg/analytics"
	"github.com/poh-analytics/pohx/pkg/chains"
	"github.com/poh-analytics/pohx/pkg/config"
	"github.com/poh-analytics/pohx/pkg/credits"
	"go.uber.org/zap"
)

// CreditStats is the part of the credit usage engine the API reads.
type CreditStats interface {
	Stats(ctx context.Context) (credits.Stats, error)
}

// HealthChecker reports the state of an optional backing service.
type HealthChecker interface {
	Health(ctx context.Context) error
}

type App struct {
	Config    config.Config
	Registry  *chains.Registry
	Analytics *analytics.Service
	// Credits is nil when the gnosis node could not be reached at startup.
	Credits CreditStats
	// Cache is set when credit usage is cached in Redis.
	Cache HealthChecker
	// Deps are closed on shutdown.
	Deps *credits.Deps
	// Zap Logger
	Logger *zap.Logger
	// Server represents the HTTP server instance used to handle incoming client requests and manage HTTP routes.
	Server *http.Server
}

// Start starts the application.
func (a *App) Start(ctx context.Context) {
	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.Error("Server stopped", zap.Error(err))
		}
	}()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = a.Server.Shutdown(shutdownCtx)
	a.Deps.Close()
	time.Sleep(200 * time.Millisecond)
	a.Logger.Info("さようなら!")
}
