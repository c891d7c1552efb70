package controller

import (
	"errors"
	"net/http"

	"github.com/poh-analytics/pohx/pkg/credits"
	"go.uber.org/zap"
)

const creditsCacheControl = "public, s-maxage=300, stale-while-revalidate=600"

var errCreditsUnavailable = errors.New("credit usage engine not configured")

// HandleSeerCreditsStats returns credit usage by wallets with an active registration.
// Failures are answered with zero counts and without cache headers.
func (c *Controller) HandleSeerCreditsStats(w http.ResponseWriter, r *http.Request) {
	var (
		stats credits.Stats
		err   = errCreditsUnavailable
	)
	if c.App.Credits != nil {
		stats, err = c.App.Credits.Stats(r.Context())
	}
	if err != nil {
		c.App.Logger.Error("Failed to fetch credit usage stats", zap.Error(err))
		writeJSON(w, http.StatusOK, credits.Stats{})
		return
	}

	w.Header().Set("Cache-Control", creditsCacheControl)
	writeJSON(w, http.StatusOK, stats)
}
