package controller

import (
	"net/http"
	"time"

	"github.com/poh-analytics/pohx/app/query/types"
	"github.com/poh-analytics/pohx/pkg/analytics"
	"go.uber.org/zap"
)

// HandleChains lists the registered chains.
func (c *Controller) HandleChains(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, types.ChainsResponse{Chains: c.App.Registry.All()})
}

// HandleStats returns the lifetime counters of every chain.
func (c *Controller) HandleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.StatsResponse{Chains: c.App.Analytics.MultiChain(r.Context())})
}

// HandleGlobal returns the lifetime counters of one chain.
func (c *Controller) HandleGlobal(w http.ResponseWriter, r *http.Request) {
	id, ok := c.chainParam(w, r)
	if !ok {
		return
	}

	g, err := c.App.Analytics.GlobalSnapshot(r.Context(), id)
	if err != nil {
		c.App.Logger.Error("Global snapshot failed", zap.String("chain", string(id)), zap.Error(err))
		g = analytics.NormalizeSnapshot(analytics.GlobalSnapshot{})
	}
	writeJSON(w, http.StatusOK, g)
}

// HandleExpired returns the number of expired registrations of one chain.
func (c *Controller) HandleExpired(w http.ResponseWriter, r *http.Request) {
	id, ok := c.chainParam(w, r)
	if !ok {
		return
	}

	n, err := c.App.Analytics.ExpiredCount(r.Context(), id, time.Now())
	if err != nil {
		c.App.Logger.Error("Expired count failed", zap.String("chain", string(id)), zap.Error(err))
		n = 0
	}
	writeJSON(w, http.StatusOK, types.ExpiredResponse{Chain: id, Expired: n})
}

// HandleOverview returns the snapshot, expired count and currently verified profiles of one chain.
func (c *Controller) HandleOverview(w http.ResponseWriter, r *http.Request) {
	id, ok := c.chainParam(w, r)
	if !ok {
		return
	}

	o, err := c.App.Analytics.Overview(r.Context(), id, time.Now())
	if err != nil {
		c.App.Logger.Error("Overview failed", zap.String("chain", string(id)), zap.Error(err))
		o = analytics.Overview{Chain: id, Global: analytics.NormalizeSnapshot(analytics.GlobalSnapshot{})}
	}
	writeJSON(w, http.StatusOK, o)
}

// HandleRange returns the daily series of a range and its aggregate.
func (c *Controller) HandleRange(w http.ResponseWriter, r *http.Request) {
	id, ok := c.chainParam(w, r)
	if !ok {
		return
	}
	dr, err := parseDayRange(r, time.Now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	stats, err := c.App.Analytics.RangeStats(r.Context(), id, dr)
	if err != nil {
		c.App.Logger.Error("Range stats failed", zap.String("chain", string(id)), zap.Error(err))
		start, end := dr.Bounds()
		stats = analytics.RangeStats{
			Chain:      id,
			Start:      start,
			End:        end,
			Daily:      []analytics.DailyRecord{},
			Aggregated: analytics.Aggregate(nil),
		}
	}
	writeJSON(w, http.StatusOK, stats)
}
