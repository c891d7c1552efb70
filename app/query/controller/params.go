package controller

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/poh-analytics/pohx/pkg/analytics"
	"github.com/poh-analytics/pohx/pkg/chains"
)

var errMixedRange = errors.New("use either start/end or preset")

// chainParam resolves the {id} path variable. It writes a 404 and returns false for unknown chains.
func (c *Controller) chainParam(w http.ResponseWriter, r *http.Request) (chains.ChainID, bool) {
	id := chains.ChainID(mux.Vars(r)["id"])
	if _, err := c.App.Registry.Lookup(id); err != nil {
		writeError(w, http.StatusNotFound, err)
		return "", false
	}
	return id, true
}

// parseDayRange reads start/end (YYYY-MM-DD) or preset; with neither it falls back to the default preset.
func parseDayRange(r *http.Request, now time.Time) (analytics.DayRange, error) {
	qs := r.URL.Query()
	start, end, preset := qs.Get("start"), qs.Get("end"), qs.Get("preset")

	switch {
	case preset != "" && (start != "" || end != ""):
		return analytics.DayRange{}, errMixedRange
	case preset != "":
		return analytics.Preset(preset, now)
	case start != "" || end != "":
		if end == "" {
			end = now.UTC().Format(analytics.DateLayout)
		}
		return analytics.ParseDayRange(start, end)
	default:
		return analytics.Preset(analytics.DefaultPreset, now)
	}
}
