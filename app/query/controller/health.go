package controller

import (
	"net/http"
)

func (c *Controller) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if c.App.Cache != nil {
		if err := c.App.Cache.Health(ctx); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "errored", "error": "cache connection error"})
			return
		}
	}

	status := map[string]string{"status": "ok"}
	if c.App.Credits == nil {
		status["credits"] = "unavailable"
	}
	writeJSON(w, http.StatusOK, status)
}
