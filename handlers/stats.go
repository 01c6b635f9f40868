package handlers

import (
	"net/http"

	"homestead/services/stats"
)

const dashboardTopCities = 5

// StatsHandler serves the admin dashboard aggregates.
type StatsHandler struct {
	stats *stats.Service
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(statsSvc *stats.Service) *StatsHandler {
	return &StatsHandler{stats: statsSvc}
}

// Dashboard returns listing and user aggregates for the admin dashboard.
func (h *StatsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := h.stats.Dashboard(dashboardTopCities)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "failed to compute dashboard")
		return
	}
	writeJSON(w, http.StatusOK, dash)
}
