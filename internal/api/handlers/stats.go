package handlers

import (
	"net/http"

	"github.com/sadewadee/dgs-scraper/internal/service"
)

// StatsHandler handles dashboard statistics endpoints
type StatsHandler struct {
	stats *service.StatsService
}

// NewStatsHandler creates a new StatsHandler
func NewStatsHandler(stats *service.StatsService) *StatsHandler {
	return &StatsHandler{stats: stats}
}

// Dashboard handles GET /api/v1/stats
func (h *StatsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Dashboard(r.Context())
	if err != nil {
		RenderError(w, http.StatusInternalServerError, err.Error())
		return
	}

	RenderJSON(w, http.StatusOK, stats)
}

// System handles GET /api/v1/stats/system
func (h *StatsHandler) System(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.System(r.Context())
	if err != nil {
		RenderError(w, http.StatusInternalServerError, err.Error())
		return
	}

	RenderJSON(w, http.StatusOK, stats)
}
