package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sadewadee/dgs-scraper/internal/digest"
	"github.com/sadewadee/dgs-scraper/internal/domain"
	"github.com/sadewadee/dgs-scraper/internal/service"
)

// ScheduleHandler handles auto-scrape schedule endpoints
type ScheduleHandler struct {
	schedule *service.ScheduleService
}

// NewScheduleHandler creates a new ScheduleHandler
func NewScheduleHandler(schedule *service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{schedule: schedule}
}

// Get handles GET /api/v1/schedule
func (h *ScheduleHandler) Get(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.schedule.Get(r.Context())
	if err != nil {
		RenderError(w, http.StatusInternalServerError, err.Error())
		return
	}

	RenderJSON(w, http.StatusOK, cfg)
}

// Save handles PUT /api/v1/schedule
func (h *ScheduleHandler) Save(w http.ResponseWriter, r *http.Request) {
	var cfg domain.ScheduleConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		RenderError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.schedule.Save(r.Context(), &cfg); err != nil {
		switch {
		case errors.Is(err, domain.ErrUnsupportedFrequency),
			errors.Is(err, domain.ErrInvalidDayValue),
			errors.Is(err, digest.ErrInvalidRecipient):
			RenderError(w, http.StatusBadRequest, err.Error())
		default:
			RenderError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	RenderJSON(w, http.StatusOK, h.schedule.Status(r.Context()))
}

// Status handles GET /api/v1/schedule/status
func (h *ScheduleHandler) Status(w http.ResponseWriter, r *http.Request) {
	RenderJSON(w, http.StatusOK, h.schedule.Status(r.Context()))
}
