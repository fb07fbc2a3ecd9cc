package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sadewadee/dgs-scraper/internal/service"
)

// CountyHandler handles county registry endpoints
type CountyHandler struct {
	counties *service.CountyService
}

// NewCountyHandler creates a new CountyHandler
func NewCountyHandler(counties *service.CountyService) *CountyHandler {
	return &CountyHandler{counties: counties}
}

// List handles GET /api/v1/counties
func (h *CountyHandler) List(w http.ResponseWriter, r *http.Request) {
	counties, err := h.counties.List(r.Context())
	if err != nil {
		RenderError(w, http.StatusInternalServerError, err.Error())
		return
	}

	RenderJSON(w, http.StatusOK, counties)
}

// SetEnabled handles PATCH /api/v1/counties/{code}
func (h *CountyHandler) SetEnabled(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")

	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RenderError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Enabled == nil {
		RenderError(w, http.StatusBadRequest, "enabled is required")
		return
	}

	if err := h.counties.SetEnabled(r.Context(), code, *req.Enabled); err != nil {
		if errors.Is(err, service.ErrCountyNotFound) {
			RenderError(w, http.StatusNotFound, "County not found")
			return
		}
		RenderError(w, http.StatusInternalServerError, err.Error())
		return
	}

	county, err := h.counties.Get(r.Context(), code)
	if err != nil {
		RenderError(w, http.StatusInternalServerError, err.Error())
		return
	}

	RenderJSON(w, http.StatusOK, county)
}
