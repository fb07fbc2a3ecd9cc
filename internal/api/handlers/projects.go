package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/sadewadee/dgs-scraper/internal/domain"
	"github.com/sadewadee/dgs-scraper/internal/service"
)

// ProjectHandler handles project and criteria endpoints
type ProjectHandler struct {
	projects *service.ProjectService
	stats    *service.StatsService
}

// NewProjectHandler creates a new ProjectHandler
func NewProjectHandler(projects *service.ProjectService, stats *service.StatsService) *ProjectHandler {
	return &ProjectHandler{projects: projects, stats: stats}
}

// List handles GET /api/v1/projects
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	params := domain.ProjectListParams{}

	if c := r.URL.Query().Get("category"); c != "" {
		category := domain.Category(c)
		if !category.Valid() {
			RenderError(w, http.StatusBadRequest, "Unknown category")
			return
		}
		params.Category = &category
	}
	params.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	params.Offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))

	projects, err := h.projects.List(r.Context(), params)
	if err != nil {
		RenderError(w, http.StatusInternalServerError, err.Error())
		return
	}

	total, err := h.projects.Count(r.Context())
	if err != nil {
		RenderError(w, http.StatusInternalServerError, err.Error())
		return
	}

	RenderJSON(w, http.StatusOK, map[string]interface{}{
		"projects": projects,
		"total":    total,
	})
}

// Criteria handles GET /api/v1/criteria
func (h *ProjectHandler) Criteria(w http.ResponseWriter, r *http.Request) {
	criteria, err := h.projects.Criteria(r.Context())
	if err != nil {
		RenderError(w, http.StatusInternalServerError, err.Error())
		return
	}

	RenderJSON(w, http.StatusOK, criteria)
}

// UpdateCriteria handles PUT /api/v1/criteria/{category}
func (h *ProjectHandler) UpdateCriteria(w http.ResponseWriter, r *http.Request) {
	category := domain.Category(r.PathValue("category"))
	if !category.Valid() {
		RenderError(w, http.StatusNotFound, "Unknown category")
		return
	}

	var c domain.Criteria
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		RenderError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	c.Category = category

	count, err := h.projects.UpdateCriteria(r.Context(), &c)
	if err != nil {
		RenderError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.stats.Invalidate(r.Context())

	RenderJSON(w, http.StatusOK, map[string]interface{}{
		"recategorized": count,
	})
}

// Recategorize handles POST /api/v1/projects/recategorize
func (h *ProjectHandler) Recategorize(w http.ResponseWriter, r *http.Request) {
	count, err := h.projects.RecategorizeAll(r.Context())
	if err != nil {
		RenderError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.stats.Invalidate(r.Context())

	RenderJSON(w, http.StatusOK, map[string]interface{}{
		"recategorized": count,
	})
}
