package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/sadewadee/dgs-scraper/internal/queue"
	"github.com/sadewadee/dgs-scraper/internal/service"
)

// JobHandler handles scrape job endpoints
type JobHandler struct {
	jobs *service.JobService
}

// NewJobHandler creates a new JobHandler
func NewJobHandler(jobs *service.JobService) *JobHandler {
	return &JobHandler{jobs: jobs}
}

// List handles GET /api/v1/jobs
func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	jobs, err := h.jobs.List(r.Context(), limit)
	if err != nil {
		RenderError(w, http.StatusInternalServerError, err.Error())
		return
	}

	RenderJSON(w, http.StatusOK, jobs)
}

// Create handles POST /api/v1/jobs
func (h *JobHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CountyCode string `json:"county_code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RenderError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.CountyCode == "" {
		RenderError(w, http.StatusBadRequest, "county_code is required")
		return
	}

	job, err := h.jobs.Start(r.Context(), req.CountyCode)
	if err != nil {
		switch {
		case errors.Is(err, queue.ErrUnknownCounty):
			RenderError(w, http.StatusNotFound, "Unknown county code")
		case errors.Is(err, queue.ErrCountyDisabled):
			RenderError(w, http.StatusBadRequest, "County is disabled")
		default:
			RenderError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	RenderJSON(w, http.StatusCreated, job)
}

// Get handles GET /api/v1/jobs/{id}
func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		RenderError(w, http.StatusBadRequest, "Invalid job ID")
		return
	}

	job, err := h.jobs.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrJobNotFound) {
			RenderError(w, http.StatusNotFound, "Job not found")
			return
		}
		RenderError(w, http.StatusInternalServerError, err.Error())
		return
	}

	RenderJSON(w, http.StatusOK, job)
}

// Current handles GET /api/v1/jobs/current
func (h *JobHandler) Current(w http.ResponseWriter, r *http.Request) {
	job, err := h.jobs.Current(r.Context())
	if err != nil {
		if errors.Is(err, service.ErrNoJobActive) {
			RenderError(w, http.StatusNotFound, "No job running")
			return
		}
		RenderError(w, http.StatusInternalServerError, err.Error())
		return
	}

	RenderJSON(w, http.StatusOK, job)
}

// StopCurrent handles POST /api/v1/jobs/stop
func (h *JobHandler) StopCurrent(w http.ResponseWriter, r *http.Request) {
	job, err := h.jobs.StopCurrent(r.Context())
	if err != nil {
		if errors.Is(err, service.ErrNoJobActive) {
			RenderError(w, http.StatusConflict, "No job running")
			return
		}
		RenderError(w, http.StatusInternalServerError, err.Error())
		return
	}

	RenderJSON(w, http.StatusOK, job)
}

// Stop handles POST /api/v1/jobs/{id}/stop
func (h *JobHandler) Stop(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		RenderError(w, http.StatusBadRequest, "Invalid job ID")
		return
	}

	if err := h.jobs.Stop(r.Context(), id); err != nil {
		if errors.Is(err, queue.ErrInvalidState) {
			RenderError(w, http.StatusConflict, "Job is not pending or running")
			return
		}
		RenderError(w, http.StatusInternalServerError, err.Error())
		return
	}

	RenderJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

// Retry handles POST /api/v1/jobs/{id}/retry
func (h *JobHandler) Retry(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		RenderError(w, http.StatusBadRequest, "Invalid job ID")
		return
	}

	job, err := h.jobs.Retry(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, queue.ErrInvalidState):
			RenderError(w, http.StatusConflict, "Only failed jobs can be retried")
		case errors.Is(err, queue.ErrUnknownCounty):
			RenderError(w, http.StatusNotFound, "Unknown county code")
		case errors.Is(err, queue.ErrCountyDisabled):
			RenderError(w, http.StatusBadRequest, "County is disabled")
		default:
			RenderError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	RenderJSON(w, http.StatusCreated, job)
}
