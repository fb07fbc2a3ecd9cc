package api

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/sadewadee/dgs-scraper/internal/api/handlers"
	"github.com/sadewadee/dgs-scraper/internal/export"
	"github.com/sadewadee/dgs-scraper/internal/service"
)

// Services bundles everything the HTTP layer needs
type Services struct {
	Jobs     *service.JobService
	Counties *service.CountyService
	Projects *service.ProjectService
	Schedule *service.ScheduleService
	Stats    *service.StatsService
	Exporter *export.Exporter
}

// NewRouter builds the API route table
func NewRouter(s Services) *http.ServeMux {
	mux := http.NewServeMux()

	jobs := handlers.NewJobHandler(s.Jobs)
	counties := handlers.NewCountyHandler(s.Counties)
	projects := handlers.NewProjectHandler(s.Projects, s.Stats)
	schedule := handlers.NewScheduleHandler(s.Schedule)
	stats := handlers.NewStatsHandler(s.Stats)
	exports := handlers.NewExportHandler(s.Exporter)

	// Jobs
	mux.HandleFunc("GET /api/v1/jobs", jobs.List)
	mux.HandleFunc("POST /api/v1/jobs", jobs.Create)
	mux.HandleFunc("GET /api/v1/jobs/current", jobs.Current)
	mux.HandleFunc("POST /api/v1/jobs/stop", jobs.StopCurrent)
	mux.HandleFunc("GET /api/v1/jobs/{id}", jobs.Get)
	mux.HandleFunc("POST /api/v1/jobs/{id}/stop", jobs.Stop)
	mux.HandleFunc("POST /api/v1/jobs/{id}/retry", jobs.Retry)

	// Counties
	mux.HandleFunc("GET /api/v1/counties", counties.List)
	mux.HandleFunc("PATCH /api/v1/counties/{code}", counties.SetEnabled)

	// Projects and categorization criteria
	mux.HandleFunc("GET /api/v1/projects", projects.List)
	mux.HandleFunc("POST /api/v1/projects/recategorize", projects.Recategorize)
	mux.HandleFunc("GET /api/v1/criteria", projects.Criteria)
	mux.HandleFunc("PUT /api/v1/criteria/{category}", projects.UpdateCriteria)

	// Schedule
	mux.HandleFunc("GET /api/v1/schedule", schedule.Get)
	mux.HandleFunc("PUT /api/v1/schedule", schedule.Save)
	mux.HandleFunc("GET /api/v1/schedule/status", schedule.Status)

	// Stats
	mux.HandleFunc("GET /api/v1/stats", stats.Dashboard)
	mux.HandleFunc("GET /api/v1/stats/system", stats.System)

	// Exports
	mux.HandleFunc("GET /api/v1/export/csv", exports.CSV)
	mux.HandleFunc("GET /api/v1/export/xlsx", exports.XLSX)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	return mux
}

// Setup wraps the router with the middleware stack
func Setup(s Services, token string, log zerolog.Logger) http.Handler {
	mux := NewRouter(s)

	return Chain(mux,
		Recovery(log),
		Logger(log),
		CORS,
		SecurityHeaders,
		Auth(token),
	)
}
