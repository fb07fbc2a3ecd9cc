package workerrunner

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/sadewadee/dgs-scraper/internal/categorize"
	"github.com/sadewadee/dgs-scraper/internal/domain"
	"github.com/sadewadee/dgs-scraper/internal/repository/postgres"
	"github.com/sadewadee/dgs-scraper/internal/repository/sqlite"
	"github.com/sadewadee/dgs-scraper/internal/scraper"
	"github.com/sadewadee/dgs-scraper/internal/worker"
	"github.com/sadewadee/dgs-scraper/runner"
	"github.com/sadewadee/dgs-scraper/tlmt"
)

// WorkerRunner runs exactly one scrape job and exits. It is spawned by
// the server's queue manager but also works standalone for debugging.
type WorkerRunner struct {
	cfg    *runner.Config
	logger zerolog.Logger
	db     *sql.DB
	worker *worker.Worker
}

// New wires a worker from the parsed config.
func New(cfg *runner.Config) (runner.Runner, error) {
	logger := runner.NewLogger(cfg.Debug)

	if cfg.Dsn == "" {
		return nil, fmt.Errorf("worker mode requires -dsn")
	}

	var (
		db       *sql.DB
		jobs     domain.JobRepository
		counties domain.CountyRepository
		projects domain.ProjectRepository
		criteria domain.CriteriaRepository
		err      error
	)

	if postgres.IsPostgresDSN(cfg.Dsn) {
		db, err = postgres.OpenConnection(cfg.Dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		repos := postgres.NewRepositories(db)
		jobs, counties, projects, criteria = repos.Jobs, repos.Counties, repos.Projects, repos.Criteria
	} else {
		db, err = sqlite.OpenConnection(cfg.Dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		repos := sqlite.NewRepositories(db)
		jobs, counties, projects, criteria = repos.Jobs, repos.Counties, repos.Projects, repos.Criteria
	}

	client := scraper.NewClient(cfg.BaseURL, logger, scraper.WithDelay(cfg.ScrapeDelay))
	classifier := categorize.Load(context.Background(), criteria, logger)

	return &WorkerRunner{
		cfg:    cfg,
		logger: logger,
		db:     db,
		worker: worker.New(jobs, counties, projects, client, classifier, logger),
	}, nil
}

// Run executes the scrape job.
func (w *WorkerRunner) Run(ctx context.Context) error {
	evt := tlmt.NewEvent("worker_start", map[string]any{
		"county": w.cfg.County,
	})
	_ = runner.Telemetry().Send(ctx, evt)

	return w.worker.Run(ctx, w.cfg.JobID, w.cfg.County)
}

// Close releases resources.
func (w *WorkerRunner) Close(_ context.Context) error {
	if w.db != nil {
		return w.db.Close()
	}

	return nil
}
