package serverrunner

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/sadewadee/dgs-scraper/internal/api"
	"github.com/sadewadee/dgs-scraper/internal/cache"
	"github.com/sadewadee/dgs-scraper/internal/digest"
	"github.com/sadewadee/dgs-scraper/internal/domain"
	"github.com/sadewadee/dgs-scraper/internal/export"
	"github.com/sadewadee/dgs-scraper/internal/queue"
	"github.com/sadewadee/dgs-scraper/internal/repository/postgres"
	"github.com/sadewadee/dgs-scraper/internal/repository/sqlite"
	"github.com/sadewadee/dgs-scraper/internal/schedule"
	"github.com/sadewadee/dgs-scraper/internal/scheduler"
	"github.com/sadewadee/dgs-scraper/internal/service"
	"github.com/sadewadee/dgs-scraper/internal/spawner"
	"github.com/sadewadee/dgs-scraper/internal/watchdog"
	"github.com/sadewadee/dgs-scraper/runner"
	"github.com/sadewadee/dgs-scraper/tlmt"
)

// ServerRunner runs the dashboard API, the job queue and the
// auto-scheduler in one process. Scrape jobs run as child processes.
type ServerRunner struct {
	cfg      *runner.Config
	logger   zerolog.Logger
	db       *sql.DB
	cache    cache.Cache
	srv      *http.Server
	queue    *queue.Manager
	sched    *scheduler.AutoScheduler
	watchdog *watchdog.Monitor
}

// New wires the server from the parsed config.
func New(cfg *runner.Config) (runner.Runner, error) {
	logger := runner.NewLogger(cfg.Debug)

	if cfg.DataFolder != "" {
		if err := os.MkdirAll(cfg.DataFolder, os.ModePerm); err != nil {
			return nil, err
		}
	}

	dsn := cfg.Dsn

	var (
		db        *sql.DB
		jobs      domain.JobRepository
		counties  domain.CountyRepository
		projects  domain.ProjectRepository
		criteria  domain.CriteriaRepository
		schedules domain.ScheduleRepository
		err       error
	)

	if postgres.IsPostgresDSN(dsn) {
		db, err = postgres.OpenConnection(dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		if err := postgres.RunMigrations(db, logger); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}

		repos := postgres.NewRepositories(db)
		jobs, counties, projects = repos.Jobs, repos.Counties, repos.Projects
		criteria, schedules = repos.Criteria, repos.Schedule
	} else {
		if dsn == "" {
			dsn = filepath.Join(cfg.DataFolder, "dgs.db")
		}

		db, err = sqlite.OpenConnection(dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		if err := sqlite.RunMigrations(db, logger); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}

		repos := sqlite.NewRepositories(db)
		jobs, counties, projects = repos.Jobs, repos.Counties, repos.Projects
		criteria, schedules = repos.Criteria, repos.Schedule
	}

	var c cache.Cache
	if cfg.RedisAddr != "" {
		c, err = cache.NewRedis(cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPass,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, using in-memory cache")
			c = cache.NewMemory()
		}
	} else {
		c = cache.NewMemory()
	}

	sp, err := spawner.NewExecSpawner("", logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	// Workers open the database themselves, so they need the resolved
	// DSN, not the empty default.
	q := queue.NewManager(jobs, counties, sp, dsn, logger)

	calc := schedule.NewCalculator()
	sched := scheduler.New(schedules, counties, q, calc, logger)

	var sender digest.Sender = digest.NoopSender{}
	if cfg.SMTPHost != "" {
		sender = digest.NewSMTPSender(digest.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
	}

	digestSvc := digest.NewService(digest.NewComposer(projects, jobs), sender, logger)
	sched.SetNotifier(digestSvc)

	jobSvc := service.NewJobService(jobs, q)
	countySvc := service.NewCountyService(counties)
	projectSvc := service.NewProjectService(projects, criteria, logger)
	scheduleSvc := service.NewScheduleService(schedules, sched, logger)
	statsSvc := service.NewStatsService(jobs, projects, c, logger)

	handler := api.Setup(api.Services{
		Jobs:     jobSvc,
		Counties: countySvc,
		Projects: projectSvc,
		Schedule: scheduleSvc,
		Stats:    statsSvc,
		Exporter: export.New(projects),
	}, cfg.APIKey, logger)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	return &ServerRunner{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		cache:    c,
		srv:      srv,
		queue:    q,
		sched:    sched,
		watchdog: watchdog.NewMonitor(jobs, 0, 0, logger),
	}, nil
}

// Run starts all server components and blocks until ctx is cancelled.
func (s *ServerRunner) Run(ctx context.Context) error {
	evt := tlmt.NewEvent("server_start", map[string]any{"version": runner.Version})
	_ = runner.Telemetry().Send(ctx, evt)

	if err := s.sched.Start(ctx); err != nil {
		// Fallback timer is armed; the server still comes up.
		s.logger.Warn().Err(err).Msg("scheduler started degraded")
	}

	egroup, ctx := errgroup.WithContext(ctx)

	egroup.Go(func() error {
		return s.queue.Run(ctx)
	})

	egroup.Go(func() error {
		return s.watchdog.Run(ctx)
	})

	egroup.Go(func() error {
		return s.startServer(ctx)
	})

	return egroup.Wait()
}

// Close releases resources.
func (s *ServerRunner) Close(_ context.Context) error {
	s.sched.Stop()

	if s.cache != nil {
		_ = s.cache.Close()
	}

	if s.db != nil {
		return s.db.Close()
	}

	return nil
}

func (s *ServerRunner) startServer(ctx context.Context) error {
	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error().Err(err).Msg("error shutting down server")
		}
	}()

	s.logger.Info().Str("addr", s.cfg.Addr).Msg("API server starting")

	err := s.srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}
