// Package watchdog periodically checks for scrape jobs that have been
// running unusually long. Large counties legitimately take hours, so
// the watchdog only observes and logs, it never kills a job.
package watchdog

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/sadewadee/dgs-scraper/internal/domain"
)

const (
	defaultInterval  = 5 * time.Minute
	defaultThreshold = 2 * time.Hour
)

// Monitor watches running jobs and logs the ones past the threshold.
type Monitor struct {
	jobs      domain.JobRepository
	interval  time.Duration
	threshold time.Duration
	logger    zerolog.Logger
}

// NewMonitor creates a watchdog. Zero interval or threshold select the
// defaults.
func NewMonitor(jobs domain.JobRepository, interval, threshold time.Duration, logger zerolog.Logger) *Monitor {
	if interval == 0 {
		interval = defaultInterval
	}
	if threshold == 0 {
		threshold = defaultThreshold
	}

	return &Monitor{
		jobs:      jobs,
		interval:  interval,
		threshold: threshold,
		logger:    logger.With().Str("component", "watchdog").Logger(),
	}
}

// Run blocks until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Info().
		Dur("interval", m.interval).
		Dur("threshold", m.threshold).
		Msg("watchdog started")

	for {
		select {
		case <-ctx.Done():
			m.logger.Info().Msg("watchdog stopped")
			return ctx.Err()
		case <-ticker.C:
			m.check(ctx)
		}
	}
}

func (m *Monitor) check(ctx context.Context) {
	jobs, err := m.jobs.List(ctx, 50)
	if err != nil {
		m.logger.Error().Err(err).Msg("failed to list jobs")
		return
	}

	now := time.Now()

	for _, job := range jobs {
		if job.Status != domain.JobStatusRunning || job.StartedAt == nil {
			continue
		}

		if age := now.Sub(*job.StartedAt); age > m.threshold {
			m.logger.Warn().
				Int64("job_id", job.ID).
				Str("county", job.CountyCode).
				Dur("running_for", age).
				Int("processed", job.ProcessedProjects).
				Int("total", job.TotalProjects).
				Msg("job running longer than expected")
		}
	}
}
