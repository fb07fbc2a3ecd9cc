// Package queue implements the single-slot job queue. At most one
// scrape job runs at a time; pending jobs wait in the database and are
// dispatched oldest first.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sadewadee/dgs-scraper/internal/domain"
	"github.com/sadewadee/dgs-scraper/internal/spawner"
)

// Errors returned by queue operations
var (
	ErrInvalidState   = errors.New("job is not in a state that allows this operation")
	ErrUnknownCounty  = errors.New("unknown county code")
	ErrCountyDisabled = errors.New("county is disabled")
)

const defaultPollInterval = 10 * time.Second

// Manager owns the single worker slot. It watches for pending jobs,
// spawns one worker at a time and records the outcome.
type Manager struct {
	jobs     domain.JobRepository
	counties domain.CountyRepository
	spawn    spawner.Spawner
	dsn      string
	logger   zerolog.Logger

	pollInterval time.Duration

	// kick wakes the dispatch loop without waiting for the next poll
	kick chan struct{}

	mu      sync.Mutex
	current *runningJob

	wg sync.WaitGroup
}

// runningJob tracks the job occupying the slot
type runningJob struct {
	job    *domain.Job
	handle spawner.Handle

	// stopRequested marks that the operator asked for termination, so
	// the exit is recorded as stopped rather than failed
	stopRequested bool
}

// Option configures a Manager
type Option func(*Manager)

// WithPollInterval overrides the dispatch poll interval
func WithPollInterval(d time.Duration) Option {
	return func(m *Manager) {
		m.pollInterval = d
	}
}

// NewManager creates a queue manager. Run must be called before jobs
// are dispatched.
func NewManager(
	jobs domain.JobRepository,
	counties domain.CountyRepository,
	sp spawner.Spawner,
	dsn string,
	logger zerolog.Logger,
	opts ...Option,
) *Manager {
	m := &Manager{
		jobs:         jobs,
		counties:     counties,
		spawn:        sp,
		dsn:          dsn,
		logger:       logger.With().Str("component", "queue").Logger(),
		pollInterval: defaultPollInterval,
		kick:         make(chan struct{}, 1),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Run drives the dispatch loop until ctx is cancelled. It blocks, so
// callers run it in a goroutine (typically via errgroup).
func (m *Manager) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	// Pick up jobs left pending from a previous run before the first tick.
	m.dispatch(ctx)

	for {
		select {
		case <-ctx.Done():
			m.shutdown()
			return ctx.Err()
		case <-m.kick:
			m.dispatch(ctx)
		case <-ticker.C:
			// Safety net in case a kick was lost or a job was created
			// directly in the database.
			m.dispatch(ctx)
		}
	}
}

// Enqueue creates a pending job for the county and wakes the dispatcher.
func (m *Manager) Enqueue(ctx context.Context, countyCode string) (*domain.Job, error) {
	county, err := m.counties.GetByCode(ctx, countyCode)
	if err != nil {
		return nil, fmt.Errorf("failed to look up county: %w", err)
	}
	if county == nil {
		return nil, ErrUnknownCounty
	}
	if !county.Enabled {
		return nil, ErrCountyDisabled
	}

	job := &domain.Job{
		CountyCode: county.Code,
		Status:     domain.JobStatusPending,
		CreatedAt:  time.Now().UTC(),
	}

	if err := m.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	m.logger.Info().Int64("job_id", job.ID).Str("county", county.Code).Msg("job enqueued")
	m.wake()

	return job, nil
}

// StopCurrent terminates the running worker if there is one. It reports
// whether a job was actually running.
func (m *Manager) StopCurrent() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return false
	}

	m.current.stopRequested = true
	if err := m.current.handle.Terminate(); err != nil {
		m.logger.Warn().Err(err).
			Int64("job_id", m.current.job.ID).
			Msg("failed to signal worker")
	}

	return true
}

// Stop stops a specific job. A running job is terminated, a pending job
// is marked stopped without ever occupying the slot. Terminal jobs
// return ErrInvalidState.
func (m *Manager) Stop(ctx context.Context, jobID int64) error {
	job, err := m.jobs.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to look up job: %w", err)
	}
	if job == nil {
		return ErrInvalidState
	}

	switch job.Status {
	case domain.JobStatusRunning:
		m.mu.Lock()
		cur := m.current
		if cur != nil && cur.job.ID == jobID {
			cur.stopRequested = true
			if err := cur.handle.Terminate(); err != nil {
				m.logger.Warn().Err(err).Int64("job_id", jobID).Msg("failed to signal worker")
			}
			m.mu.Unlock()
			return nil
		}
		m.mu.Unlock()

		// Marked running in the database but not owned by this process,
		// likely left over from a crash. Close it out directly.
		return m.jobs.UpdateStatus(ctx, jobID, domain.JobStatusStopped, nil)
	case domain.JobStatusPending:
		return m.jobs.UpdateStatus(ctx, jobID, domain.JobStatusStopped, nil)
	default:
		return ErrInvalidState
	}
}

// Retry re-queues a failed job as a fresh pending job for the same
// county. The failed row is left untouched for history.
func (m *Manager) Retry(ctx context.Context, jobID int64) (*domain.Job, error) {
	job, err := m.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up job: %w", err)
	}
	if job == nil || !job.Status.CanRetry() {
		return nil, ErrInvalidState
	}

	return m.Enqueue(ctx, job.CountyCode)
}

// Current returns the job occupying the slot, nil when idle.
func (m *Manager) Current() *domain.Job {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return nil
	}

	j := *m.current.job
	return &j
}

// Busy reports whether the slot is occupied.
func (m *Manager) Busy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.current != nil
}

func (m *Manager) wake() {
	select {
	case m.kick <- struct{}{}:
	default:
	}
}

// dispatch claims the oldest pending job when the slot is free.
func (m *Manager) dispatch(ctx context.Context) {
	m.mu.Lock()
	if m.current != nil {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	job, err := m.jobs.OldestPending(ctx)
	if err != nil {
		m.logger.Error().Err(err).Msg("failed to read pending jobs")
		return
	}
	if job == nil {
		return
	}

	m.start(ctx, job)
}

func (m *Manager) start(ctx context.Context, job *domain.Job) {
	if err := m.jobs.UpdateStatus(ctx, job.ID, domain.JobStatusRunning, nil); err != nil {
		m.logger.Error().Err(err).Int64("job_id", job.ID).Msg("failed to mark job running")
		return
	}
	job.Status = domain.JobStatusRunning

	handle, err := m.spawn.Spawn(ctx, &spawner.SpawnRequest{
		JobID:      job.ID,
		CountyCode: job.CountyCode,
		DSN:        m.dsn,
	})
	if err != nil {
		m.logger.Error().Err(err).Int64("job_id", job.ID).Msg("failed to spawn worker")
		msg := err.Error()
		if uerr := m.jobs.UpdateStatus(ctx, job.ID, domain.JobStatusFailed, &msg); uerr != nil {
			m.logger.Error().Err(uerr).Int64("job_id", job.ID).Msg("failed to mark job failed")
		}
		return
	}

	cur := &runningJob{job: job, handle: handle}

	m.mu.Lock()
	m.current = cur
	m.mu.Unlock()

	m.wg.Add(1)
	go m.await(cur)
}

// await blocks on the worker exit and records the outcome. The slot is
// always released, even when the final status update fails.
func (m *Manager) await(cur *runningJob) {
	defer m.wg.Done()

	waitErr := cur.handle.Wait()

	m.mu.Lock()
	stopRequested := cur.stopRequested
	m.current = nil
	m.mu.Unlock()

	// The worker records completed/failed itself on a clean run. The
	// parent only closes out jobs the worker could not.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	job, err := m.jobs.GetByID(ctx, cur.job.ID)
	if err != nil {
		m.logger.Error().Err(err).Int64("job_id", cur.job.ID).Msg("failed to re-read job after exit")
	}

	if job != nil && !job.Status.IsTerminal() {
		status := domain.JobStatusCompleted
		var msg *string

		switch {
		case stopRequested:
			status = domain.JobStatusStopped
		case waitErr != nil:
			status = domain.JobStatusFailed
			s := waitErr.Error()
			msg = &s
		}

		if err := m.jobs.UpdateStatus(ctx, cur.job.ID, status, msg); err != nil {
			m.logger.Error().Err(err).
				Int64("job_id", cur.job.ID).
				Str("status", string(status)).
				Msg("failed to record job outcome")
		}
	}

	m.logger.Info().
		Int64("job_id", cur.job.ID).
		Bool("stopped", stopRequested).
		Err(waitErr).
		Msg("worker exited")

	// The slot is free, see if anything else is waiting.
	m.wake()
}

// shutdown terminates the running worker and waits for bookkeeping.
func (m *Manager) shutdown() {
	if m.StopCurrent() {
		m.logger.Info().Msg("terminating running worker for shutdown")
	}

	m.wg.Wait()
}
