package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sadewadee/dgs-scraper/internal/domain"
	"github.com/sadewadee/dgs-scraper/internal/queue"
)

// Common errors
var (
	ErrJobNotFound = errors.New("job not found")
	ErrNoJobActive = errors.New("no scraping job running")
)

// JobService provides business logic for scrape jobs. Queue mutations
// go through the queue manager so the single-slot invariant holds.
type JobService struct {
	jobs  domain.JobRepository
	queue *queue.Manager
}

// NewJobService creates a new JobService
func NewJobService(jobs domain.JobRepository, q *queue.Manager) *JobService {
	return &JobService{jobs: jobs, queue: q}
}

// Start enqueues a scrape job for the county.
func (s *JobService) Start(ctx context.Context, countyCode string) (*domain.Job, error) {
	return s.queue.Enqueue(ctx, countyCode)
}

// Get retrieves a job by ID
func (s *JobService) Get(ctx context.Context, id int64) (*domain.Job, error) {
	job, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	if job == nil {
		return nil, ErrJobNotFound
	}

	return job, nil
}

// List retrieves recent jobs, most recent first
func (s *JobService) List(ctx context.Context, limit int) ([]*domain.Job, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	return s.jobs.List(ctx, limit)
}

// Current returns the running job, ErrNoJobActive when the slot is idle.
func (s *JobService) Current(ctx context.Context) (*domain.Job, error) {
	cur := s.queue.Current()
	if cur == nil {
		return nil, ErrNoJobActive
	}

	// Re-read for fresh progress counters.
	return s.Get(ctx, cur.ID)
}

// StopCurrent stops whatever job is running, ErrNoJobActive when idle.
func (s *JobService) StopCurrent(ctx context.Context) (*domain.Job, error) {
	cur := s.queue.Current()
	if cur == nil || !s.queue.StopCurrent() {
		return nil, ErrNoJobActive
	}

	return s.Get(ctx, cur.ID)
}

// Stop stops a specific running or pending job.
func (s *JobService) Stop(ctx context.Context, id int64) error {
	return s.queue.Stop(ctx, id)
}

// Retry re-queues a failed job.
func (s *JobService) Retry(ctx context.Context, id int64) (*domain.Job, error) {
	return s.queue.Retry(ctx, id)
}

// Stats returns aggregate job counts.
func (s *JobService) Stats(ctx context.Context) (*domain.JobStats, error) {
	return s.jobs.Stats(ctx)
}
