package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sadewadee/dgs-scraper/internal/domain"
)

// JobRepository implements domain.JobRepository for PostgreSQL
type JobRepository struct {
	db *sql.DB
}

// NewJobRepository creates a new JobRepository
func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

const jobColumns = `
	id, county_code, status,
	total_projects, processed_projects, success_count,
	created_at, started_at, completed_at, error_message
`

// Create inserts a new job and assigns its ID
func (r *JobRepository) Create(ctx context.Context, job *domain.Job) error {
	if job.Status == "" {
		job.Status = domain.JobStatusPending
	}

	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO jobs (
			county_code, status,
			total_projects, processed_projects, success_count,
			created_at, started_at, completed_at, error_message
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	return r.db.QueryRowContext(ctx, query,
		job.CountyCode, job.Status,
		job.TotalProjects, job.ProcessedProjects, job.SuccessCount,
		job.CreatedAt, job.StartedAt, job.CompletedAt, job.ErrorMessage,
	).Scan(&job.ID)
}

// GetByID retrieves a job by ID, nil when not found
func (r *JobRepository) GetByID(ctx context.Context, id int64) (*domain.Job, error) {
	query := fmt.Sprintf("SELECT %s FROM jobs WHERE id = $1", jobColumns)

	job, err := scanJob(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	return job, err
}

// List retrieves up to limit jobs, most recent first
func (r *JobRepository) List(ctx context.Context, limit int) ([]*domain.Job, error) {
	if limit <= 0 {
		limit = 20
	}

	query := fmt.Sprintf("SELECT %s FROM jobs ORDER BY id DESC LIMIT $1", jobColumns)

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*domain.Job

	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}

		jobs = append(jobs, job)
	}

	return jobs, rows.Err()
}

// OldestPending returns the oldest pending job, nil when none is waiting
func (r *JobRepository) OldestPending(ctx context.Context) (*domain.Job, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM jobs
		WHERE status = 'pending'
		ORDER BY id ASC
		LIMIT 1
	`, jobColumns)

	job, err := scanJob(r.db.QueryRowContext(ctx, query))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	return job, err
}

// UpdateStatus transitions a job, stamping the lifecycle timestamps that
// belong to the target status
func (r *JobRepository) UpdateStatus(ctx context.Context, id int64, status domain.JobStatus, errMsg *string) error {
	now := time.Now().UTC()

	switch status {
	case domain.JobStatusRunning:
		_, err := r.db.ExecContext(ctx,
			`UPDATE jobs SET status = $1, started_at = $2 WHERE id = $3`,
			status, now, id)

		return err
	case domain.JobStatusCompleted, domain.JobStatusFailed, domain.JobStatusStopped:
		_, err := r.db.ExecContext(ctx,
			`UPDATE jobs SET status = $1, completed_at = $2, error_message = $3 WHERE id = $4`,
			status, now, errMsg, id)

		return err
	default:
		_, err := r.db.ExecContext(ctx,
			`UPDATE jobs SET status = $1 WHERE id = $2`,
			status, id)

		return err
	}
}

// UpdateProgress merges the non-nil progress fields into the row
func (r *JobRepository) UpdateProgress(ctx context.Context, id int64, progress domain.JobProgress) error {
	var (
		sets []string
		args []interface{}
	)

	if progress.TotalProjects != nil {
		args = append(args, *progress.TotalProjects)
		sets = append(sets, fmt.Sprintf("total_projects = $%d", len(args)))
	}

	if progress.ProcessedProjects != nil {
		args = append(args, *progress.ProcessedProjects)
		sets = append(sets, fmt.Sprintf("processed_projects = $%d", len(args)))
	}

	if progress.SuccessCount != nil {
		args = append(args, *progress.SuccessCount)
		sets = append(sets, fmt.Sprintf("success_count = $%d", len(args)))
	}

	if len(sets) == 0 {
		return nil
	}

	args = append(args, id)

	query := fmt.Sprintf("UPDATE jobs SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))

	_, err := r.db.ExecContext(ctx, query, args...)

	return err
}

// Stats returns aggregate counts per status
func (r *JobRepository) Stats(ctx context.Context) (*domain.JobStats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'running'),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status = 'failed'),
			COUNT(*) FILTER (WHERE status = 'stopped')
		FROM jobs
	`

	stats := &domain.JobStats{}

	err := r.db.QueryRowContext(ctx, query).Scan(
		&stats.Total, &stats.Pending, &stats.Running,
		&stats.Completed, &stats.Failed, &stats.Stopped,
	)
	if err != nil {
		return nil, err
	}

	return stats, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*domain.Job, error) {
	job := &domain.Job{}

	var (
		statusStr              string
		startedAt, completedAt sql.NullTime
		errorMessage           sql.NullString
	)

	err := row.Scan(
		&job.ID, &job.CountyCode, &statusStr,
		&job.TotalProjects, &job.ProcessedProjects, &job.SuccessCount,
		&job.CreatedAt, &startedAt, &completedAt, &errorMessage,
	)
	if err != nil {
		return nil, err
	}

	job.Status = domain.JobStatus(statusStr)

	if startedAt.Valid {
		t := startedAt.Time
		job.StartedAt = &t
	}

	if completedAt.Valid {
		t := completedAt.Time
		job.CompletedAt = &t
	}

	if errorMessage.Valid {
		job.ErrorMessage = &errorMessage.String
	}

	return job, nil
}
