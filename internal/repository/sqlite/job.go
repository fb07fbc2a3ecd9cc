package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sadewadee/dgs-scraper/internal/domain"
)

// JobRepository implements domain.JobRepository for SQLite
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

// Create inserts a new job and assigns its autoincrement ID
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
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	res, err := r.db.ExecContext(ctx, query,
		job.CountyCode, job.Status,
		job.TotalProjects, job.ProcessedProjects, job.SuccessCount,
		job.CreatedAt.Format(time.RFC3339),
		nullableTime(job.StartedAt), nullableTime(job.CompletedAt),
		job.ErrorMessage,
	)
	if err != nil {
		return err
	}

	job.ID, err = res.LastInsertId()

	return err
}

// GetByID retrieves a job by ID, nil when not found
func (r *JobRepository) GetByID(ctx context.Context, id int64) (*domain.Job, error) {
	query := fmt.Sprintf("SELECT %s FROM jobs WHERE id = ?", jobColumns)

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

	query := fmt.Sprintf("SELECT %s FROM jobs ORDER BY id DESC LIMIT ?", jobColumns)

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
	now := time.Now().UTC().Format(time.RFC3339)

	switch status {
	case domain.JobStatusRunning:
		_, err := r.db.ExecContext(ctx,
			`UPDATE jobs SET status = ?, started_at = ? WHERE id = ?`,
			status, now, id)

		return err
	case domain.JobStatusCompleted, domain.JobStatusFailed, domain.JobStatusStopped:
		_, err := r.db.ExecContext(ctx,
			`UPDATE jobs SET status = ?, completed_at = ?, error_message = ? WHERE id = ?`,
			status, now, errMsg, id)

		return err
	default:
		_, err := r.db.ExecContext(ctx,
			`UPDATE jobs SET status = ? WHERE id = ?`,
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
		sets = append(sets, "total_projects = ?")
		args = append(args, *progress.TotalProjects)
	}

	if progress.ProcessedProjects != nil {
		sets = append(sets, "processed_projects = ?")
		args = append(args, *progress.ProcessedProjects)
	}

	if progress.SuccessCount != nil {
		sets = append(sets, "success_count = ?")
		args = append(args, *progress.SuccessCount)
	}

	if len(sets) == 0 {
		return nil
	}

	args = append(args, id)

	query := fmt.Sprintf("UPDATE jobs SET %s WHERE id = ?", strings.Join(sets, ", "))

	_, err := r.db.ExecContext(ctx, query, args...)

	return err
}

// Stats returns aggregate counts per status
func (r *JobRepository) Stats(ctx context.Context) (*domain.JobStats, error) {
	query := `
		SELECT
			COUNT(*),
			SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END),
			SUM(CASE WHEN status = 'running' THEN 1 ELSE 0 END),
			SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END),
			SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END),
			SUM(CASE WHEN status = 'stopped' THEN 1 ELSE 0 END)
		FROM jobs
	`

	stats := &domain.JobStats{}

	var pending, running, completed, failed, stopped sql.NullInt64

	err := r.db.QueryRowContext(ctx, query).Scan(
		&stats.Total, &pending, &running, &completed, &failed, &stopped,
	)
	if err != nil {
		return nil, err
	}

	stats.Pending = int(pending.Int64)
	stats.Running = int(running.Int64)
	stats.Completed = int(completed.Int64)
	stats.Failed = int(failed.Int64)
	stats.Stopped = int(stopped.Int64)

	return stats, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*domain.Job, error) {
	job := &domain.Job{}

	var (
		statusStr              string
		createdAtStr           string
		startedAt, completedAt sql.NullString
		errorMessage           sql.NullString
	)

	err := row.Scan(
		&job.ID, &job.CountyCode, &statusStr,
		&job.TotalProjects, &job.ProcessedProjects, &job.SuccessCount,
		&createdAtStr, &startedAt, &completedAt, &errorMessage,
	)
	if err != nil {
		return nil, err
	}

	job.Status = domain.JobStatus(statusStr)
	job.CreatedAt, _ = time.Parse(time.RFC3339, createdAtStr)

	if startedAt.Valid {
		t, _ := time.Parse(time.RFC3339, startedAt.String)
		job.StartedAt = &t
	}

	if completedAt.Valid {
		t, _ := time.Parse(time.RFC3339, completedAt.String)
		job.CompletedAt = &t
	}

	if errorMessage.Valid {
		job.ErrorMessage = &errorMessage.String
	}

	return job, nil
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}

	return t.Format(time.RFC3339)
}
