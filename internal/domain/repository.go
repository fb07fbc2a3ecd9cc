package domain

import (
	"context"
	"time"
)

// JobRepository persists scrape jobs. All operations are atomic with
// respect to a single row; storage errors propagate to the caller.
type JobRepository interface {
	// Create inserts a new job and assigns its ID
	Create(ctx context.Context, job *Job) error

	// GetByID retrieves a job, nil when not found
	GetByID(ctx context.Context, id int64) (*Job, error)

	// List retrieves up to limit jobs, most recent first
	List(ctx context.Context, limit int) ([]*Job, error)

	// OldestPending returns the oldest pending job, nil when the queue is drained
	OldestPending(ctx context.Context) (*Job, error)

	// UpdateStatus transitions a job, stamping started_at / completed_at
	// as appropriate for the target status
	UpdateStatus(ctx context.Context, id int64, status JobStatus, errMsg *string) error

	// UpdateProgress merges the non-nil progress fields into the row
	UpdateProgress(ctx context.Context, id int64, progress JobProgress) error

	// Stats returns aggregate counts per status
	Stats(ctx context.Context) (*JobStats, error)
}

// CountyRepository is the entity registry read by the auto-scheduler
type CountyRepository interface {
	List(ctx context.Context) ([]*County, error)
	ListEnabled(ctx context.Context) ([]*County, error)
	GetByCode(ctx context.Context, code string) (*County, error)
	SetEnabled(ctx context.Context, code string, enabled bool) error

	// TouchLastScraped stamps last_scraped and the project count after a run
	TouchLastScraped(ctx context.Context, code string, totalProjects int) error
}

// ProjectRepository persists scraped projects and their lead tiers
type ProjectRepository interface {
	// Upsert inserts or replaces by (origin_id, app_id) and returns the row ID
	Upsert(ctx context.Context, p *Project) (int64, error)

	Exists(ctx context.Context, originID, appID string) (bool, error)
	Count(ctx context.Context) (int, error)

	// List retrieves projects, optionally narrowed to one tier
	List(ctx context.Context, params ProjectListParams) ([]*Project, error)

	// ListAll retrieves every project with its full data map (export, recategorize)
	ListAll(ctx context.Context) ([]*Project, error)

	// SetCategory records the tier for a project, replacing any previous one
	SetCategory(ctx context.Context, projectID int64, category Category, score int) error

	CategoryStats(ctx context.Context) ([]*CategoryStats, error)
}

// CriteriaRepository persists the editable tier thresholds
type CriteriaRepository interface {
	List(ctx context.Context) ([]*Criteria, error)
	Update(ctx context.Context, c *Criteria) error
}

// ScheduleRepository persists the singleton schedule config. Get creates
// the default row on first read; Save replaces it atomically by fixed key.
type ScheduleRepository interface {
	Get(ctx context.Context) (*ScheduleConfig, error)
	Save(ctx context.Context, cfg *ScheduleConfig) error
	SetLastFireAt(ctx context.Context, t time.Time) error
}
