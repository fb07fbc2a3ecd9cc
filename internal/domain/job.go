package domain

import (
	"time"
)

// JobStatus represents the status of a scrape job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusStopped   JobStatus = "stopped"
)

// IsTerminal returns true if the job is in a terminal state.
// Terminal jobs are never transitioned again; a retry creates a new row.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusStopped
}

// CanRetry returns true if the job can be retried
func (s JobStatus) CanRetry() bool {
	return s == JobStatusFailed
}

// Job represents a county scrape job
type Job struct {
	ID         int64     `json:"id"`
	CountyCode string    `json:"county_code"`
	Status     JobStatus `json:"status"`

	// Progress
	TotalProjects     int `json:"total_projects"`
	ProcessedProjects int `json:"processed_projects"`
	SuccessCount      int `json:"success_count"`

	// Timestamps
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error info
	ErrorMessage *string `json:"error_message,omitempty"`
}

// Percentage returns the progress percentage for display
func (j *Job) Percentage() float64 {
	if j.TotalProjects <= 0 {
		return 0
	}

	return float64(j.ProcessedProjects) / float64(j.TotalProjects) * 100
}

// JobProgress is a partial progress update applied to a running job.
// Nil fields are left untouched.
type JobProgress struct {
	TotalProjects     *int `json:"total_projects,omitempty"`
	ProcessedProjects *int `json:"processed_projects,omitempty"`
	SuccessCount      *int `json:"success_count,omitempty"`
}

// JobStats holds aggregate job counts per status
type JobStats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Running   int `json:"running"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Stopped   int `json:"stopped"`
}
