package domain

import "time"

// County is a schedulable scrape target. The DGS tracker identifies
// counties by their two-digit code ("34" = Sacramento).
type County struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	Code          string     `json:"code"`
	Enabled       bool       `json:"enabled"`
	LastScraped   *time.Time `json:"last_scraped,omitempty"`
	TotalProjects int        `json:"total_projects"`
}
