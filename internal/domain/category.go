package domain

import "time"

// Category is a lead-quality tier
type Category string

const (
	CategoryStrongLeads Category = "strongLeads"
	CategoryWeakLeads   Category = "weakLeads"
	CategoryWatchlist   Category = "watchlist"
	CategoryIgnored     Category = "ignored"
)

// Categories lists all tiers in display order
func Categories() []Category {
	return []Category{CategoryStrongLeads, CategoryWeakLeads, CategoryWatchlist, CategoryIgnored}
}

// Valid returns true for a recognized tier
func (c Category) Valid() bool {
	switch c {
	case CategoryStrongLeads, CategoryWeakLeads, CategoryWatchlist, CategoryIgnored:
		return true
	}

	return false
}

// Criteria is the editable threshold row for one tier
type Criteria struct {
	Category      Category   `json:"category"`
	MinAmount     float64    `json:"min_amount"`
	ReceivedAfter *time.Time `json:"received_after,omitempty"`
	ApprovedAfter *time.Time `json:"approved_after,omitempty"`
	Keywords      []string   `json:"keywords"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// CategoryStats aggregates one tier for the dashboard
type CategoryStats struct {
	Category   Category `json:"category"`
	Count      int      `json:"count"`
	TotalValue float64  `json:"total_value"`
	AvgValue   float64  `json:"avg_value"`
}
