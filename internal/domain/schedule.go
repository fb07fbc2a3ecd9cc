package domain

import (
	"errors"
	"time"
)

// Frequency is how often the auto-scheduler fires
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// Errors returned by schedule validation and computation
var (
	ErrUnsupportedFrequency = errors.New("unsupported schedule frequency")
	ErrInvalidDayValue      = errors.New("invalid schedule day value")
)

// ScheduleConfig is the singleton scheduling configuration. Exactly one
// logical row is active at a time; saving replaces it wholesale. An empty
// recipient list disables automatic scheduling entirely.
type ScheduleConfig struct {
	Recipients []string   `json:"recipients"`
	Frequency  Frequency  `json:"frequency"`
	WeeklyDay  int        `json:"weekly_day_of_week"`   // 0=Sunday .. 6=Saturday
	MonthlyDay int        `json:"monthly_day_of_month"` // 1..31, clamped to month length
	LastFireAt *time.Time `json:"last_fire_at,omitempty"`
}

// DefaultScheduleConfig is what a first read creates: weekly on Monday,
// nobody subscribed, so the scheduler stays unarmed until someone saves.
func DefaultScheduleConfig() ScheduleConfig {
	return ScheduleConfig{
		Recipients: []string{},
		Frequency:  FrequencyWeekly,
		WeeklyDay:  int(time.Monday),
		MonthlyDay: 1,
	}
}

// Enabled reports whether automatic scheduling should run at all
func (c ScheduleConfig) Enabled() bool {
	return len(c.Recipients) > 0
}

// Validate checks frequency and day values
func (c ScheduleConfig) Validate() error {
	switch c.Frequency {
	case FrequencyDaily:
	case FrequencyWeekly:
		if c.WeeklyDay < 0 || c.WeeklyDay > 6 {
			return ErrInvalidDayValue
		}
	case FrequencyMonthly:
		if c.MonthlyDay < 1 || c.MonthlyDay > 31 {
			return ErrInvalidDayValue
		}
	default:
		return ErrUnsupportedFrequency
	}

	return nil
}
