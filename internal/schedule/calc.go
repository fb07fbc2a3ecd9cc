package schedule

import (
	"time"

	"github.com/sadewadee/dgs-scraper/internal/domain"
)

// FireHour is the local hour of day at which scheduled runs fire.
const FireHour = 4

// Calculator computes the next fire time for a schedule configuration.
// The zero value is not usable, construct with NewCalculator.
type Calculator struct {
	now func() time.Time
}

// NewCalculator creates a Calculator using the real clock.
func NewCalculator() *Calculator {
	return &Calculator{now: time.Now}
}

// NewCalculatorAt creates a Calculator with an injected clock, for tests
// and for callers that need deterministic rearm points.
func NewCalculatorAt(now func() time.Time) *Calculator {
	return &Calculator{now: now}
}

// NextFireTime returns the next time the schedule should fire, strictly
// after the current clock reading. The result is always at FireHour local
// time in the clock's location.
func (c *Calculator) NextFireTime(cfg *domain.ScheduleConfig) (time.Time, error) {
	return c.nextAfter(cfg, c.now())
}

// Until returns the duration from now until the next fire time.
func (c *Calculator) Until(cfg *domain.ScheduleConfig) (time.Duration, error) {
	now := c.now()

	next, err := c.nextAfter(cfg, now)
	if err != nil {
		return 0, err
	}

	return next.Sub(now), nil
}

func (c *Calculator) nextAfter(cfg *domain.ScheduleConfig, now time.Time) (time.Time, error) {
	switch cfg.Frequency {
	case domain.FrequencyDaily:
		return nextDaily(now), nil
	case domain.FrequencyWeekly:
		if cfg.WeeklyDay < 0 || cfg.WeeklyDay > 6 {
			return time.Time{}, domain.ErrInvalidDayValue
		}

		return nextWeekly(now, time.Weekday(cfg.WeeklyDay)), nil
	case domain.FrequencyMonthly:
		if cfg.MonthlyDay < 1 || cfg.MonthlyDay > 31 {
			return time.Time{}, domain.ErrInvalidDayValue
		}

		return nextMonthly(now, cfg.MonthlyDay), nil
	default:
		return time.Time{}, domain.ErrUnsupportedFrequency
	}
}

// atFireHour pins t's date to FireHour:00:00 in t's location.
func atFireHour(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), FireHour, 0, 0, 0, t.Location())
}

func nextDaily(now time.Time) time.Time {
	next := atFireHour(now)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}

	return next
}

func nextWeekly(now time.Time, day time.Weekday) time.Time {
	daysAhead := (int(day) - int(now.Weekday()) + 7) % 7

	next := atFireHour(now.AddDate(0, 0, daysAhead))
	if !next.After(now) {
		next = next.AddDate(0, 0, 7)
	}

	return next
}

func nextMonthly(now time.Time, day int) time.Time {
	next := monthlyFireTime(now.Year(), now.Month(), day, now.Location())
	if !next.After(now) {
		year, month := now.Year(), now.Month()+1
		next = monthlyFireTime(year, month, day, now.Location())
	}

	return next
}

// monthlyFireTime places the fire time on the requested day of the given
// month, clamped to the month's last day when the month is shorter.
func monthlyFireTime(year int, month time.Month, day int, loc *time.Location) time.Time {
	if last := daysIn(year, month); day > last {
		day = last
	}

	return time.Date(year, month, day, FireHour, 0, 0, 0, loc)
}

func daysIn(year int, month time.Month) int {
	// Day 0 of the next month normalizes to the last day of this month.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
