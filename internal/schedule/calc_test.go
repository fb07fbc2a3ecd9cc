package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadewadee/dgs-scraper/internal/domain"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestNextFireTimeDaily(t *testing.T) {
	tests := []struct {
		name     string
		now      time.Time
		expected time.Time
	}{
		{
			name:     "Before fire hour - fires today",
			now:      time.Date(2024, 1, 15, 2, 30, 0, 0, time.UTC),
			expected: time.Date(2024, 1, 15, 4, 0, 0, 0, time.UTC),
		},
		{
			name:     "After fire hour - fires tomorrow",
			now:      time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
			expected: time.Date(2024, 1, 16, 4, 0, 0, 0, time.UTC),
		},
		{
			name:     "Exactly at fire hour - fires tomorrow",
			now:      time.Date(2024, 1, 15, 4, 0, 0, 0, time.UTC),
			expected: time.Date(2024, 1, 16, 4, 0, 0, 0, time.UTC),
		},
		{
			name:     "Month boundary",
			now:      time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC),
			expected: time.Date(2024, 2, 1, 4, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calc := NewCalculatorAt(fixedClock(tt.now))
			cfg := &domain.ScheduleConfig{Frequency: domain.FrequencyDaily}

			next, err := calc.NextFireTime(cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, next)
		})
	}
}

func TestNextFireTimeWeekly(t *testing.T) {
	tests := []struct {
		name      string
		now       time.Time
		weeklyDay int
		expected  time.Time
	}{
		{
			// 2024-01-15 is a Monday
			name:      "On target day after fire hour - rolls a full week",
			now:       time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
			weeklyDay: 1,
			expected:  time.Date(2024, 1, 22, 4, 0, 0, 0, time.UTC),
		},
		{
			name:      "On target day before fire hour - fires today",
			now:       time.Date(2024, 1, 15, 3, 0, 0, 0, time.UTC),
			weeklyDay: 1,
			expected:  time.Date(2024, 1, 15, 4, 0, 0, 0, time.UTC),
		},
		{
			name:      "Target day later this week",
			now:       time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
			weeklyDay: 5,
			expected:  time.Date(2024, 1, 19, 4, 0, 0, 0, time.UTC),
		},
		{
			name:      "Target day earlier in the week - wraps to next week",
			now:       time.Date(2024, 1, 17, 10, 0, 0, 0, time.UTC),
			weeklyDay: 1,
			expected:  time.Date(2024, 1, 22, 4, 0, 0, 0, time.UTC),
		},
		{
			name:      "Sunday target from Saturday",
			now:       time.Date(2024, 1, 20, 10, 0, 0, 0, time.UTC),
			weeklyDay: 0,
			expected:  time.Date(2024, 1, 21, 4, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calc := NewCalculatorAt(fixedClock(tt.now))
			cfg := &domain.ScheduleConfig{
				Frequency: domain.FrequencyWeekly,
				WeeklyDay: tt.weeklyDay,
			}

			next, err := calc.NextFireTime(cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, next)
			assert.Equal(t, time.Weekday(tt.weeklyDay), next.Weekday())
		})
	}
}

func TestNextFireTimeMonthly(t *testing.T) {
	tests := []struct {
		name       string
		now        time.Time
		monthlyDay int
		expected   time.Time
	}{
		{
			name:       "Later this month",
			now:        time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
			monthlyDay: 20,
			expected:   time.Date(2024, 1, 20, 4, 0, 0, 0, time.UTC),
		},
		{
			name:       "Already passed - next month",
			now:        time.Date(2024, 1, 25, 10, 0, 0, 0, time.UTC),
			monthlyDay: 20,
			expected:   time.Date(2024, 2, 20, 4, 0, 0, 0, time.UTC),
		},
		{
			name:       "Day 31 clamps to Feb 29 in a leap year",
			now:        time.Date(2024, 1, 31, 10, 0, 0, 0, time.UTC),
			monthlyDay: 31,
			expected:   time.Date(2024, 2, 29, 4, 0, 0, 0, time.UTC),
		},
		{
			name:       "Day 31 clamps to Feb 28 in a common year",
			now:        time.Date(2023, 1, 31, 10, 0, 0, 0, time.UTC),
			monthlyDay: 31,
			expected:   time.Date(2023, 2, 28, 4, 0, 0, 0, time.UTC),
		},
		{
			name:       "Day 30 clamps in February",
			now:        time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC),
			monthlyDay: 30,
			expected:   time.Date(2024, 2, 29, 4, 0, 0, 0, time.UTC),
		},
		{
			name:       "December rolls into January",
			now:        time.Date(2024, 12, 20, 10, 0, 0, 0, time.UTC),
			monthlyDay: 15,
			expected:   time.Date(2025, 1, 15, 4, 0, 0, 0, time.UTC),
		},
		{
			name:       "Same day before fire hour - fires today",
			now:        time.Date(2024, 1, 20, 3, 0, 0, 0, time.UTC),
			monthlyDay: 20,
			expected:   time.Date(2024, 1, 20, 4, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calc := NewCalculatorAt(fixedClock(tt.now))
			cfg := &domain.ScheduleConfig{
				Frequency:  domain.FrequencyMonthly,
				MonthlyDay: tt.monthlyDay,
			}

			next, err := calc.NextFireTime(cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, next)
		})
	}
}

func TestNextFireTimeErrors(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		cfg         domain.ScheduleConfig
		expectedErr error
	}{
		{
			name:        "Unknown frequency",
			cfg:         domain.ScheduleConfig{Frequency: "hourly"},
			expectedErr: domain.ErrUnsupportedFrequency,
		},
		{
			name:        "Weekly day out of range",
			cfg:         domain.ScheduleConfig{Frequency: domain.FrequencyWeekly, WeeklyDay: 7},
			expectedErr: domain.ErrInvalidDayValue,
		},
		{
			name:        "Weekly day negative",
			cfg:         domain.ScheduleConfig{Frequency: domain.FrequencyWeekly, WeeklyDay: -1},
			expectedErr: domain.ErrInvalidDayValue,
		},
		{
			name:        "Monthly day zero",
			cfg:         domain.ScheduleConfig{Frequency: domain.FrequencyMonthly, MonthlyDay: 0},
			expectedErr: domain.ErrInvalidDayValue,
		},
		{
			name:        "Monthly day too large",
			cfg:         domain.ScheduleConfig{Frequency: domain.FrequencyMonthly, MonthlyDay: 32},
			expectedErr: domain.ErrInvalidDayValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calc := NewCalculatorAt(fixedClock(now))

			_, err := calc.NextFireTime(&tt.cfg)
			assert.ErrorIs(t, err, tt.expectedErr)
		})
	}
}

func TestNextFireTimeAlwaysInFuture(t *testing.T) {
	clock := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	configs := []domain.ScheduleConfig{
		{Frequency: domain.FrequencyDaily},
		{Frequency: domain.FrequencyWeekly, WeeklyDay: 3},
		{Frequency: domain.FrequencyMonthly, MonthlyDay: 1},
	}

	// Walk the clock forward hour by hour across a month and check the
	// invariant holds at every point.
	for i := 0; i < 24*31; i++ {
		now := clock.Add(time.Duration(i) * time.Hour)
		calc := NewCalculatorAt(fixedClock(now))

		for _, cfg := range configs {
			next, err := calc.NextFireTime(&cfg)
			require.NoError(t, err)
			assert.True(t, next.After(now), "next=%s now=%s freq=%s", next, now, cfg.Frequency)
			assert.Equal(t, FireHour, next.Hour())
		}
	}
}

func TestUntil(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	calc := NewCalculatorAt(fixedClock(now))

	cfg := &domain.ScheduleConfig{Frequency: domain.FrequencyDaily}

	d, err := calc.Until(cfg)
	require.NoError(t, err)
	assert.Equal(t, 18*time.Hour, d)
}
