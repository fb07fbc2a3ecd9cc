package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sadewadee/dgs-scraper/internal/domain"
)

// ScheduleRepository implements domain.ScheduleRepository for SQLite.
// The config is a single row pinned to id=1; saving upserts that key so
// there is never a window where the row is absent.
type ScheduleRepository struct {
	db *sql.DB
}

// NewScheduleRepository creates a new ScheduleRepository
func NewScheduleRepository(db *sql.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// Get returns the active config, creating the default row on first read
func (r *ScheduleRepository) Get(ctx context.Context) (*domain.ScheduleConfig, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT recipients, frequency, weekly_day, monthly_day, last_fire_at
		FROM schedule_config WHERE id = 1
	`)

	cfg := &domain.ScheduleConfig{}

	var (
		recipientsJSON string
		frequency      string
		lastFireAt     sql.NullString
	)

	err := row.Scan(&recipientsJSON, &frequency, &cfg.WeeklyDay, &cfg.MonthlyDay, &lastFireAt)
	if errors.Is(err, sql.ErrNoRows) {
		def := domain.DefaultScheduleConfig()
		if err := r.Save(ctx, &def); err != nil {
			return nil, err
		}

		return &def, nil
	}

	if err != nil {
		return nil, err
	}

	cfg.Frequency = domain.Frequency(frequency)

	if err := json.Unmarshal([]byte(recipientsJSON), &cfg.Recipients); err != nil {
		return nil, fmt.Errorf("failed to unmarshal recipients: %w", err)
	}

	if lastFireAt.Valid {
		t, _ := time.Parse(time.RFC3339, lastFireAt.String)
		cfg.LastFireAt = &t
	}

	return cfg, nil
}

// Save replaces the config wholesale, preserving last_fire_at unless the
// caller set one explicitly
func (r *ScheduleRepository) Save(ctx context.Context, cfg *domain.ScheduleConfig) error {
	recipients := cfg.Recipients
	if recipients == nil {
		recipients = []string{}
	}

	recipientsJSON, err := json.Marshal(recipients)
	if err != nil {
		return fmt.Errorf("failed to marshal recipients: %w", err)
	}

	query := `
		INSERT INTO schedule_config (id, recipients, frequency, weekly_day, monthly_day, last_fire_at)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			recipients = excluded.recipients,
			frequency = excluded.frequency,
			weekly_day = excluded.weekly_day,
			monthly_day = excluded.monthly_day,
			last_fire_at = COALESCE(excluded.last_fire_at, schedule_config.last_fire_at)
	`

	_, err = r.db.ExecContext(ctx, query,
		string(recipientsJSON), string(cfg.Frequency),
		cfg.WeeklyDay, cfg.MonthlyDay, nullableTime(cfg.LastFireAt),
	)

	return err
}

// SetLastFireAt records when the scheduler last fired
func (r *ScheduleRepository) SetLastFireAt(ctx context.Context, t time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE schedule_config SET last_fire_at = ? WHERE id = 1",
		t.UTC().Format(time.RFC3339))

	return err
}
