package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sadewadee/dgs-scraper/internal/domain"
)

// ScheduleRepository implements domain.ScheduleRepository for PostgreSQL.
// The config is a single row pinned to id=1 and replaced by upsert.
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
		recipientsJSON []byte
		frequency      string
		lastFireAt     sql.NullTime
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

	if err := json.Unmarshal(recipientsJSON, &cfg.Recipients); err != nil {
		return nil, fmt.Errorf("failed to unmarshal recipients: %w", err)
	}

	if lastFireAt.Valid {
		t := lastFireAt.Time
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
		VALUES (1, $1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			recipients = EXCLUDED.recipients,
			frequency = EXCLUDED.frequency,
			weekly_day = EXCLUDED.weekly_day,
			monthly_day = EXCLUDED.monthly_day,
			last_fire_at = COALESCE(EXCLUDED.last_fire_at, schedule_config.last_fire_at)
	`

	_, err = r.db.ExecContext(ctx, query,
		recipientsJSON, string(cfg.Frequency),
		cfg.WeeklyDay, cfg.MonthlyDay, cfg.LastFireAt,
	)

	return err
}

// SetLastFireAt records when the scheduler last fired
func (r *ScheduleRepository) SetLastFireAt(ctx context.Context, t time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE schedule_config SET last_fire_at = $1 WHERE id = 1",
		t.UTC())

	return err
}
