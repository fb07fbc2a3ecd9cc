package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sadewadee/dgs-scraper/internal/domain"
)

// CountyRepository implements domain.CountyRepository for SQLite
type CountyRepository struct {
	db *sql.DB
}

// NewCountyRepository creates a new CountyRepository
func NewCountyRepository(db *sql.DB) *CountyRepository {
	return &CountyRepository{db: db}
}

const countyColumns = `id, name, code, enabled, last_scraped, total_projects`

// List retrieves all counties ordered by name
func (r *CountyRepository) List(ctx context.Context) ([]*domain.County, error) {
	return r.list(ctx, "SELECT "+countyColumns+" FROM counties ORDER BY name")
}

// ListEnabled retrieves only enabled counties ordered by name
func (r *CountyRepository) ListEnabled(ctx context.Context) ([]*domain.County, error) {
	return r.list(ctx, "SELECT "+countyColumns+" FROM counties WHERE enabled = 1 ORDER BY name")
}

func (r *CountyRepository) list(ctx context.Context, query string) ([]*domain.County, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counties []*domain.County

	for rows.Next() {
		county, err := scanCounty(rows)
		if err != nil {
			return nil, err
		}

		counties = append(counties, county)
	}

	return counties, rows.Err()
}

// GetByCode retrieves a county by its tracker code, nil when not found
func (r *CountyRepository) GetByCode(ctx context.Context, code string) (*domain.County, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+countyColumns+" FROM counties WHERE code = ?", code)

	county, err := scanCounty(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	return county, err
}

// SetEnabled toggles a county on or off for scheduling
func (r *CountyRepository) SetEnabled(ctx context.Context, code string, enabled bool) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE counties SET enabled = ?, updated_at = datetime('now') WHERE code = ?",
		enabled, code)
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// TouchLastScraped stamps last_scraped and the project count after a run
func (r *CountyRepository) TouchLastScraped(ctx context.Context, code string, totalProjects int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE counties
		SET last_scraped = ?, total_projects = ?, updated_at = datetime('now')
		WHERE code = ?
	`, time.Now().UTC().Format(time.RFC3339), totalProjects, code)

	return err
}

func scanCounty(row rowScanner) (*domain.County, error) {
	county := &domain.County{}

	var lastScraped sql.NullString

	err := row.Scan(
		&county.ID, &county.Name, &county.Code, &county.Enabled,
		&lastScraped, &county.TotalProjects,
	)
	if err != nil {
		return nil, err
	}

	if lastScraped.Valid {
		t, _ := time.Parse(time.RFC3339, lastScraped.String)
		county.LastScraped = &t
	}

	return county, nil
}
