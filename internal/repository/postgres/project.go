package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sadewadee/dgs-scraper/internal/domain"
)

// ProjectRepository implements domain.ProjectRepository for PostgreSQL
type ProjectRepository struct {
	db *sql.DB
}

// NewProjectRepository creates a new ProjectRepository
func NewProjectRepository(db *sql.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

const projectColumns = `
	id, origin_id, app_id, county_id, client_id,
	district_code, district_name, dsa_app_id, ptn, project_name,
	project_data, scraped_at
`

// Upsert inserts or replaces by (origin_id, app_id) and returns the row ID
func (r *ProjectRepository) Upsert(ctx context.Context, p *domain.Project) (int64, error) {
	dataJSON, err := json.Marshal(p.Data)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal project data: %w", err)
	}

	if p.ScrapedAt.IsZero() {
		p.ScrapedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO projects (
			origin_id, app_id, county_id, client_id,
			district_code, district_name, dsa_app_id, ptn, project_name,
			project_data, scraped_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (origin_id, app_id) DO UPDATE SET
			county_id = EXCLUDED.county_id,
			client_id = EXCLUDED.client_id,
			district_code = EXCLUDED.district_code,
			district_name = EXCLUDED.district_name,
			dsa_app_id = EXCLUDED.dsa_app_id,
			ptn = EXCLUDED.ptn,
			project_name = EXCLUDED.project_name,
			project_data = EXCLUDED.project_data,
			scraped_at = EXCLUDED.scraped_at
		RETURNING id
	`

	err = r.db.QueryRowContext(ctx, query,
		p.OriginID, p.AppID, p.CountyID, p.ClientID,
		p.DistrictCode, p.DistrictName, p.DsaAppID, p.PTN, p.Name,
		string(dataJSON), p.ScrapedAt,
	).Scan(&p.ID)
	if err != nil {
		return 0, err
	}

	return p.ID, nil
}

// Exists checks whether a project has already been scraped
func (r *ProjectRepository) Exists(ctx context.Context, originID, appID string) (bool, error) {
	var exists bool

	err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM projects WHERE origin_id = $1 AND app_id = $2)",
		originID, appID).Scan(&exists)

	return exists, err
}

// Count returns the total number of projects
func (r *ProjectRepository) Count(ctx context.Context) (int, error) {
	var count int

	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM projects").Scan(&count)

	return count, err
}

// List retrieves projects, optionally narrowed to one tier
func (r *ProjectRepository) List(ctx context.Context, params domain.ProjectListParams) ([]*domain.Project, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = 50
	}

	var (
		query string
		args  []interface{}
	)

	if params.Category != nil {
		query = fmt.Sprintf(`
			SELECT %s FROM projects p
			JOIN project_categories pc ON pc.project_id = p.id
			WHERE pc.category = $1
			ORDER BY pc.score DESC, p.id DESC
			LIMIT $2 OFFSET $3
		`, prefixColumns("p"))
		args = append(args, string(*params.Category), limit, params.Offset)
	} else {
		query = fmt.Sprintf(`
			SELECT %s FROM projects p
			ORDER BY p.id DESC
			LIMIT $1 OFFSET $2
		`, prefixColumns("p"))
		args = append(args, limit, params.Offset)
	}

	return r.query(ctx, query, args...)
}

// ListAll retrieves every project with its full data map
func (r *ProjectRepository) ListAll(ctx context.Context) ([]*domain.Project, error) {
	return r.query(ctx, fmt.Sprintf("SELECT %s FROM projects ORDER BY id", projectColumns))
}

func (r *ProjectRepository) query(ctx context.Context, query string, args ...interface{}) ([]*domain.Project, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []*domain.Project

	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}

		projects = append(projects, p)
	}

	return projects, rows.Err()
}

// SetCategory records the tier for a project, replacing any previous one
func (r *ProjectRepository) SetCategory(ctx context.Context, projectID int64, category domain.Category, score int) error {
	query := `
		INSERT INTO project_categories (project_id, category, score, last_categorized)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (project_id) DO UPDATE SET
			category = EXCLUDED.category,
			score = EXCLUDED.score,
			last_categorized = EXCLUDED.last_categorized
	`

	_, err := r.db.ExecContext(ctx, query,
		projectID, string(category), score, time.Now().UTC())

	return err
}

// CategoryStats aggregates tier counts and estimated values for the dashboard
func (r *ProjectRepository) CategoryStats(ctx context.Context) ([]*domain.CategoryStats, error) {
	query := `
		SELECT pc.category, COUNT(*),
			COALESCE(SUM(NULLIF(regexp_replace(p.project_data->>'Estimated Amt', '[$,]', '', 'g'), '')::DOUBLE PRECISION), 0)
		FROM project_categories pc
		JOIN projects p ON p.id = pc.project_id
		GROUP BY pc.category
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []*domain.CategoryStats

	for rows.Next() {
		s := &domain.CategoryStats{}

		var category string

		if err := rows.Scan(&category, &s.Count, &s.TotalValue); err != nil {
			return nil, err
		}

		s.Category = domain.Category(category)

		if s.Count > 0 {
			s.AvgValue = s.TotalValue / float64(s.Count)
		}

		stats = append(stats, s)
	}

	return stats, rows.Err()
}

func prefixColumns(alias string) string {
	return fmt.Sprintf(`
		%[1]s.id, %[1]s.origin_id, %[1]s.app_id, %[1]s.county_id, %[1]s.client_id,
		%[1]s.district_code, %[1]s.district_name, %[1]s.dsa_app_id, %[1]s.ptn, %[1]s.project_name,
		%[1]s.project_data, %[1]s.scraped_at
	`, alias)
}

func scanProject(row rowScanner) (*domain.Project, error) {
	p := &domain.Project{}

	var (
		districtCode, districtName, dsaAppID, ptn, name sql.NullString
		dataJSON                                        []byte
	)

	err := row.Scan(
		&p.ID, &p.OriginID, &p.AppID, &p.CountyID, &p.ClientID,
		&districtCode, &districtName, &dsaAppID, &ptn, &name,
		&dataJSON, &p.ScrapedAt,
	)
	if err != nil {
		return nil, err
	}

	p.DistrictCode = districtCode.String
	p.DistrictName = districtName.String
	p.DsaAppID = dsaAppID.String
	p.PTN = ptn.String
	p.Name = name.String

	if err := json.Unmarshal(dataJSON, &p.Data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal project data: %w", err)
	}

	return p, nil
}
