package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/sadewadee/dgs-scraper/internal/domain"
)

// CriteriaRepository implements domain.CriteriaRepository for SQLite
type CriteriaRepository struct {
	db *sql.DB
}

// NewCriteriaRepository creates a new CriteriaRepository
func NewCriteriaRepository(db *sql.DB) *CriteriaRepository {
	return &CriteriaRepository{db: db}
}

// List retrieves all tier thresholds ordered by category
func (r *CriteriaRepository) List(ctx context.Context) ([]*domain.Criteria, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT category, min_amount, received_after, approved_after, keywords, updated_at
		FROM scoring_criteria
		ORDER BY category
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var criteria []*domain.Criteria

	for rows.Next() {
		c := &domain.Criteria{}

		var (
			category                     string
			receivedAfter, approvedAfter sql.NullString
			keywords, updatedAt          string
		)

		err := rows.Scan(&category, &c.MinAmount, &receivedAfter, &approvedAfter, &keywords, &updatedAt)
		if err != nil {
			return nil, err
		}

		c.Category = domain.Category(category)
		c.Keywords = splitKeywords(keywords)
		c.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

		if receivedAfter.Valid {
			t, err := time.Parse("2006-01-02", receivedAfter.String)
			if err == nil {
				c.ReceivedAfter = &t
			}
		}

		if approvedAfter.Valid {
			t, err := time.Parse("2006-01-02", approvedAfter.String)
			if err == nil {
				c.ApprovedAfter = &t
			}
		}

		criteria = append(criteria, c)
	}

	return criteria, rows.Err()
}

// Update replaces the thresholds for one tier
func (r *CriteriaRepository) Update(ctx context.Context, c *domain.Criteria) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE scoring_criteria
		SET min_amount = ?, received_after = ?, approved_after = ?, keywords = ?, updated_at = ?
		WHERE category = ?
	`,
		c.MinAmount,
		nullableDate(c.ReceivedAfter), nullableDate(c.ApprovedAfter),
		strings.Join(c.Keywords, ","),
		time.Now().UTC().Format(time.RFC3339),
		string(c.Category),
	)
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

func splitKeywords(s string) []string {
	if s == "" {
		return nil
	}

	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	return parts
}

func nullableDate(t *time.Time) interface{} {
	if t == nil {
		return nil
	}

	return t.Format("2006-01-02")
}
