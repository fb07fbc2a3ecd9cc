package sqlite

import (
	"database/sql"

	"github.com/rs/zerolog"
)

// adoptLegacySchema imports job history from a database created by the
// old Python scraper. Those files carry a scraping_jobs table with an
// 'error' status and no created_at column; copy the rows into jobs once
// and leave the legacy table in place for manual inspection.
func adoptLegacySchema(db *sql.DB, log zerolog.Logger) error {
	var legacyExists bool

	err := db.QueryRow(`
		SELECT EXISTS(
			SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = 'scraping_jobs'
		)
	`).Scan(&legacyExists)
	if err != nil {
		return err
	}

	if !legacyExists {
		return nil
	}

	var jobCount int
	if err := db.QueryRow("SELECT COUNT(*) FROM jobs").Scan(&jobCount); err != nil {
		return err
	}

	if jobCount > 0 {
		// already adopted (or a fresh install that has run jobs)
		return nil
	}

	res, err := db.Exec(`
		INSERT INTO jobs (
			county_code, status,
			total_projects, processed_projects, success_count,
			created_at, started_at, completed_at, error_message
		)
		SELECT
			county_id,
			CASE status WHEN 'error' THEN 'failed' ELSE status END,
			COALESCE(total_projects, 0),
			COALESCE(processed_projects, 0),
			COALESCE(success_count, 0),
			COALESCE(started_at, datetime('now')),
			started_at, completed_at, error_message
		FROM scraping_jobs
		ORDER BY id
	`)
	if err != nil {
		return err
	}

	adopted, _ := res.RowsAffected()
	if adopted > 0 {
		log.Info().Int64("jobs", adopted).Msg("adopted legacy scraping_jobs history")
	}

	return nil
}
