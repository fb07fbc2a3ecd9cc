// Package worker implements the one-shot county scrape executed by the
// child process. It walks every district in the county, fetches each
// project's detail page, categorizes it and writes it to the store.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/sadewadee/dgs-scraper/internal/categorize"
	"github.com/sadewadee/dgs-scraper/internal/domain"
	"github.com/sadewadee/dgs-scraper/internal/scraper"
)

// Tracker is the subset of the scraper client the worker consumes.
type Tracker interface {
	Districts(ctx context.Context, countyCode string) ([]scraper.District, error)
	Projects(ctx context.Context, clientID string) ([]scraper.ProjectRef, error)
	Details(ctx context.Context, originID, appID string) (map[string]string, error)
	Delay() time.Duration
}

// Worker scrapes a single county for a single job.
type Worker struct {
	jobs       domain.JobRepository
	counties   domain.CountyRepository
	projects   domain.ProjectRepository
	tracker    Tracker
	classifier *categorize.Classifier
	logger     zerolog.Logger

	totalAttempts int
	successCount  int
	failedCount   int
}

// New creates a Worker.
func New(
	jobs domain.JobRepository,
	counties domain.CountyRepository,
	projects domain.ProjectRepository,
	tracker Tracker,
	classifier *categorize.Classifier,
	logger zerolog.Logger,
) *Worker {
	return &Worker{
		jobs:       jobs,
		counties:   counties,
		projects:   projects,
		tracker:    tracker,
		classifier: classifier,
		logger:     logger.With().Str("component", "worker").Logger(),
	}
}

// Run scrapes the county and records the job outcome. A cancelled
// context marks the job stopped; any other failure marks it failed.
func (w *Worker) Run(ctx context.Context, jobID int64, countyCode string) error {
	log := w.logger.With().Int64("job_id", jobID).Str("county", countyCode).Logger()
	log.Info().Msg("county scrape starting")

	err := w.scrape(ctx, log, jobID, countyCode)

	// Record the outcome with a fresh context so a cancellation that
	// stopped the scrape does not also lose the status write.
	finalCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch {
	case err == nil:
		if uerr := w.jobs.UpdateStatus(finalCtx, jobID, domain.JobStatusCompleted, nil); uerr != nil {
			log.Error().Err(uerr).Msg("failed to mark job completed")
		}
		if uerr := w.counties.TouchLastScraped(finalCtx, countyCode, w.successCount); uerr != nil {
			log.Error().Err(uerr).Msg("failed to update county scrape record")
		}

		log.Info().
			Int("attempted", w.totalAttempts).
			Int("succeeded", w.successCount).
			Int("failed", w.failedCount).
			Msg("county scrape completed")
	case errors.Is(err, context.Canceled):
		if uerr := w.jobs.UpdateStatus(finalCtx, jobID, domain.JobStatusStopped, nil); uerr != nil {
			log.Error().Err(uerr).Msg("failed to mark job stopped")
		}

		log.Info().Int("attempted", w.totalAttempts).Msg("county scrape stopped")
	default:
		msg := err.Error()
		if uerr := w.jobs.UpdateStatus(finalCtx, jobID, domain.JobStatusFailed, &msg); uerr != nil {
			log.Error().Err(uerr).Msg("failed to mark job failed")
		}

		log.Error().Err(err).Msg("county scrape failed")
	}

	return err
}

func (w *Worker) scrape(ctx context.Context, log zerolog.Logger, jobID int64, countyCode string) error {
	districts, err := w.tracker.Districts(ctx, countyCode)
	if err != nil {
		return fmt.Errorf("failed to list districts: %w", err)
	}

	log.Info().Int("districts", len(districts)).Msg("districts found")

	// Collect the project lists up front so the total is known before
	// the slow detail fetches begin.
	lists := make([][]scraper.ProjectRef, len(districts))
	total := 0

	for i, district := range districts {
		refs, err := w.tracker.Projects(ctx, district.ClientID)
		if err != nil {
			return fmt.Errorf("failed to list projects for district %s: %w", district.ClientID, err)
		}

		lists[i] = refs
		total += len(refs)
	}

	if err := w.jobs.UpdateProgress(ctx, jobID, domain.JobProgress{TotalProjects: &total}); err != nil {
		log.Warn().Err(err).Msg("failed to record total projects")
	}

	for i, district := range districts {
		dlog := log.With().Str("district", district.Name).Logger()
		dlog.Info().Int("projects", len(lists[i])).Msg("processing district")

		for _, ref := range lists[i] {
			if err := ctx.Err(); err != nil {
				return err
			}

			w.totalAttempts++

			if err := w.processProject(ctx, dlog, district, ref); err != nil {
				return err
			}

			if err := w.reportProgress(ctx, jobID); err != nil {
				dlog.Warn().Err(err).Msg("failed to report progress")
			}

			if rate := w.successRate(); rate < 80 && w.totalAttempts >= 10 {
				dlog.Warn().Float64("success_rate", rate).Msg("success rate is low")
			}
		}
	}

	return nil
}

func (w *Worker) processProject(ctx context.Context, log zerolog.Logger, district scraper.District, ref scraper.ProjectRef) error {
	exists, err := w.projects.Exists(ctx, ref.OriginID, ref.AppID)
	if err != nil {
		return fmt.Errorf("failed to check project %s/%s: %w", ref.OriginID, ref.AppID, err)
	}
	if exists {
		// Already scraped on a previous run, counts as a success.
		w.successCount++
		return nil
	}

	details, err := w.tracker.Details(ctx, ref.OriginID, ref.AppID)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		// A single unreachable detail page is not fatal for the run.
		w.failedCount++
		log.Warn().Err(err).Str("project", ref.Name).Msg("failed to fetch project details")

		return nil
	}

	project := buildProject(district, ref, details)

	if !validProject(project) {
		w.failedCount++
		log.Warn().Str("project", ref.Name).Msg("project failed validation")

		return nil
	}

	id, err := w.projects.Upsert(ctx, project)
	if err != nil {
		w.failedCount++
		log.Warn().Err(err).Str("project", ref.Name).Msg("failed to save project")

		return nil
	}

	category, score := w.classifier.Classify(project.Data)
	if err := w.projects.SetCategory(ctx, id, category, score); err != nil {
		log.Warn().Err(err).Str("project", ref.Name).Msg("failed to categorize project")
	}

	w.successCount++

	// Be nice to the tracker between detail fetches.
	if delay := w.tracker.Delay(); delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil
}

func (w *Worker) reportProgress(ctx context.Context, jobID int64) error {
	processed := w.totalAttempts
	success := w.successCount

	return w.jobs.UpdateProgress(ctx, jobID, domain.JobProgress{
		ProcessedProjects: &processed,
		SuccessCount:      &success,
	})
}

func (w *Worker) successRate() float64 {
	if w.totalAttempts == 0 {
		return 0
	}

	return float64(w.successCount) / float64(w.totalAttempts) * 100
}

// buildProject merges the district row, the project row and the detail
// page into one record. The detail map keeps everything for export.
func buildProject(district scraper.District, ref scraper.ProjectRef, details map[string]string) *domain.Project {
	data := make(map[string]string, len(details)+8)
	for k, v := range details {
		data[k] = v
	}

	data["county_id"] = district.County
	data["client_id"] = district.ClientID
	data["district_code"] = district.Code
	data["district_name"] = district.Name
	data["dsa_app_id"] = ref.DSAAppID
	data["ptn"] = ref.PTN
	data["project_name"] = ref.Name

	return &domain.Project{
		OriginID:     ref.OriginID,
		AppID:        ref.AppID,
		CountyID:     district.County,
		ClientID:     district.ClientID,
		DistrictCode: district.Code,
		DistrictName: district.Name,
		DsaAppID:     ref.DSAAppID,
		PTN:          ref.PTN,
		Name:         ref.Name,
		Data:         data,
		ScrapedAt:    time.Now().UTC(),
	}
}

// detailFields are the fields that prove the detail page actually
// rendered project data.
var detailFields = []string{"Office ID", "Application #", "File #", "Project Type", "Address"}

func validProject(p *domain.Project) bool {
	if p.OriginID == "" || p.AppID == "" || p.Name == "" || p.DistrictName == "" {
		return false
	}

	for _, field := range detailFields {
		if p.Data[field] != "" {
			return true
		}
	}

	return false
}
