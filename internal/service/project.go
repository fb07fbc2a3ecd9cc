package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/sadewadee/dgs-scraper/internal/categorize"
	"github.com/sadewadee/dgs-scraper/internal/domain"
)

// ProjectService provides business logic for scraped projects
type ProjectService struct {
	projects domain.ProjectRepository
	criteria domain.CriteriaRepository
	logger   zerolog.Logger
}

// NewProjectService creates a new ProjectService
func NewProjectService(projects domain.ProjectRepository, criteria domain.CriteriaRepository, logger zerolog.Logger) *ProjectService {
	return &ProjectService{
		projects: projects,
		criteria: criteria,
		logger:   logger.With().Str("component", "projects").Logger(),
	}
}

// List retrieves projects, optionally narrowed to one lead tier
func (s *ProjectService) List(ctx context.Context, params domain.ProjectListParams) ([]*domain.Project, error) {
	if params.Category != nil && !params.Category.Valid() {
		return nil, fmt.Errorf("unknown category %q", *params.Category)
	}
	if params.Limit <= 0 || params.Limit > 500 {
		params.Limit = 100
	}

	return s.projects.List(ctx, params)
}

// Count returns the total project count
func (s *ProjectService) Count(ctx context.Context) (int, error) {
	return s.projects.Count(ctx)
}

// CategoryStats returns per-tier aggregates
func (s *ProjectService) CategoryStats(ctx context.Context) ([]*domain.CategoryStats, error) {
	return s.projects.CategoryStats(ctx)
}

// Criteria returns the editable tier thresholds
func (s *ProjectService) Criteria(ctx context.Context) ([]*domain.Criteria, error) {
	return s.criteria.List(ctx)
}

// UpdateCriteria replaces one tier's thresholds and reassigns every
// project against the new rules.
func (s *ProjectService) UpdateCriteria(ctx context.Context, c *domain.Criteria) (int, error) {
	if !c.Category.Valid() {
		return 0, fmt.Errorf("unknown category %q", c.Category)
	}
	if c.MinAmount < 0 {
		return 0, fmt.Errorf("min amount must not be negative")
	}

	if err := s.criteria.Update(ctx, c); err != nil {
		return 0, fmt.Errorf("failed to update criteria: %w", err)
	}

	return s.RecategorizeAll(ctx)
}

// RecategorizeAll reassigns every project to a tier using the current
// criteria. Returns the number of projects processed.
func (s *ProjectService) RecategorizeAll(ctx context.Context) (int, error) {
	classifier := categorize.Load(ctx, s.criteria, s.logger)

	projects, err := s.projects.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load projects: %w", err)
	}

	count := 0
	for _, p := range projects {
		category, score := classifier.Classify(p.Data)
		if err := s.projects.SetCategory(ctx, p.ID, category, score); err != nil {
			return count, fmt.Errorf("failed to recategorize project %d: %w", p.ID, err)
		}
		count++
	}

	s.logger.Info().Int("projects", count).Msg("recategorized all projects")

	return count, nil
}
