package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sadewadee/dgs-scraper/internal/domain"
)

// ErrCountyNotFound is returned for unknown county codes
var ErrCountyNotFound = errors.New("county not found")

// CountyService provides business logic for the county registry
type CountyService struct {
	counties domain.CountyRepository
}

// NewCountyService creates a new CountyService
func NewCountyService(counties domain.CountyRepository) *CountyService {
	return &CountyService{counties: counties}
}

// List returns all counties
func (s *CountyService) List(ctx context.Context) ([]*domain.County, error) {
	return s.counties.List(ctx)
}

// Get returns one county by code
func (s *CountyService) Get(ctx context.Context, code string) (*domain.County, error) {
	county, err := s.counties.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to get county: %w", err)
	}
	if county == nil {
		return nil, ErrCountyNotFound
	}

	return county, nil
}

// SetEnabled includes or excludes a county from scheduled runs
func (s *CountyService) SetEnabled(ctx context.Context, code string, enabled bool) error {
	if err := s.counties.SetEnabled(ctx, code, enabled); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrCountyNotFound
		}

		return fmt.Errorf("failed to update county: %w", err)
	}

	return nil
}
