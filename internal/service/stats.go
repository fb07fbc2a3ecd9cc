package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/sadewadee/dgs-scraper/internal/cache"
	"github.com/sadewadee/dgs-scraper/internal/domain"
)

// DashboardStats is the aggregate view served to the dashboard
type DashboardStats struct {
	TotalProjects int                     `json:"total_projects"`
	Jobs          domain.JobStats         `json:"jobs"`
	Categories    []*domain.CategoryStats `json:"categories"`
	LastUpdated   time.Time               `json:"last_updated"`
}

// SystemStats reports host resource usage
type SystemStats struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	MemoryUsedMB  uint64  `json:"memory_used_mb"`
	MemoryTotalMB uint64  `json:"memory_total_mb"`
}

// StatsService aggregates statistics for the dashboard, with a short
// cache in front of the database counts.
type StatsService struct {
	jobs     domain.JobRepository
	projects domain.ProjectRepository
	cache    cache.Cache
	logger   zerolog.Logger
}

// NewStatsService creates a new StatsService
func NewStatsService(jobs domain.JobRepository, projects domain.ProjectRepository, c cache.Cache, logger zerolog.Logger) *StatsService {
	return &StatsService{
		jobs:     jobs,
		projects: projects,
		cache:    c,
		logger:   logger.With().Str("component", "stats").Logger(),
	}
}

// Dashboard returns the dashboard aggregates, served from cache when
// fresh enough.
func (s *StatsService) Dashboard(ctx context.Context) (*DashboardStats, error) {
	if data, err := s.cache.Get(ctx, cache.KeyStats); err == nil {
		var stats DashboardStats
		if err := json.Unmarshal(data, &stats); err == nil {
			return &stats, nil
		}
	}

	stats, err := s.build(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(stats); err == nil {
		if err := s.cache.Set(ctx, cache.KeyStats, data, cache.TTLStats); err != nil {
			s.logger.Warn().Err(err).Msg("failed to cache stats")
		}
	}

	return stats, nil
}

// Invalidate drops the cached dashboard aggregates, called after
// writes that change the counts.
func (s *StatsService) Invalidate(ctx context.Context) {
	if err := s.cache.DeleteByPattern(ctx, cache.KeyPrefixAll); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate stats cache")
	}
}

func (s *StatsService) build(ctx context.Context) (*DashboardStats, error) {
	total, err := s.projects.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count projects: %w", err)
	}

	jobStats, err := s.jobs.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get job stats: %w", err)
	}

	categories, err := s.projects.CategoryStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get category stats: %w", err)
	}

	return &DashboardStats{
		TotalProjects: total,
		Jobs:          *jobStats,
		Categories:    categories,
		LastUpdated:   time.Now().UTC(),
	}, nil
}

// System returns host CPU and memory usage.
func (s *StatsService) System(ctx context.Context) (*SystemStats, error) {
	v, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read memory stats: %w", err)
	}

	stats := &SystemStats{
		MemoryPercent: v.UsedPercent,
		MemoryUsedMB:  v.Used / 1024 / 1024,
		MemoryTotalMB: v.Total / 1024 / 1024,
	}

	if percents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percents) > 0 {
		stats.CPUPercent = percents[0]
	}

	return stats, nil
}
