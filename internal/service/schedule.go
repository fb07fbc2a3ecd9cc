package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/sadewadee/dgs-scraper/internal/digest"
	"github.com/sadewadee/dgs-scraper/internal/domain"
	"github.com/sadewadee/dgs-scraper/internal/scheduler"
)

// ScheduleService manages the auto-scrape schedule config and keeps the
// scheduler's timer in sync with it.
type ScheduleService struct {
	schedules domain.ScheduleRepository
	scheduler *scheduler.AutoScheduler
	logger    zerolog.Logger
}

// NewScheduleService creates a new ScheduleService
func NewScheduleService(schedules domain.ScheduleRepository, sched *scheduler.AutoScheduler, logger zerolog.Logger) *ScheduleService {
	return &ScheduleService{
		schedules: schedules,
		scheduler: sched,
		logger:    logger.With().Str("component", "schedule").Logger(),
	}
}

// Get returns the current schedule config
func (s *ScheduleService) Get(ctx context.Context) (*domain.ScheduleConfig, error) {
	return s.schedules.Get(ctx)
}

// Save validates and stores a new config, then rearms the scheduler.
func (s *ScheduleService) Save(ctx context.Context, cfg *domain.ScheduleConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := digest.ValidateRecipients(cfg.Recipients); err != nil {
		return err
	}

	if err := s.schedules.Save(ctx, cfg); err != nil {
		return fmt.Errorf("failed to save schedule config: %w", err)
	}

	if err := s.scheduler.Reschedule(ctx); err != nil {
		// The config is saved; the fallback timer will retry the arm.
		s.logger.Warn().Err(err).Msg("saved config but failed to rearm scheduler")
	}

	return nil
}

// Status reports the scheduler's arming state
func (s *ScheduleService) Status(ctx context.Context) scheduler.Status {
	return s.scheduler.Status(ctx)
}
