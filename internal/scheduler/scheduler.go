// Package scheduler arms a single timer from the stored schedule config
// and enqueues a scrape job for every enabled county when it fires.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sadewadee/dgs-scraper/internal/domain"
	"github.com/sadewadee/dgs-scraper/internal/schedule"
)

// fallbackDelay is used when the next fire time cannot be computed, so
// a transient storage error or bad config never leaves the scheduler
// permanently dead.
const fallbackDelay = time.Hour

// Enqueuer accepts scrape jobs. Satisfied by the queue manager.
type Enqueuer interface {
	Enqueue(ctx context.Context, countyCode string) (*domain.Job, error)
}

// Notifier is told after a scheduled fire has enqueued its jobs.
// Satisfied by the digest service.
type Notifier interface {
	Deliver(ctx context.Context, recipients []string) error
}

// Status describes the scheduler's arming state for the API.
type Status struct {
	Armed      bool       `json:"armed"`
	NextFireAt *time.Time `json:"next_fire_at,omitempty"`
	LastFireAt *time.Time `json:"last_fire_at,omitempty"`
}

// AutoScheduler owns one timer. Rearming replaces the previous timer,
// so at most one fire is ever outstanding.
type AutoScheduler struct {
	schedules domain.ScheduleRepository
	counties  domain.CountyRepository
	enqueuer  Enqueuer
	calc      *schedule.Calculator
	notifier  Notifier
	logger    zerolog.Logger

	mu     sync.Mutex
	ctx    context.Context
	timer  *time.Timer
	nextAt *time.Time
	closed bool
}

// New creates an AutoScheduler. Start must be called to arm it.
func New(
	schedules domain.ScheduleRepository,
	counties domain.CountyRepository,
	enqueuer Enqueuer,
	calc *schedule.Calculator,
	logger zerolog.Logger,
) *AutoScheduler {
	return &AutoScheduler{
		schedules: schedules,
		counties:  counties,
		enqueuer:  enqueuer,
		calc:      calc,
		logger:    logger.With().Str("component", "scheduler").Logger(),
	}
}

// SetNotifier registers the digest notifier. Must be called before
// Start.
func (s *AutoScheduler) SetNotifier(n Notifier) {
	s.notifier = n
}

// Start arms the scheduler from the stored config. The context bounds
// all work done by timer fires.
func (s *AutoScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	return s.Reschedule(ctx)
}

// Stop disarms the scheduler. A fire already in flight finishes but
// does not rearm.
func (s *AutoScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.disarmLocked()
}

// Reschedule recomputes the next fire time from the stored config and
// rearms the timer. Called on start and whenever the config changes.
func (s *AutoScheduler) Reschedule(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	cfg, err := s.schedules.Get(ctx)
	if err != nil {
		s.logger.Error().Err(err).
			Dur("retry_in", fallbackDelay).
			Msg("failed to load schedule config, arming fallback timer")
		s.armLocked(fallbackDelay, nil)

		return err
	}

	if !cfg.Enabled() {
		s.logger.Info().Msg("no recipients configured, scheduler disarmed")
		s.disarmLocked()

		return nil
	}

	next, err := s.calc.NextFireTime(cfg)
	if err != nil {
		s.logger.Error().Err(err).
			Str("frequency", string(cfg.Frequency)).
			Dur("retry_in", fallbackDelay).
			Msg("failed to compute next fire time, arming fallback timer")
		s.armLocked(fallbackDelay, nil)

		return err
	}

	// The delay comes from the calculator's clock so the timer and the
	// reported fire time always agree.
	delay, err := s.calc.Until(cfg)
	if err != nil {
		s.armLocked(fallbackDelay, nil)
		return err
	}

	s.armLocked(delay, &next)
	s.logger.Info().
		Time("next_fire_at", next).
		Str("frequency", string(cfg.Frequency)).
		Msg("scheduler armed")

	return nil
}

// Status reports the current arming state.
func (s *AutoScheduler) Status(ctx context.Context) Status {
	s.mu.Lock()
	var nextAt *time.Time
	if s.nextAt != nil {
		t := *s.nextAt
		nextAt = &t
	}
	armed := s.timer != nil
	s.mu.Unlock()

	st := Status{Armed: armed, NextFireAt: nextAt}

	if cfg, err := s.schedules.Get(ctx); err == nil {
		st.LastFireAt = cfg.LastFireAt
	}

	return st
}

// armLocked replaces the timer. Caller holds s.mu.
func (s *AutoScheduler) armLocked(d time.Duration, at *time.Time) {
	s.disarmLocked()

	if d < 0 {
		d = 0
	}

	s.nextAt = at
	s.timer = time.AfterFunc(d, s.fire)
}

func (s *AutoScheduler) disarmLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.nextAt = nil
}

// fire enqueues one job per enabled county, then rearms. Rearming is
// unconditional so one bad fire never stops future ones.
func (s *AutoScheduler) fire() {
	s.mu.Lock()
	ctx := s.ctx
	closed := s.closed
	s.mu.Unlock()

	if closed {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	defer func() {
		if err := s.Reschedule(ctx); err != nil {
			s.logger.Error().Err(err).Msg("failed to rearm after fire")
		}
	}()

	cfg, err := s.schedules.Get(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load config for scheduled run")
		return
	}

	counties, err := s.counties.ListEnabled(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list counties for scheduled run")
		return
	}

	enqueued := 0
	for _, county := range counties {
		if _, err := s.enqueuer.Enqueue(ctx, county.Code); err != nil {
			// One county failing must not starve the rest.
			s.logger.Error().Err(err).
				Str("county", county.Code).
				Msg("failed to enqueue scheduled job")
			continue
		}
		enqueued++
	}

	now := time.Now().UTC()
	if err := s.schedules.SetLastFireAt(ctx, now); err != nil {
		s.logger.Error().Err(err).Msg("failed to record fire time")
	}

	if s.notifier != nil {
		if err := s.notifier.Deliver(ctx, cfg.Recipients); err != nil {
			s.logger.Error().Err(err).Msg("failed to deliver digest")
		}
	}

	s.logger.Info().
		Int("enqueued", enqueued).
		Int("counties", len(counties)).
		Msg("scheduled run fired")
}
