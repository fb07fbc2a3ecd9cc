// Package digest composes and sends the lead summary email that goes
// out to the configured recipients after a scheduled scrape run.
package digest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sadewadee/dgs-scraper/internal/domain"
)

// Composer builds the digest from the current database contents.
type Composer struct {
	projects domain.ProjectRepository
	jobs     domain.JobRepository
}

func NewComposer(projects domain.ProjectRepository, jobs domain.JobRepository) *Composer {
	return &Composer{projects: projects, jobs: jobs}
}

// Message is a rendered digest ready for sending.
type Message struct {
	Subject string
	Body    string
}

// Compose renders the digest for the given run date.
func (c *Composer) Compose(ctx context.Context, at time.Time) (*Message, error) {
	total, err := c.projects.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count projects: %w", err)
	}

	categories, err := c.projects.CategoryStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load category stats: %w", err)
	}

	jobStats, err := c.jobs.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load job stats: %w", err)
	}

	var b strings.Builder

	fmt.Fprintf(&b, "DGS school project leads as of %s\n\n", at.Format("January 2, 2006"))
	fmt.Fprintf(&b, "Projects in database: %d\n\n", total)

	if len(categories) > 0 {
		b.WriteString("Leads by tier:\n")
		for _, cs := range categories {
			fmt.Fprintf(&b, "  %-12s %6d projects, $%.0f total value\n",
				cs.Category, cs.Count, cs.TotalValue)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Scrape jobs: %d completed, %d failed, %d pending\n",
		jobStats.Completed, jobStats.Failed, jobStats.Pending)

	return &Message{
		Subject: fmt.Sprintf("DGS lead digest %s", at.Format("2006-01-02")),
		Body:    b.String(),
	}, nil
}

// Service ties composition and delivery together for the scheduler.
type Service struct {
	composer *Composer
	sender   Sender
	logger   zerolog.Logger
}

func NewService(composer *Composer, sender Sender, logger zerolog.Logger) *Service {
	return &Service{
		composer: composer,
		sender:   sender,
		logger:   logger.With().Str("component", "digest").Logger(),
	}
}

// Deliver composes the digest and sends it to the recipients. Invalid
// addresses were rejected at config save time, so any left here are
// skipped with a warning rather than failing the whole send.
func (s *Service) Deliver(ctx context.Context, recipients []string) error {
	valid, invalid := SplitRecipients(recipients)
	for _, addr := range invalid {
		s.logger.Warn().Str("address", addr).Msg("skipping invalid digest recipient")
	}

	if len(valid) == 0 {
		s.logger.Info().Msg("no valid digest recipients, nothing to send")
		return nil
	}

	msg, err := s.composer.Compose(ctx, time.Now())
	if err != nil {
		return err
	}

	if err := s.sender.Send(ctx, valid, msg.Subject, msg.Body); err != nil {
		return fmt.Errorf("failed to send digest: %w", err)
	}

	s.logger.Info().Int("recipients", len(valid)).Msg("digest sent")

	return nil
}
