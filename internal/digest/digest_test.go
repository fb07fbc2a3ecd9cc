package digest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadewadee/dgs-scraper/internal/domain"
)

type stubProjectRepo struct {
	count int
	stats []*domain.CategoryStats
}

func (r *stubProjectRepo) Upsert(_ context.Context, _ *domain.Project) (int64, error) {
	return 0, nil
}
func (r *stubProjectRepo) Exists(_ context.Context, _, _ string) (bool, error) { return false, nil }
func (r *stubProjectRepo) Count(_ context.Context) (int, error)                { return r.count, nil }
func (r *stubProjectRepo) List(_ context.Context, _ domain.ProjectListParams) ([]*domain.Project, error) {
	return nil, nil
}
func (r *stubProjectRepo) ListAll(_ context.Context) ([]*domain.Project, error) { return nil, nil }
func (r *stubProjectRepo) SetCategory(_ context.Context, _ int64, _ domain.Category, _ int) error {
	return nil
}
func (r *stubProjectRepo) CategoryStats(_ context.Context) ([]*domain.CategoryStats, error) {
	return r.stats, nil
}

type stubJobRepo struct {
	stats domain.JobStats
}

func (r *stubJobRepo) Create(_ context.Context, _ *domain.Job) error            { return nil }
func (r *stubJobRepo) GetByID(_ context.Context, _ int64) (*domain.Job, error)  { return nil, nil }
func (r *stubJobRepo) List(_ context.Context, _ int) ([]*domain.Job, error)     { return nil, nil }
func (r *stubJobRepo) OldestPending(_ context.Context) (*domain.Job, error)     { return nil, nil }
func (r *stubJobRepo) UpdateStatus(_ context.Context, _ int64, _ domain.JobStatus, _ *string) error {
	return nil
}
func (r *stubJobRepo) UpdateProgress(_ context.Context, _ int64, _ domain.JobProgress) error {
	return nil
}
func (r *stubJobRepo) Stats(_ context.Context) (*domain.JobStats, error) { return &r.stats, nil }

type recordingSender struct {
	mu         sync.Mutex
	recipients []string
	subject    string
	body       string
	calls      int
}

func (s *recordingSender) Send(_ context.Context, recipients []string, subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.recipients = recipients
	s.subject = subject
	s.body = body
	s.calls++

	return nil
}

func TestCompose(t *testing.T) {
	composer := NewComposer(
		&stubProjectRepo{
			count: 120,
			stats: []*domain.CategoryStats{
				{Category: domain.CategoryStrongLeads, Count: 10, TotalValue: 25_000_000},
				{Category: domain.CategoryWatchlist, Count: 40, TotalValue: 8_000_000},
			},
		},
		&stubJobRepo{stats: domain.JobStats{Completed: 5, Failed: 1}},
	)

	msg, err := composer.Compose(context.Background(), time.Date(2024, 1, 22, 4, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, "DGS lead digest 2024-01-22", msg.Subject)
	assert.Contains(t, msg.Body, "Projects in database: 120")
	assert.Contains(t, msg.Body, "strongLeads")
	assert.Contains(t, msg.Body, "5 completed, 1 failed")
}

func TestDeliverSkipsInvalidRecipients(t *testing.T) {
	sender := &recordingSender{}
	svc := NewService(
		NewComposer(&stubProjectRepo{}, &stubJobRepo{}),
		sender, zerolog.Nop())

	err := svc.Deliver(context.Background(), []string{
		"leads@example.com", "not-an-email", "Leads@Example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, sender.calls)
	assert.Equal(t, []string{"leads@example.com"}, sender.recipients)
}

func TestDeliverNoValidRecipients(t *testing.T) {
	sender := &recordingSender{}
	svc := NewService(
		NewComposer(&stubProjectRepo{}, &stubJobRepo{}),
		sender, zerolog.Nop())

	require.NoError(t, svc.Deliver(context.Background(), []string{"bad", ""}))
	assert.Equal(t, 0, sender.calls)
}

func TestSplitRecipients(t *testing.T) {
	valid, invalid := SplitRecipients([]string{
		" a@example.com ", "b@example", "A@EXAMPLE.COM", "c@example.org", "",
	})

	assert.Equal(t, []string{"a@example.com", "c@example.org"}, valid)
	assert.Equal(t, []string{"b@example"}, invalid)
}

func TestValidateRecipients(t *testing.T) {
	assert.NoError(t, ValidateRecipients([]string{"a@example.com"}))
	assert.NoError(t, ValidateRecipients(nil))
	assert.Error(t, ValidateRecipients([]string{"a@example.com", "nope"}))
}
