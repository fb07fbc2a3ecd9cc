package sqlite

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadewadee/dgs-scraper/internal/domain"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := OpenConnection(":memory:")
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })

	require.NoError(t, RunMigrations(db, zerolog.Nop()))

	return db
}

func TestJobLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewJobRepository(newTestDB(t))

	job := &domain.Job{CountyCode: "34"}
	require.NoError(t, repo.Create(ctx, job))
	assert.NotZero(t, job.ID)
	assert.Equal(t, domain.JobStatusPending, job.Status)

	pending, err := repo.OldestPending(ctx)
	require.NoError(t, err)
	require.NotNil(t, pending)
	assert.Equal(t, job.ID, pending.ID)

	require.NoError(t, repo.UpdateStatus(ctx, job.ID, domain.JobStatusRunning, nil))

	got, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusRunning, got.Status)
	assert.NotNil(t, got.StartedAt)
	assert.Nil(t, got.CompletedAt)

	total, processed := 10, 7
	require.NoError(t, repo.UpdateProgress(ctx, job.ID, domain.JobProgress{
		TotalProjects:     &total,
		ProcessedProjects: &processed,
	}))

	msg := "tracker returned 503"
	require.NoError(t, repo.UpdateStatus(ctx, job.ID, domain.JobStatusFailed, &msg))

	got, err = repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, got.Status)
	assert.Equal(t, 10, got.TotalProjects)
	assert.Equal(t, 7, got.ProcessedProjects)
	assert.NotNil(t, got.CompletedAt)
	require.NotNil(t, got.ErrorMessage)
	assert.Equal(t, msg, *got.ErrorMessage)

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.Failed)
	assert.Zero(t, stats.Pending)
}

func TestJobGetByIDNotFound(t *testing.T) {
	repo := NewJobRepository(newTestDB(t))

	job, err := repo.GetByID(context.Background(), 9999)
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestJobListMostRecentFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewJobRepository(newTestDB(t))

	for _, code := range []string{"01", "02", "03"} {
		require.NoError(t, repo.Create(ctx, &domain.Job{CountyCode: code}))
	}

	jobs, err := repo.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "03", jobs[0].CountyCode)
	assert.Equal(t, "02", jobs[1].CountyCode)
}

func TestCountySeed(t *testing.T) {
	ctx := context.Background()
	repo := NewCountyRepository(newTestDB(t))

	counties, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, counties, 58)

	sacramento, err := repo.GetByCode(ctx, "34")
	require.NoError(t, err)
	require.NotNil(t, sacramento)
	assert.Equal(t, "Sacramento", sacramento.Name)
	assert.True(t, sacramento.Enabled)

	unknown, err := repo.GetByCode(ctx, "99")
	require.NoError(t, err)
	assert.Nil(t, unknown)
}

func TestCountySetEnabled(t *testing.T) {
	ctx := context.Background()
	repo := NewCountyRepository(newTestDB(t))

	require.NoError(t, repo.SetEnabled(ctx, "34", false))

	enabled, err := repo.ListEnabled(ctx)
	require.NoError(t, err)
	assert.Len(t, enabled, 57)

	err = repo.SetEnabled(ctx, "99", false)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestCountyTouchLastScraped(t *testing.T) {
	ctx := context.Background()
	repo := NewCountyRepository(newTestDB(t))

	require.NoError(t, repo.TouchLastScraped(ctx, "34", 42))

	county, err := repo.GetByCode(ctx, "34")
	require.NoError(t, err)
	assert.Equal(t, 42, county.TotalProjects)
	assert.NotNil(t, county.LastScraped)
}

func TestProjectUpsert(t *testing.T) {
	ctx := context.Background()
	repo := NewProjectRepository(newTestDB(t))

	p := &domain.Project{
		OriginID: "287211",
		AppID:    "69793",
		CountyID: "34",
		ClientID: "1234",
		Name:     "Lincoln Elementary Modernization",
		Data:     map[string]string{"Estimated Amt": "$2,500,000"},
	}

	id, err := repo.Upsert(ctx, p)
	require.NoError(t, err)
	assert.NotZero(t, id)

	exists, err := repo.Exists(ctx, "287211", "69793")
	require.NoError(t, err)
	assert.True(t, exists)

	p.Name = "Lincoln Elementary Modernization Phase 2"
	again, err := repo.Upsert(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, id, again)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Lincoln Elementary Modernization Phase 2", all[0].Name)
	assert.Equal(t, "$2,500,000", all[0].Data["Estimated Amt"])
}

func TestProjectCategories(t *testing.T) {
	ctx := context.Background()
	repo := NewProjectRepository(newTestDB(t))

	strong := &domain.Project{
		OriginID: "1", AppID: "1", CountyID: "34", ClientID: "1",
		Data: map[string]string{"Estimated Amt": "$2,000,000"},
	}
	ignored := &domain.Project{
		OriginID: "2", AppID: "2", CountyID: "34", ClientID: "1",
		Data: map[string]string{"Estimated Amt": "$50,000"},
	}

	strongID, err := repo.Upsert(ctx, strong)
	require.NoError(t, err)
	ignoredID, err := repo.Upsert(ctx, ignored)
	require.NoError(t, err)

	require.NoError(t, repo.SetCategory(ctx, strongID, domain.CategoryStrongLeads, 1))
	require.NoError(t, repo.SetCategory(ctx, ignoredID, domain.CategoryIgnored, 0))

	cat := domain.CategoryStrongLeads
	projects, err := repo.List(ctx, domain.ProjectListParams{Category: &cat, Limit: 10})
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "1", projects[0].OriginID)

	// Recategorizing replaces the previous tier
	require.NoError(t, repo.SetCategory(ctx, strongID, domain.CategoryWatchlist, 1))

	projects, err = repo.List(ctx, domain.ProjectListParams{Category: &cat, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, projects)

	stats, err := repo.CategoryStats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	byCategory := map[domain.Category]*domain.CategoryStats{}
	for _, s := range stats {
		byCategory[s.Category] = s
	}

	require.Contains(t, byCategory, domain.CategoryWatchlist)
	assert.Equal(t, 1, byCategory[domain.CategoryWatchlist].Count)
	assert.InDelta(t, 2_000_000, byCategory[domain.CategoryWatchlist].TotalValue, 0.01)
}

func TestScheduleConfigDefaultOnFirstRead(t *testing.T) {
	ctx := context.Background()
	repo := NewScheduleRepository(newTestDB(t))

	cfg, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.FrequencyWeekly, cfg.Frequency)
	assert.Empty(t, cfg.Recipients)
	assert.False(t, cfg.Enabled())
}

func TestScheduleConfigSaveAndLastFire(t *testing.T) {
	ctx := context.Background()
	repo := NewScheduleRepository(newTestDB(t))

	cfg := &domain.ScheduleConfig{
		Recipients: []string{"leads@example.com"},
		Frequency:  domain.FrequencyMonthly,
		MonthlyDay: 31,
	}
	require.NoError(t, repo.Save(ctx, cfg))

	got, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.FrequencyMonthly, got.Frequency)
	assert.Equal(t, 31, got.MonthlyDay)
	assert.Equal(t, []string{"leads@example.com"}, got.Recipients)
	assert.Nil(t, got.LastFireAt)

	fired := time.Date(2024, 1, 15, 4, 0, 0, 0, time.UTC)
	require.NoError(t, repo.SetLastFireAt(ctx, fired))

	// Saving without a fire time keeps the recorded one
	cfg.LastFireAt = nil
	require.NoError(t, repo.Save(ctx, cfg))

	got, err = repo.Get(ctx)
	require.NoError(t, err)
	assert.NotNil(t, got.LastFireAt)
}

func TestCriteriaSeedAndUpdate(t *testing.T) {
	ctx := context.Background()
	repo := NewCriteriaRepository(newTestDB(t))

	criteria, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, criteria, 4)

	byCategory := map[domain.Category]*domain.Criteria{}
	for _, c := range criteria {
		byCategory[c.Category] = c
	}

	require.Contains(t, byCategory, domain.CategoryStrongLeads)
	assert.InDelta(t, 2_000_000, byCategory[domain.CategoryStrongLeads].MinAmount, 0.01)
	require.NotNil(t, byCategory[domain.CategoryStrongLeads].ReceivedAfter)
	assert.Equal(t, 2023, byCategory[domain.CategoryStrongLeads].ReceivedAfter.Year())

	updated := byCategory[domain.CategoryStrongLeads]
	updated.MinAmount = 3_000_000
	require.NoError(t, repo.Update(ctx, updated))

	criteria, err = repo.List(ctx)
	require.NoError(t, err)
	for _, c := range criteria {
		if c.Category == domain.CategoryStrongLeads {
			assert.InDelta(t, 3_000_000, c.MinAmount, 0.01)
		}
	}

	err = repo.Update(ctx, &domain.Criteria{Category: domain.Category("bogus")})
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
