package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadewadee/dgs-scraper/internal/categorize"
	"github.com/sadewadee/dgs-scraper/internal/domain"
	"github.com/sadewadee/dgs-scraper/internal/scraper"
)

type fakeTracker struct {
	districts map[string][]scraper.District
	projects  map[string][]scraper.ProjectRef
	details   map[string]map[string]string

	detailCalls int
	cancelAfter int
	cancel      context.CancelFunc
}

func (f *fakeTracker) Districts(_ context.Context, county string) ([]scraper.District, error) {
	return f.districts[county], nil
}

func (f *fakeTracker) Projects(_ context.Context, clientID string) ([]scraper.ProjectRef, error) {
	return f.projects[clientID], nil
}

func (f *fakeTracker) Details(_ context.Context, originID, appID string) (map[string]string, error) {
	f.detailCalls++
	if f.cancel != nil && f.detailCalls >= f.cancelAfter {
		f.cancel()
	}

	return f.details[originID+"/"+appID], nil
}

func (f *fakeTracker) Delay() time.Duration { return 0 }

type memJobRepo struct {
	mu   sync.Mutex
	jobs map[int64]*domain.Job
}

func newMemJobRepo(ids ...int64) *memJobRepo {
	r := &memJobRepo{jobs: make(map[int64]*domain.Job)}
	for _, id := range ids {
		r.jobs[id] = &domain.Job{ID: id, Status: domain.JobStatusRunning}
	}

	return r
}

func (r *memJobRepo) Create(_ context.Context, _ *domain.Job) error { return nil }

func (r *memJobRepo) GetByID(_ context.Context, id int64) (*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[id]
	if !ok {
		return nil, nil
	}

	cp := *j
	return &cp, nil
}

func (r *memJobRepo) List(_ context.Context, _ int) ([]*domain.Job, error) { return nil, nil }

func (r *memJobRepo) OldestPending(_ context.Context) (*domain.Job, error) { return nil, nil }

func (r *memJobRepo) UpdateStatus(_ context.Context, id int64, status domain.JobStatus, errMsg *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if j, ok := r.jobs[id]; ok {
		j.Status = status
		j.ErrorMessage = errMsg
	}

	return nil
}

func (r *memJobRepo) UpdateProgress(_ context.Context, id int64, p domain.JobProgress) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[id]
	if !ok {
		return nil
	}

	if p.TotalProjects != nil {
		j.TotalProjects = *p.TotalProjects
	}
	if p.ProcessedProjects != nil {
		j.ProcessedProjects = *p.ProcessedProjects
	}
	if p.SuccessCount != nil {
		j.SuccessCount = *p.SuccessCount
	}

	return nil
}

func (r *memJobRepo) Stats(_ context.Context) (*domain.JobStats, error) { return nil, nil }

type memCountyRepo struct {
	mu          sync.Mutex
	lastScraped map[string]int
}

func newMemCountyRepo() *memCountyRepo {
	return &memCountyRepo{lastScraped: make(map[string]int)}
}

func (r *memCountyRepo) List(_ context.Context) ([]*domain.County, error)        { return nil, nil }
func (r *memCountyRepo) ListEnabled(_ context.Context) ([]*domain.County, error) { return nil, nil }
func (r *memCountyRepo) GetByCode(_ context.Context, _ string) (*domain.County, error) {
	return nil, nil
}
func (r *memCountyRepo) SetEnabled(_ context.Context, _ string, _ bool) error { return nil }

func (r *memCountyRepo) TouchLastScraped(_ context.Context, code string, total int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastScraped[code] = total
	return nil
}

type memProjectRepo struct {
	mu         sync.Mutex
	nextID     int64
	projects   map[string]*domain.Project
	categories map[int64]domain.Category
}

func newMemProjectRepo() *memProjectRepo {
	return &memProjectRepo{
		nextID:     1,
		projects:   make(map[string]*domain.Project),
		categories: make(map[int64]domain.Category),
	}
}

func (r *memProjectRepo) Upsert(_ context.Context, p *domain.Project) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := p.OriginID + "/" + p.AppID
	if existing, ok := r.projects[key]; ok {
		p.ID = existing.ID
	} else {
		p.ID = r.nextID
		r.nextID++
	}

	cp := *p
	r.projects[key] = &cp

	return p.ID, nil
}

func (r *memProjectRepo) Exists(_ context.Context, originID, appID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.projects[originID+"/"+appID]
	return ok, nil
}

func (r *memProjectRepo) Count(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.projects), nil
}

func (r *memProjectRepo) List(_ context.Context, _ domain.ProjectListParams) ([]*domain.Project, error) {
	return nil, nil
}

func (r *memProjectRepo) ListAll(_ context.Context) ([]*domain.Project, error) { return nil, nil }

func (r *memProjectRepo) SetCategory(_ context.Context, projectID int64, category domain.Category, _ int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.categories[projectID] = category
	return nil
}

func (r *memProjectRepo) CategoryStats(_ context.Context) ([]*domain.CategoryStats, error) {
	return nil, nil
}

func detailData(amount, received string) map[string]string {
	return map[string]string{
		"Office ID":     "02",
		"Estimated Amt": amount,
		"Received Date": received,
	}
}

func newFakeTracker() *fakeTracker {
	return &fakeTracker{
		districts: map[string][]scraper.District{
			"34": {
				{ClientID: "1234", Code: "67439", Name: "Sacramento City Unified", County: "34"},
			},
		},
		projects: map[string][]scraper.ProjectRef{
			"1234": {
				{OriginID: "02", AppID: "100", DSAAppID: "02-100", Name: "New Gym", ClientID: "1234"},
				{OriginID: "02", AppID: "200", DSAAppID: "02-200", Name: "Modernization", ClientID: "1234"},
			},
		},
		details: map[string]map[string]string{
			"02/100": detailData("$2,500,000", "03/15/2023"),
			"02/200": detailData("$50,000", "03/15/2023"),
		},
	}
}

func newTestWorker(tracker Tracker) (*Worker, *memJobRepo, *memCountyRepo, *memProjectRepo) {
	jobs := newMemJobRepo(1)
	counties := newMemCountyRepo()
	projects := newMemProjectRepo()

	w := New(jobs, counties, projects, tracker, categorize.Default(), zerolog.Nop())

	return w, jobs, counties, projects
}

func TestWorkerRunCompletes(t *testing.T) {
	tracker := newFakeTracker()
	w, jobs, counties, projects := newTestWorker(tracker)

	require.NoError(t, w.Run(context.Background(), 1, "34"))

	j, err := jobs.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, j.Status)
	assert.Equal(t, 2, j.TotalProjects)
	assert.Equal(t, 2, j.ProcessedProjects)
	assert.Equal(t, 2, j.SuccessCount)

	count, err := projects.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// The big project lands in strongLeads, the small one in ignored.
	assert.Equal(t, domain.CategoryStrongLeads, projects.categories[projects.projects["02/100"].ID])
	assert.Equal(t, domain.CategoryIgnored, projects.categories[projects.projects["02/200"].ID])

	assert.Equal(t, 2, counties.lastScraped["34"])
}

func TestWorkerSkipsExistingProjects(t *testing.T) {
	tracker := newFakeTracker()
	w, jobs, _, projects := newTestWorker(tracker)

	_, err := projects.Upsert(context.Background(), &domain.Project{OriginID: "02", AppID: "100"})
	require.NoError(t, err)

	require.NoError(t, w.Run(context.Background(), 1, "34"))

	// Only the new project needed a detail fetch.
	assert.Equal(t, 1, tracker.detailCalls)

	j, err := jobs.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, j.SuccessCount)
}

func TestWorkerCountsValidationFailures(t *testing.T) {
	tracker := newFakeTracker()
	// No detail fields at all, the project cannot be validated.
	tracker.details["02/200"] = map[string]string{}

	w, jobs, _, projects := newTestWorker(tracker)

	require.NoError(t, w.Run(context.Background(), 1, "34"))

	count, err := projects.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	j, err := jobs.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, j.Status)
	assert.Equal(t, 1, j.SuccessCount)
	assert.Equal(t, 2, j.ProcessedProjects)
}

func TestWorkerStoppedOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	tracker := newFakeTracker()
	tracker.cancel = cancel
	tracker.cancelAfter = 1

	w, jobs, _, _ := newTestWorker(tracker)

	err := w.Run(ctx, 1, "34")
	assert.ErrorIs(t, err, context.Canceled)

	j, gerr := jobs.GetByID(context.Background(), 1)
	require.NoError(t, gerr)
	assert.Equal(t, domain.JobStatusStopped, j.Status)
}
