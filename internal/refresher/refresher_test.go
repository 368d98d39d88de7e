package refresher

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/flowmon/internal/store"
	"github.com/rendis/flowmon/pkg/schema"
)

// mockRefreshStore satisfies store.Store for refresher tests.
type mockRefreshStore struct {
	store.Store
	mu        sync.Mutex
	jobs      map[string]*store.RefreshJob
	workflows map[string]bool
}

func newMockRefreshStore() *mockRefreshStore {
	return &mockRefreshStore{
		jobs:      make(map[string]*store.RefreshJob),
		workflows: map[string]bool{"wf-1": true, "wf-2": true},
	}
}

func (m *mockRefreshStore) GetWorkflow(_ context.Context, id string) (*store.Workflow, error) {
	if !m.workflows[id] {
		return nil, schema.NewErrorf(schema.ErrCodeNotFound, "workflow %q not found", id)
	}
	return &store.Workflow{ID: id}, nil
}

func (m *mockRefreshStore) CreateRefreshJob(_ context.Context, job *store.RefreshJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job.ID == "" {
		job.ID = "job-" + job.WorkflowID
	}
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

func (m *mockRefreshStore) get(id string) *store.RefreshJob {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil
	}
	cp := *j
	return &cp
}

func (m *mockRefreshStore) UpdateRefreshJob(_ context.Context, id string, update store.RefreshJobUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil
	}
	if update.Enabled != nil {
		j.Enabled = *update.Enabled
	}
	if update.LastRunAt != nil {
		j.LastRunAt = update.LastRunAt
	}
	if update.NextRunAt != nil {
		j.NextRunAt = update.NextRunAt
	}
	if update.LastRunStatus != "" {
		j.LastRunStatus = update.LastRunStatus
	}
	return nil
}

func (m *mockRefreshStore) ListRefreshJobs(_ context.Context, filter store.RefreshJobFilter) ([]*store.RefreshJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*store.RefreshJob
	for _, j := range m.jobs {
		if filter.Enabled != nil && j.Enabled != *filter.Enabled {
			continue
		}
		if filter.WorkflowID != "" && j.WorkflowID != filter.WorkflowID {
			continue
		}
		cp := *j
		result = append(result, &cp)
	}
	return result, nil
}

// mockTarget records RefreshWorkflow calls.
type mockTarget struct {
	mu    sync.Mutex
	calls []string
	views int
	err   error
}

func (t *mockTarget) RefreshWorkflow(_ context.Context, workflowID string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls = append(t.calls, workflowID)
	return t.views, t.err
}

func (t *mockTarget) callCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.calls)
}

func newTestRefresher(s store.Store, target WorkflowRefresher) *Refresher {
	return New(s, target, slog.New(slog.NewTextHandler(io.Discard, nil)), WithInterval(10*time.Millisecond))
}

func addJob(t *testing.T, ms *mockRefreshStore, id, workflowID string, enabled bool, next *time.Time) {
	t.Helper()
	require.NoError(t, ms.CreateRefreshJob(context.Background(), &store.RefreshJob{
		ID:             id,
		WorkflowID:     workflowID,
		CronExpression: "*/5 * * * *",
		Enabled:        enabled,
		NextRunAt:      next,
	}))
}

func ago(d time.Duration) *time.Time {
	t := time.Now().UTC().Add(-d)
	return &t
}

func TestCalculateNextRun(t *testing.T) {
	r := newTestRefresher(newMockRefreshStore(), &mockTarget{})
	from := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		expr string
		want time.Time
	}{
		{"0 * * * *", time.Date(2026, 2, 10, 13, 0, 0, 0, time.UTC)},
		{"*/15 * * * *", time.Date(2026, 2, 10, 12, 15, 0, 0, time.UTC)},
		{"0 0 * * *", time.Date(2026, 2, 11, 0, 0, 0, 0, time.UTC)},
		{"@hourly", time.Date(2026, 2, 10, 13, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			next, err := r.CalculateNextRun(tt.expr, from)
			require.NoError(t, err)
			assert.Equal(t, tt.want, next)
		})
	}

	_, err := r.CalculateNextRun("invalid cron", from)
	require.Error(t, err)
}

func TestSchedule(t *testing.T) {
	ms := newMockRefreshStore()
	r := newTestRefresher(ms, &mockTarget{})
	ctx := context.Background()

	job, err := r.Schedule(ctx, "wf-1", "*/5 * * * *")
	require.NoError(t, err)
	assert.True(t, job.Enabled)
	require.NotNil(t, job.NextRunAt)
	assert.True(t, job.NextRunAt.After(time.Now().UTC()))
	assert.NotNil(t, ms.get(job.ID))

	_, err = r.Schedule(ctx, "wf-1", "every minute")
	assert.True(t, schema.IsCode(err, schema.ErrCodeValidation))

	_, err = r.Schedule(ctx, "", "@hourly")
	assert.True(t, schema.IsCode(err, schema.ErrCodeValidation))

	_, err = r.Schedule(ctx, "wf-missing", "@hourly")
	assert.True(t, schema.IsCode(err, schema.ErrCodeNotFound))
}

func TestTick(t *testing.T) {
	tests := []struct {
		name    string
		enabled bool
		next    *time.Time
		runs    int
	}{
		{"due", true, ago(time.Hour), 1},
		{"never run", true, nil, 1},
		{"not due", true, ago(-time.Hour), 0},
		{"disabled", false, ago(time.Hour), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ms := newMockRefreshStore()
			target := &mockTarget{views: 1}
			r := newTestRefresher(ms, target)
			addJob(t, ms, "job", "wf-1", tt.enabled, tt.next)

			r.tick(context.Background())
			assert.Equal(t, tt.runs, target.callCount())
		})
	}
}

func TestRunRecordsStatus(t *testing.T) {
	tests := []struct {
		name   string
		target *mockTarget
		want   string
	}{
		{"views refreshed", &mockTarget{views: 2}, StatusSuccess},
		{"no open views", &mockTarget{}, StatusIdle},
		{"refresh failed", &mockTarget{err: assert.AnError}, StatusError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ms := newMockRefreshStore()
			r := newTestRefresher(ms, tt.target)
			addJob(t, ms, "job", "wf-1", true, ago(time.Minute))

			r.tick(context.Background())

			got := ms.get("job")
			assert.Equal(t, tt.want, got.LastRunStatus)
			require.NotNil(t, got.LastRunAt)
			require.NotNil(t, got.NextRunAt)
			assert.True(t, got.NextRunAt.After(time.Now().UTC().Add(-time.Second)))
			assert.Equal(t, []string{"wf-1"}, tt.target.calls)
		})
	}
}

func TestInvalidCronDisablesJob(t *testing.T) {
	ms := newMockRefreshStore()
	target := &mockTarget{views: 1}
	r := newTestRefresher(ms, target)
	require.NoError(t, ms.CreateRefreshJob(context.Background(), &store.RefreshJob{
		ID: "broken", WorkflowID: "wf-1", CronExpression: "nope", Enabled: true,
	}))

	r.tick(context.Background())
	got := ms.get("broken")
	assert.False(t, got.Enabled)
	assert.Equal(t, StatusError, got.LastRunStatus)

	r.tick(context.Background())
	assert.Equal(t, 1, target.callCount())
}

func TestMissedRecovery(t *testing.T) {
	ms := newMockRefreshStore()
	target := &mockTarget{views: 1}
	r := newTestRefresher(ms, target)
	addJob(t, ms, "missed", "wf-1", true, ago(2*time.Hour))
	addJob(t, ms, "fresh", "wf-2", true, nil)

	require.NoError(t, r.RecoverMissed(context.Background()))

	assert.Equal(t, []string{"wf-1"}, target.calls, "jobs that never ran are left to the loop")
	got := ms.get("missed")
	assert.Equal(t, StatusSuccess, got.LastRunStatus)
	assert.True(t, got.NextRunAt.After(time.Now().UTC()))
}

func TestDedupPreventsDoubleRun(t *testing.T) {
	ms := newMockRefreshStore()
	target := &mockTarget{views: 1}
	r := newTestRefresher(ms, target)
	addJob(t, ms, "job", "wf-1", true, ago(time.Hour))

	require.True(t, r.tryAcquire("job"))
	r.tick(context.Background())
	assert.Equal(t, 0, target.callCount())

	r.releaseJob("job")
	r.tick(context.Background())
	assert.Equal(t, 1, target.callCount())
}

func TestMultipleJobsSomeDue(t *testing.T) {
	ms := newMockRefreshStore()
	target := &mockTarget{views: 1}
	r := newTestRefresher(ms, target)
	addJob(t, ms, "due", "wf-1", true, ago(time.Hour))
	addJob(t, ms, "later", "wf-2", true, ago(-time.Hour))

	r.tick(context.Background())
	assert.Equal(t, []string{"wf-1"}, target.calls)
}

func TestStartStop(t *testing.T) {
	ms := newMockRefreshStore()
	target := &mockTarget{views: 1}
	r := newTestRefresher(ms, target)
	addJob(t, ms, "job", "wf-1", true, nil)

	ctx := context.Background()
	require.NoError(t, r.Start(ctx))

	err := r.Start(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already started")

	assert.Eventually(t, func() bool { return target.callCount() >= 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, r.Stop())
	require.NoError(t, r.Stop())
	require.NoError(t, r.Start(ctx), "a stopped refresher can start again")
	require.NoError(t, r.Stop())
}
