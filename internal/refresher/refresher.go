package refresher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/rendis/flowmon/internal/store"
	"github.com/rendis/flowmon/pkg/schema"
)

// Run statuses recorded on a refresh job.
const (
	StatusSuccess = "success"
	StatusIdle    = "idle"
	StatusError   = "error"
)

const defaultInterval = 30 * time.Second

// WorkflowRefresher rebuilds the open diagrams of a workflow. Satisfied by
// view.Manager.
type WorkflowRefresher interface {
	RefreshWorkflow(ctx context.Context, workflowID string) (int, error)
}

// Refresher polls the store for due refresh jobs and rebuilds the diagrams
// of their workflows so open views pick up new node states.
type Refresher struct {
	store    store.Store
	target   WorkflowRefresher
	parser   cron.Parser
	logger   *slog.Logger
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	inflightMu sync.Mutex
	inflight   map[string]struct{}
}

// Option configures a Refresher.
type Option func(*Refresher)

// WithInterval sets how often the store is polled for due jobs.
func WithInterval(d time.Duration) Option {
	return func(r *Refresher) {
		if d > 0 {
			r.interval = d
		}
	}
}

// New creates a Refresher. Cron expressions use the standard five fields
// plus descriptors such as @hourly.
func New(s store.Store, target WorkflowRefresher, logger *slog.Logger, opts ...Option) *Refresher {
	r := &Refresher{
		store:    s,
		target:   target,
		parser:   cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		logger:   logger,
		interval: defaultInterval,
		inflight: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Schedule validates cronExpr and stores an enabled refresh job for a
// workflow, due at the next matching time.
func (r *Refresher) Schedule(ctx context.Context, workflowID, cronExpr string) (*store.RefreshJob, error) {
	if workflowID == "" {
		return nil, schema.NewError(schema.ErrCodeValidation, "workflow id is required")
	}
	now := time.Now().UTC()
	next, err := r.CalculateNextRun(cronExpr, now)
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeValidation, err.Error()).WithCause(err)
	}
	if _, err := r.store.GetWorkflow(ctx, workflowID); err != nil {
		return nil, err
	}
	job := &store.RefreshJob{
		WorkflowID:     workflowID,
		CronExpression: cronExpr,
		Enabled:        true,
		NextRunAt:      &next,
		CreatedAt:      now,
	}
	if err := r.store.CreateRefreshJob(ctx, job); err != nil {
		return nil, err
	}
	r.logger.Info("refresh scheduled",
		slog.String("job_id", job.ID),
		slog.String("workflow_id", workflowID),
		slog.String("cron", cronExpr),
		slog.Time("next_run_at", next),
	)
	return job, nil
}

// Start launches the polling loop.
func (r *Refresher) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.done != nil {
		r.mu.Unlock()
		return fmt.Errorf("refresher already started")
	}
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	done := r.done
	r.mu.Unlock()

	go r.loop(runCtx, done)
	r.logger.Info("refresher started", slog.Duration("interval", r.interval))
	return nil
}

func (r *Refresher) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

// tick runs every enabled job whose next run is due.
func (r *Refresher) tick(ctx context.Context) {
	enabled := true
	jobs, err := r.store.ListRefreshJobs(ctx, store.RefreshJobFilter{Enabled: &enabled})
	if err != nil {
		r.logger.Error("failed to list refresh jobs", slog.String("error", err.Error()))
		return
	}

	now := time.Now().UTC()
	for _, job := range jobs {
		if job.NextRunAt != nil && job.NextRunAt.After(now) {
			continue
		}
		if !r.tryAcquire(job.ID) {
			continue
		}
		if err := r.runJob(ctx, job, now); err != nil {
			r.logger.Error("failed to run refresh job",
				slog.String("job_id", job.ID),
				slog.String("error", err.Error()),
			)
		}
		r.releaseJob(job.ID)
	}
}

// runJob refreshes the job's workflow and records the outcome.
func (r *Refresher) runJob(ctx context.Context, job *store.RefreshJob, now time.Time) error {
	views, err := r.target.RefreshWorkflow(ctx, job.WorkflowID)
	status := StatusSuccess
	switch {
	case err != nil:
		status = StatusError
		r.logger.Error("workflow refresh failed",
			slog.String("job_id", job.ID),
			slog.String("workflow_id", job.WorkflowID),
			slog.String("error", err.Error()),
		)
	case views == 0:
		status = StatusIdle
	default:
		r.logger.Debug("workflow refreshed",
			slog.String("job_id", job.ID),
			slog.String("workflow_id", job.WorkflowID),
			slog.Int("views", views),
		)
	}
	return r.updateJobStatus(ctx, job, now, status)
}

func (r *Refresher) updateJobStatus(ctx context.Context, job *store.RefreshJob, now time.Time, status string) error {
	next, err := r.CalculateNextRun(job.CronExpression, now)
	if err != nil {
		disabled := false
		_ = r.store.UpdateRefreshJob(ctx, job.ID, store.RefreshJobUpdate{
			Enabled:       &disabled,
			LastRunAt:     &now,
			LastRunStatus: StatusError,
		})
		return fmt.Errorf("calculate next run for job %q: %w", job.ID, err)
	}
	return r.store.UpdateRefreshJob(ctx, job.ID, store.RefreshJobUpdate{
		LastRunAt:     &now,
		NextRunAt:     &next,
		LastRunStatus: status,
	})
}

func (r *Refresher) tryAcquire(jobID string) bool {
	r.inflightMu.Lock()
	defer r.inflightMu.Unlock()
	if _, ok := r.inflight[jobID]; ok {
		return false
	}
	r.inflight[jobID] = struct{}{}
	return true
}

func (r *Refresher) releaseJob(jobID string) {
	r.inflightMu.Lock()
	defer r.inflightMu.Unlock()
	delete(r.inflight, jobID)
}

// CalculateNextRun computes the next run time for a cron expression.
func (r *Refresher) CalculateNextRun(cronExpr string, from time.Time) (time.Time, error) {
	schedule, err := r.parser.Parse(cronExpr)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse cron expression %q: %w", cronExpr, err)
	}
	return schedule.Next(from), nil
}

// Stop shuts the loop down and waits for the current tick to finish.
func (r *Refresher) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel == nil {
		return nil
	}
	r.cancel()
	<-r.done
	r.cancel = nil
	r.done = nil

	r.logger.Info("refresher stopped")
	return nil
}

// RecoverMissed runs once every job whose next run passed while the
// process was down. Missed runs are not replayed individually.
func (r *Refresher) RecoverMissed(ctx context.Context) error {
	enabled := true
	jobs, err := r.store.ListRefreshJobs(ctx, store.RefreshJobFilter{Enabled: &enabled})
	if err != nil {
		return fmt.Errorf("list missed refresh jobs: %w", err)
	}

	now := time.Now().UTC()
	recovered := 0
	for _, job := range jobs {
		if job.NextRunAt == nil || !job.NextRunAt.Before(now) {
			continue
		}
		if !r.tryAcquire(job.ID) {
			continue
		}
		err := r.runJob(ctx, job, now)
		r.releaseJob(job.ID)
		if err != nil {
			r.logger.Error("failed to recover missed refresh job",
				slog.String("job_id", job.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		recovered++
	}

	if recovered > 0 {
		r.logger.Info("recovered missed refresh jobs", slog.Int("count", recovered))
	}
	return nil
}
