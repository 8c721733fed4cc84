// Package scheduler owns the job store and decides when each job runs.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/kiranshivaraju/postpilot/internal/config"
	"github.com/kiranshivaraju/postpilot/internal/pipeline"
	"github.com/kiranshivaraju/postpilot/internal/rotation"
	"github.com/kiranshivaraju/postpilot/internal/store"
	"github.com/kiranshivaraju/postpilot/pkg/models"
	"golang.org/x/sync/errgroup"
)

var (
	ErrJobRunning  = errors.New("job is already running")
	ErrJobNotFound = store.ErrNotFound
	ErrInvalidJob  = errors.New("invalid job")
)

var errNotDue = errors.New("job is not due")

// ReasonInterrupted marks jobs that were running when the process died.
const ReasonInterrupted = "interrupted"

// Runner executes one content request. *pipeline.Orchestrator implements it.
type Runner interface {
	Run(ctx context.Context, req models.ContentRequest, jobID string) models.RunReport
}

// JobSpec describes a job to add or update.
type JobSpec struct {
	ID          string
	Topic       string
	Topics      []string
	Schedule    string
	ContentType models.ContentType
}

// Scheduler is the only writer of the job store. Every transition goes
// through mu, and per-job runs are serialized through running.
type Scheduler struct {
	store           store.JobStore
	runner          Runner
	policy          rotation.Policy
	tick            time.Duration
	maxConcurrent   int
	defaultSchedule string
	logger          *slog.Logger
	now             func() time.Time
	rnd             rotation.Rand

	mu      sync.Mutex
	running map[string]bool
	trigger chan struct{}
}

// Option customizes a Scheduler.
type Option func(*Scheduler)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithRand sets the random source used for topic rotation.
func WithRand(r rotation.Rand) Option {
	return func(s *Scheduler) { s.rnd = r }
}

// WithLogger sets the logger for job lifecycle events.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// New returns a Scheduler over st. The default schedule must parse.
func New(st store.JobStore, runner Runner, policy rotation.Policy, cfg config.SchedulerConfig, opts ...Option) (*Scheduler, error) {
	if _, err := ParseSchedule(cfg.DefaultSchedule); err != nil {
		return nil, fmt.Errorf("default schedule: %w", err)
	}
	s := &Scheduler{
		store:           st,
		runner:          runner,
		policy:          policy,
		tick:            cfg.Tick,
		maxConcurrent:   max(cfg.MaxConcurrent, 1),
		defaultSchedule: cfg.DefaultSchedule,
		logger:          slog.Default(),
		now:             time.Now,
		rnd:             rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
		running:         make(map[string]bool),
		trigger:         make(chan struct{}, 1),
	}
	if s.tick <= 0 {
		s.tick = time.Minute
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Recover resets jobs left running by a crashed process to failed.
func (s *Scheduler) Recover(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs, err := s.store.List(ctx)
	if err != nil {
		return fmt.Errorf("list jobs: %w", err)
	}
	now := s.now()
	for _, job := range jobs {
		if job.Status != models.JobStatusRunning || s.running[job.ID] {
			continue
		}
		job.Status = models.JobStatusFailed
		job.LastError = ReasonInterrupted
		job.UpdatedAt = now
		job.Record(models.HistoryEntry{At: now, Outcome: models.OutcomeFailed, Reason: ReasonInterrupted, Topic: job.Topic})
		if err := s.store.Upsert(ctx, job); err != nil {
			return fmt.Errorf("recover job %s: %w", job.ID, err)
		}
		s.logger.Warn("recovered interrupted job", "job_id", job.ID)
	}
	return nil
}

// Run processes due jobs on every tick or Trigger until ctx is cancelled.
// It returns once in-flight runs have finished and persisted their state.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.Recover(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	s.logger.Info("scheduler started", "tick", s.tick, "max_concurrent", s.maxConcurrent)
	s.RunDue(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return nil
		case <-ticker.C:
		case <-s.trigger:
		}
		s.RunDue(ctx)
	}
}

// Trigger asks the loop to run due jobs now. It never blocks.
func (s *Scheduler) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// RunDue runs every due job in NextRun order, at most maxConcurrent at a time,
// and returns how many runs were started.
func (s *Scheduler) RunDue(ctx context.Context) int {
	jobs, err := s.store.List(ctx)
	if err != nil {
		s.logger.Error("list jobs", "error", err)
		return 0
	}

	now := s.now()
	due := slices.DeleteFunc(jobs, func(j *models.Job) bool { return !j.Due(now) })
	slices.SortStableFunc(due, func(a, b *models.Job) int { return a.NextRun.Compare(b.NextRun) })

	var g errgroup.Group
	g.SetLimit(s.maxConcurrent)
	started := 0
	for _, job := range due {
		if ctx.Err() != nil {
			break
		}
		started++
		g.Go(func() error {
			_, err := s.execute(ctx, job.ID, true)
			switch {
			case err == nil, errors.Is(err, ErrJobRunning), errors.Is(err, errNotDue):
			case ctx.Err() != nil && errors.Is(err, ctx.Err()):
				s.logger.Info("job skipped on shutdown", "job_id", job.ID)
			default:
				s.logger.Error("run job", "job_id", job.ID, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return started
}

// RunNow runs a job immediately without shifting its NextRun.
func (s *Scheduler) RunNow(ctx context.Context, id string) (models.RunReport, error) {
	return s.execute(ctx, id, false)
}

func (s *Scheduler) execute(ctx context.Context, id string, scheduled bool) (models.RunReport, error) {
	job, decision, prev, err := s.claim(ctx, id, scheduled)
	if err != nil {
		return models.RunReport{}, err
	}

	logger := s.logger.With("job_id", id)
	logger.Info("job started", "topic", decision.Topic, "content_type", decision.ContentType, "rotated", decision.Rotated)

	report := s.runner.Run(ctx, s.policy.Request(decision), job.ID)

	if err := s.finish(context.WithoutCancel(ctx), id, prev, decision, report, scheduled); err != nil {
		return report, err
	}
	return report, nil
}

// claim marks the job running and persists that before the run starts.
func (s *Scheduler) claim(ctx context.Context, id string, scheduled bool) (*models.Job, rotation.Decision, models.JobStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// RunDue can hand out a slot after shutdown was requested.
	if err := ctx.Err(); err != nil {
		return nil, rotation.Decision{}, "", err
	}
	if s.running[id] {
		return nil, rotation.Decision{}, "", fmt.Errorf("%w: %s", ErrJobRunning, id)
	}
	job, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, rotation.Decision{}, "", fmt.Errorf("get job %s: %w", id, err)
	}
	if job.Status == models.JobStatusRunning {
		return nil, rotation.Decision{}, "", fmt.Errorf("%w: %s", ErrJobRunning, id)
	}
	now := s.now()
	if scheduled && !job.Due(now) {
		return nil, rotation.Decision{}, "", errNotDue
	}

	decision := rotation.Decide(now, *job, s.policy, s.rnd)
	prev := job.Status
	job.Status = models.JobStatusRunning
	job.UpdatedAt = now
	if err := s.store.Upsert(ctx, job); err != nil {
		return nil, rotation.Decision{}, "", fmt.Errorf("mark job %s running: %w", id, err)
	}
	s.running[id] = true
	return job, decision, prev, nil
}

// finish records the run outcome and, for scheduled runs, the next fire time.
// A run cut short by shutdown keeps its NextRun so it fires after restart.
func (s *Scheduler) finish(ctx context.Context, id string, prev models.JobStatus, decision rotation.Decision, report models.RunReport, scheduled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer delete(s.running, id)

	job, err := s.store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("reload job %s: %w", id, err)
	}

	now := s.now()
	outcome := report.Outcome()
	switch {
	case prev == models.JobStatusPaused:
		job.Status = models.JobStatusPaused
	case outcome == models.OutcomeFailed:
		job.Status = models.JobStatusFailed
	default:
		job.Status = models.JobStatusSucceeded
	}
	if outcome == models.OutcomeFailed {
		job.LastError = report.Reason()
	} else {
		job.LastError = ""
	}
	if decision.Topic != "" {
		job.Topic = decision.Topic
	}
	job.Record(models.HistoryEntry{
		RunID:    report.RunID,
		At:       now,
		Outcome:  outcome,
		Reason:   report.Reason(),
		Topic:    decision.Topic,
		Provider: report.Provider,
		PostID:   report.PostID,
	})
	if scheduled && report.FailureReason != pipeline.ReasonInterrupted {
		job.NextRun = advance(job.NextRun, s.schedule(job), now)
	}
	job.UpdatedAt = now

	if err := s.store.Upsert(ctx, job); err != nil {
		return fmt.Errorf("persist job %s: %w", id, err)
	}
	s.logger.Info("job finished",
		"job_id", id,
		"run_id", report.RunID,
		"outcome", outcome,
		"reason", report.Reason(),
		"next_run", job.NextRun,
	)
	return nil
}

func (s *Scheduler) schedule(job *models.Job) Schedule {
	sched, err := ParseSchedule(job.Schedule)
	if err != nil {
		s.logger.Error("invalid stored schedule; using default", "job_id", job.ID, "schedule", job.Schedule, "error", err)
		sched, _ = ParseSchedule(s.defaultSchedule)
	}
	return sched
}

// AddJob creates a job or updates the one with the same identity. An
// existing job keeps its history; NextRun is recomputed only when the
// schedule changes.
func (s *Scheduler) AddJob(ctx context.Context, spec JobSpec) (*models.Job, error) {
	spec.ID = strings.TrimSpace(spec.ID)
	spec.Topic = strings.TrimSpace(spec.Topic)
	if spec.ID == "" {
		return nil, fmt.Errorf("%w: id is required", ErrInvalidJob)
	}
	if spec.Schedule == "" {
		spec.Schedule = s.defaultSchedule
	}
	sched, err := ParseSchedule(spec.Schedule)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJob, err)
	}
	if spec.ContentType != "" {
		if _, err := models.ParseContentType(string(spec.ContentType)); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJob, err)
		}
	}
	if spec.Topic == "" && len(spec.Topics) > 0 {
		spec.Topic = spec.Topics[0]
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	job, err := s.store.Get(ctx, spec.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		if spec.Topic == "" {
			return nil, fmt.Errorf("%w: topic is required", ErrInvalidJob)
		}
		job = &models.Job{
			ID:        spec.ID,
			Status:    models.JobStatusIdle,
			NextRun:   sched.Next(now),
			CreatedAt: now,
		}
	case err != nil:
		return nil, fmt.Errorf("get job %s: %w", spec.ID, err)
	default:
		if job.Schedule != spec.Schedule {
			job.NextRun = sched.Next(now)
		}
	}

	if spec.Topic != "" {
		job.Topic = spec.Topic
	}
	if spec.Topics != nil {
		job.Topics = append([]string(nil), spec.Topics...)
	}
	job.Schedule = spec.Schedule
	job.ContentType = spec.ContentType
	job.UpdatedAt = now

	if err := s.store.Upsert(ctx, job); err != nil {
		return nil, fmt.Errorf("save job %s: %w", job.ID, err)
	}
	s.logger.Info("job saved", "job_id", job.ID, "schedule", job.Schedule, "next_run", job.NextRun)
	return job.Clone(), nil
}

// RemoveJob deletes a job. Removing a missing job is not an error.
func (s *Scheduler) RemoveJob(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running[id] {
		return fmt.Errorf("%w: %s", ErrJobRunning, id)
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("remove job %s: %w", id, err)
	}
	return nil
}

// PauseJob stops a job from firing until it is resumed.
func (s *Scheduler) PauseJob(ctx context.Context, id string) (*models.Job, error) {
	return s.update(ctx, id, func(job *models.Job, _ time.Time) error {
		if s.running[id] {
			return fmt.Errorf("%w: %s", ErrJobRunning, id)
		}
		job.Status = models.JobStatusPaused
		return nil
	})
}

// ResumeJob makes a paused job eligible again with NextRun strictly after now.
func (s *Scheduler) ResumeJob(ctx context.Context, id string) (*models.Job, error) {
	return s.update(ctx, id, func(job *models.Job, now time.Time) error {
		if job.Status != models.JobStatusPaused {
			return nil
		}
		job.Status = models.JobStatusIdle
		job.NextRun = advance(job.NextRun, s.schedule(job), now)
		return nil
	})
}

func (s *Scheduler) update(ctx context.Context, id string, mutate func(*models.Job, time.Time) error) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	now := s.now()
	if err := mutate(job, now); err != nil {
		return nil, err
	}
	job.UpdatedAt = now
	if err := s.store.Upsert(ctx, job); err != nil {
		return nil, fmt.Errorf("save job %s: %w", id, err)
	}
	return job.Clone(), nil
}

// ListJobs returns copies of all jobs ordered by NextRun.
func (s *Scheduler) ListJobs(ctx context.Context) ([]*models.Job, error) {
	jobs, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	slices.SortStableFunc(jobs, func(a, b *models.Job) int { return a.NextRun.Compare(b.NextRun) })
	out := make([]*models.Job, len(jobs))
	for i, j := range jobs {
		out[i] = j.Clone()
	}
	return out, nil
}

// Status returns a copy of one job.
func (s *Scheduler) Status(ctx context.Context, id string) (*models.Job, error) {
	job, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return job.Clone(), nil
}

// JobCounts returns the number of jobs per status.
func (s *Scheduler) JobCounts(ctx context.Context) (map[models.JobStatus]int64, error) {
	jobs, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	counts := make(map[models.JobStatus]int64)
	for _, j := range jobs {
		counts[j.Status]++
	}
	return counts, nil
}
