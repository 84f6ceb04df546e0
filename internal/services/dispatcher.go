package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fastygo/reminders/domain"
	"github.com/fastygo/reminders/internal/observability"
	"github.com/fastygo/reminders/repository"
)

// ConnectionHealth abstracts the connection monitor functionality.
type ConnectionHealth interface {
	IsOnline() bool
}

// JobRunner performs the scheduling side effect of a reminder job.
type JobRunner interface {
	ScheduleIfDue(ctx context.Context, userID string, task domain.Task, now time.Time) (bool, error)
}

// TaskLoader reads the current state of a task when its job is processed.
type TaskLoader interface {
	GetByID(ctx context.Context, userID, id string) (*domain.Task, error)
}

// DispatcherConfig controls how reminder jobs are drained.
type DispatcherConfig struct {
	Interval    time.Duration
	BatchSize   int
	Workers     int
	MaxAttempts int
	Retention   time.Duration
}

func (c DispatcherConfig) withDefaults() DispatcherConfig {
	if c.Interval <= 0 {
		c.Interval = 30 * time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 1
	}
	if c.Retention <= 0 {
		c.Retention = 24 * time.Hour
	}
	return c
}

// Dispatcher runs reminder scheduling off the request path. Jobs are persisted so a restart
// loses nothing; a job left active by a crashed process is queued again on Start.
type Dispatcher struct {
	jobs    repository.JobRepository
	runner  JobRunner
	tasks   TaskLoader
	monitor ConnectionHealth
	logger  *zap.Logger
	metrics *observability.Metrics
	cron    *cron.Cron
	cfg     DispatcherConfig
	now     func() time.Time

	wake   chan struct{}
	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

func NewDispatcher(
	jobs repository.JobRepository,
	runner JobRunner,
	tasks TaskLoader,
	monitor ConnectionHealth,
	logger *zap.Logger,
	metrics *observability.Metrics,
	cfg DispatcherConfig,
) *Dispatcher {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	d := &Dispatcher{
		jobs:    jobs,
		runner:  runner,
		tasks:   tasks,
		monitor: monitor,
		logger:  logger,
		metrics: metrics,
		cfg:     cfg,
		now:     time.Now,
		cron:    cron.New(cron.WithSeconds()),
		wake:    make(chan struct{}, 1),
		stopCh:  make(chan struct{}),
	}

	_, _ = d.cron.AddFunc(fmt.Sprintf("@every %s", cfg.Interval), func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Interval)
		defer cancel()
		if _, err := d.Drain(ctx); err != nil {
			d.logger.Error("reminder job drain failed", zap.Error(err))
		}
	})
	_, _ = d.cron.AddFunc("@daily", func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := d.Purge(ctx); err != nil {
			d.logger.Error("reminder job purge failed", zap.Error(err))
		}
	})

	return d
}

// Start re-queues interrupted jobs and launches the cron schedule and the wake-up loop.
func (d *Dispatcher) Start(ctx context.Context) error {
	if d == nil || d.jobs == nil {
		return domain.ErrNotInitialized
	}
	n, err := d.jobs.Requeue(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		d.logger.Warn("re-queued interrupted reminder jobs", zap.Int("count", n))
	}

	d.cron.Start()
	d.wg.Add(1)
	go d.loop()
	d.signal()
	d.logger.Info("reminder dispatcher started",
		zap.Duration("interval", d.cfg.Interval),
		zap.Int("workers", d.cfg.Workers),
	)
	return nil
}

// Stop gracefully stops the scheduler and waits for an in-flight drain.
func (d *Dispatcher) Stop(ctx context.Context) error {
	if d == nil || d.cron == nil {
		return nil
	}
	d.once.Do(func() { close(d.stopCh) })
	stopCtx := d.cron.Stop()

	done := make(chan struct{})
	go func() {
		<-stopCtx.Done()
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("reminder dispatcher stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Enqueue records a job for the task. It returns false when a job for the same
// (user, task) is already queued or running.
func (d *Dispatcher) Enqueue(ctx context.Context, userID string, task domain.Task) (bool, error) {
	if d == nil || d.jobs == nil {
		return false, domain.ErrNotInitialized
	}
	if userID == "" || task.ID == "" {
		return false, domain.ErrInvalidPayload
	}

	job := &domain.ReminderJob{
		Key:         domain.JobKey(userID, task.ID),
		ID:          uuid.NewString(),
		UserID:      userID,
		Task:        task,
		MaxAttempts: d.cfg.MaxAttempts,
	}
	enqueued, err := d.jobs.Enqueue(ctx, job)
	if err != nil {
		return false, err
	}
	if !enqueued {
		d.metrics.JobEvent("deduplicated")
		d.logger.Debug("reminder job already pending", zap.String("key", job.Key))
		return false, nil
	}
	d.metrics.JobEvent("enqueued")
	d.signal()
	return true, nil
}

// Cancel drops a queued or active job for the task. A job already claimed by a worker is
// still stopped by the task reload in process.
func (d *Dispatcher) Cancel(ctx context.Context, userID, taskID string) (bool, error) {
	if d == nil || d.jobs == nil {
		return false, domain.ErrNotInitialized
	}
	dropped, err := d.jobs.DeletePending(ctx, domain.JobKey(userID, taskID))
	if err != nil {
		return false, err
	}
	if dropped {
		d.metrics.JobEvent("cancelled")
	}
	return dropped, nil
}

// Drain claims one batch of queued jobs and processes it with a bounded worker pool.
func (d *Dispatcher) Drain(ctx context.Context) (int, error) {
	if d == nil || d.jobs == nil || d.runner == nil {
		return 0, domain.ErrNotInitialized
	}
	if d.monitor != nil && !d.monitor.IsOnline() {
		d.logger.Debug("skipping reminder job drain (offline)")
		return 0, nil
	}

	claimed, err := d.jobs.Claim(ctx, d.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	var g errgroup.Group
	g.SetLimit(d.cfg.Workers)
	for i := range claimed {
		job := claimed[i]
		g.Go(func() error {
			d.process(ctx, &job)
			return nil
		})
	}
	_ = g.Wait()
	return len(claimed), nil
}

// Purge deletes completed jobs older than the retention period. Failed jobs stay.
func (d *Dispatcher) Purge(ctx context.Context) (int, error) {
	if d == nil || d.jobs == nil {
		return 0, domain.ErrNotInitialized
	}
	removed, err := d.jobs.PurgeCompleted(ctx, d.now().Add(-d.cfg.Retention))
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		d.logger.Info("purged completed reminder jobs", zap.Int("count", removed))
	}
	return removed, nil
}

// ListJobs returns the user's stored jobs, optionally filtered by status.
func (d *Dispatcher) ListJobs(ctx context.Context, userID string, status domain.JobStatus) ([]domain.ReminderJob, error) {
	if d == nil || d.jobs == nil {
		return nil, domain.ErrNotInitialized
	}
	if userID == "" {
		return nil, domain.ErrUnauthorized
	}
	if status != "" && !status.IsValid() {
		return nil, domain.NewError(domain.ErrCodeInvalid, "unknown job status "+string(status))
	}
	return d.jobs.List(ctx, repository.JobFilter{UserID: userID, Status: status})
}

// Size returns the number of stored jobs.
func (d *Dispatcher) Size(ctx context.Context) (int, error) {
	if d == nil || d.jobs == nil {
		return 0, domain.ErrNotInitialized
	}
	return d.jobs.Size(ctx)
}

func (d *Dispatcher) process(ctx context.Context, job *domain.ReminderJob) {
	done := d.metrics.JobStarted()
	defer func() {
		done(string(job.Status))
		if err := d.jobs.Save(context.WithoutCancel(ctx), job); err != nil {
			d.logger.Error("failed to persist reminder job state", zap.String("key", job.Key), zap.Error(err))
		}
	}()

	task, live, err := d.reload(ctx, job)
	if err != nil {
		// The task store is unreachable; put the job back without spending an attempt.
		job.Status = domain.JobQueued
		job.Attempts--
		job.LastError = err.Error()
		d.metrics.JobEvent("deferred")
		d.logger.Warn("reminder job deferred, task store unavailable",
			zap.String("key", job.Key),
			zap.Error(err))
		return
	}
	if !live {
		job.Status = domain.JobCompleted
		job.LastError = ""
		d.metrics.JobEvent("skipped")
		d.logger.Debug("reminder job skipped, task completed or deleted", zap.String("key", job.Key))
		return
	}

	_, err = d.runner.ScheduleIfDue(ctx, job.UserID, task, d.now())
	switch {
	case err == nil:
		job.Status = domain.JobCompleted
		job.LastError = ""
		d.metrics.JobEvent("completed")
	case job.CanRetry():
		job.Status = domain.JobQueued
		job.LastError = err.Error()
		d.metrics.JobEvent("retried")
		d.logger.Warn("reminder job failed, will retry",
			zap.String("key", job.Key),
			zap.Int("attempts", job.Attempts),
			zap.Error(err))
	default:
		job.Status = domain.JobFailed
		job.LastError = err.Error()
		d.metrics.JobEvent("failed")
		d.logger.Error("reminder job failed",
			zap.String("key", job.Key),
			zap.String("job_id", job.ID),
			zap.Int("attempts", job.Attempts),
			zap.Error(err))
	}
}

// reload returns the task as it is now. live is false once the task is completed or gone.
func (d *Dispatcher) reload(ctx context.Context, job *domain.ReminderJob) (task domain.Task, live bool, err error) {
	if d.tasks == nil {
		return job.Task, true, nil
	}
	current, err := d.tasks.GetByID(ctx, job.UserID, job.Task.ID)
	if err != nil {
		if domain.IsDomainError(err, domain.ErrCodeNotFound) {
			return domain.Task{}, false, nil
		}
		return domain.Task{}, false, err
	}
	job.Task = *current
	return *current, !current.IsCompleted(), nil
}

func (d *Dispatcher) signal() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *Dispatcher) loop() {
	defer d.wg.Done()
	for {
		select {
		case <-d.stopCh:
			return
		case <-d.wake:
			ctx, cancel := context.WithTimeout(context.Background(), d.cfg.Interval)
			if _, err := d.Drain(ctx); err != nil {
				d.logger.Error("reminder job drain failed", zap.Error(err))
			}
			cancel()
		}
	}
}
