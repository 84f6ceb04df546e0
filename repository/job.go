package repository

import (
	"context"
	"time"

	"github.com/fastygo/reminders/domain"
)

// JobFilter narrows List. Empty fields match every job.
type JobFilter struct {
	UserID string
	Status domain.JobStatus
}

// JobRepository persists reminder jobs keyed by their dedup key.
type JobRepository interface {
	// Enqueue stores job as queued unless a queued or active job already holds the key,
	// in which case it returns false and leaves the store untouched.
	Enqueue(ctx context.Context, job *domain.ReminderJob) (bool, error)
	// Claim moves up to limit queued jobs, oldest first, to active and returns them.
	Claim(ctx context.Context, limit int) ([]domain.ReminderJob, error)
	Save(ctx context.Context, job *domain.ReminderJob) error
	Get(ctx context.Context, key string) (*domain.ReminderJob, error)
	List(ctx context.Context, filter JobFilter) ([]domain.ReminderJob, error)
	// DeletePending removes the job under key if it is queued or active. Terminal jobs are kept.
	DeletePending(ctx context.Context, key string) (bool, error)
	// Requeue returns active jobs to queued, used after an unclean shutdown.
	Requeue(ctx context.Context) (int, error)
	PurgeCompleted(ctx context.Context, olderThan time.Time) (int, error)
	Size(ctx context.Context) (int, error)
}
