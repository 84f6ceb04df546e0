package usecase

import (
	"context"
	"time"

	"github.com/fastygo/reminders/domain"
)

// ReminderTrigger requests reminder scheduling for a task. The inline implementation writes the
// reminder before returning; the async one records a job and returns.
type ReminderTrigger interface {
	Trigger(ctx context.Context, userID string, task domain.Task, now time.Time) error
}

// ReminderCanceller drops the reminder of a task that was completed or deleted.
type ReminderCanceller interface {
	Cancel(ctx context.Context, userID, taskID string) (bool, error)
}

// ReminderScheduler both schedules and cancels; the task use case needs the pair.
type ReminderScheduler interface {
	ReminderTrigger
	ReminderCanceller
}
