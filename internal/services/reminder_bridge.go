package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/reminders/domain"
	"github.com/fastygo/reminders/usecase"
)

// ReminderBridge hands scheduling to the dispatcher. When the job store refuses the job it
// falls back to scheduling inline, so a reminder is never silently lost. Cancelling drops the
// pending job and the stored reminder.
type ReminderBridge struct {
	dispatcher *Dispatcher
	fallback   usecase.ReminderScheduler
	logger     *zap.Logger
}

func NewReminderBridge(dispatcher *Dispatcher, fallback usecase.ReminderScheduler, logger *zap.Logger) *ReminderBridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReminderBridge{dispatcher: dispatcher, fallback: fallback, logger: logger}
}

func (b *ReminderBridge) Trigger(ctx context.Context, userID string, task domain.Task, now time.Time) error {
	if b.dispatcher == nil {
		return domain.ErrNotInitialized
	}
	// Tasks without a due date or already done never produce a reminder; skip the job.
	if !task.HasDueDate() || task.IsCompleted() {
		return nil
	}
	_, err := b.dispatcher.Enqueue(ctx, userID, task)
	if err == nil {
		return nil
	}
	if b.fallback == nil || domain.IsDomainError(err, domain.ErrCodeInvalid) {
		return err
	}
	b.logger.Warn("reminder job enqueue failed, scheduling inline",
		zap.String("user_id", userID),
		zap.String("task_id", task.ID),
		zap.Error(err))
	return b.fallback.Trigger(ctx, userID, task, now)
}

func (b *ReminderBridge) Cancel(ctx context.Context, userID, taskID string) (bool, error) {
	if b.dispatcher == nil {
		return false, domain.ErrNotInitialized
	}
	dropped, jobErr := b.dispatcher.Cancel(ctx, userID, taskID)
	if jobErr != nil {
		b.logger.Warn("failed to drop pending reminder job",
			zap.String("user_id", userID),
			zap.String("task_id", taskID),
			zap.Error(jobErr))
	}
	if b.fallback == nil {
		return dropped, jobErr
	}
	removed, err := b.fallback.Cancel(ctx, userID, taskID)
	return dropped || removed, errors.Join(jobErr, err)
}

var _ usecase.ReminderScheduler = (*ReminderBridge)(nil)
