package reminder

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/reminders/domain"
	"github.com/fastygo/reminders/internal/observability"
	"github.com/fastygo/reminders/repository"
	"github.com/fastygo/reminders/usecase"
)

// DefaultWindowDays is how many days ahead of its due date a task gets a reminder.
const DefaultWindowDays = 2

const (
	outcomeScheduled     = "scheduled"
	outcomeOutsideWindow = "outside_window"
	outcomeNoDueDate     = "no_due_date"
	outcomeCompleted     = "completed"
	outcomeError         = "error"
)

// Scheduler decides whether a task deserves a reminder and writes it to the reminder store.
// It never removes reminders when a due date leaves the window; only Cancel does.
type Scheduler struct {
	reminders  repository.ReminderRepository
	windowDays int
	logger     *zap.Logger
	metrics    *observability.Metrics
}

var (
	_ usecase.ReminderTrigger   = (*Scheduler)(nil)
	_ usecase.ReminderCanceller = (*Scheduler)(nil)
)

func NewScheduler(reminders repository.ReminderRepository, windowDays int, logger *zap.Logger, metrics *observability.Metrics) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if windowDays < 0 {
		windowDays = DefaultWindowDays
	}
	return &Scheduler{
		reminders:  reminders,
		windowDays: windowDays,
		logger:     logger,
		metrics:    metrics,
	}
}

// WindowDays returns the configured reminder window.
func (s *Scheduler) WindowDays() int {
	return s.windowDays
}

// ScheduleIfDue writes a reminder when the task is open and due within the window, and reports
// whether it did. Calling it again for the same task only refreshes the reminder's expiry.
func (s *Scheduler) ScheduleIfDue(ctx context.Context, userID string, task domain.Task, now time.Time) (bool, error) {
	if s == nil || s.reminders == nil {
		return false, domain.ErrNotInitialized
	}
	if userID == "" || task.ID == "" {
		return false, domain.ErrInvalidPayload
	}

	switch {
	case task.IsCompleted():
		s.metrics.ScheduleDecision(outcomeCompleted)
		return false, nil
	case !task.HasDueDate():
		s.metrics.ScheduleDecision(outcomeNoDueDate)
		return false, nil
	}

	days := domain.DaysBetween(*task.DueDate, now)
	if days < 0 || days > s.windowDays {
		s.metrics.ScheduleDecision(outcomeOutsideWindow)
		return false, nil
	}

	if err := s.reminders.Put(ctx, domain.ReminderFromTask(userID, task)); err != nil {
		s.metrics.ScheduleDecision(outcomeError)
		return false, err
	}
	s.metrics.ScheduleDecision(outcomeScheduled)
	s.logger.Debug("reminder scheduled",
		zap.String("user_id", userID),
		zap.String("task_id", task.ID),
		zap.Int("days_until_due", days),
	)
	return true, nil
}

// Trigger runs ScheduleIfDue synchronously.
func (s *Scheduler) Trigger(ctx context.Context, userID string, task domain.Task, now time.Time) error {
	_, err := s.ScheduleIfDue(ctx, userID, task, now)
	return err
}

// Cancel removes the reminder for a completed or deleted task.
func (s *Scheduler) Cancel(ctx context.Context, userID, taskID string) (bool, error) {
	if s == nil || s.reminders == nil {
		return false, domain.ErrNotInitialized
	}
	removed, err := s.reminders.Remove(ctx, userID, taskID)
	if err != nil {
		return false, err
	}
	if removed {
		s.metrics.ReminderRemoved()
		s.logger.Debug("reminder removed", zap.String("user_id", userID), zap.String("task_id", taskID))
	}
	return removed, nil
}
