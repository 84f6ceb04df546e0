package task

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fastygo/reminders/domain"
	"github.com/fastygo/reminders/repository"
	"github.com/fastygo/reminders/usecase"
)

const refreshConcurrency = 4

type UseCase struct {
	tasks      repository.TaskRepository
	trigger    usecase.ReminderTrigger
	canceller  usecase.ReminderCanceller
	windowDays int
	logger     *zap.Logger
}

func New(tasks repository.TaskRepository, trigger usecase.ReminderTrigger, canceller usecase.ReminderCanceller, windowDays int, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		tasks:      tasks,
		trigger:    trigger,
		canceller:  canceller,
		windowDays: windowDays,
		logger:     logger,
	}
}

// ListTasks returns the user's tasks and refreshes reminders for those due inside the window.
// Reminder failures are logged and never fail the listing.
func (uc *UseCase) ListTasks(ctx context.Context, filter repository.TaskFilter, now time.Time) ([]domain.Task, error) {
	tasks, err := uc.tasks.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if filter.UserID != "" {
		uc.refreshReminders(ctx, filter.UserID, now)
	}
	return tasks, nil
}

func (uc *UseCase) GetTask(ctx context.Context, userID, id string) (*domain.Task, error) {
	return uc.tasks.GetByID(ctx, userID, id)
}

func (uc *UseCase) CreateTask(ctx context.Context, task *domain.Task, now time.Time) (*domain.Task, error) {
	if task == nil || task.UserID == "" {
		return nil, domain.ErrInvalidPayload
	}
	if task.Status == "" {
		task.Status = domain.TaskStatusPending
	}
	created, err := uc.tasks.Create(ctx, task)
	if err != nil {
		return nil, err
	}
	uc.schedule(ctx, created.UserID, *created, now)
	return created, nil
}

// UpdateTask stores the change and then either cancels the reminder of a completed task or
// reschedules an open one.
func (uc *UseCase) UpdateTask(ctx context.Context, task *domain.Task, now time.Time) (*domain.Task, error) {
	if task == nil || task.UserID == "" || task.ID == "" {
		return nil, domain.ErrInvalidPayload
	}
	if err := uc.tasks.Update(ctx, task); err != nil {
		return nil, err
	}
	if task.IsCompleted() {
		uc.cancel(ctx, task.UserID, task.ID)
	} else {
		uc.schedule(ctx, task.UserID, *task, now)
	}
	return task, nil
}

func (uc *UseCase) CompleteTask(ctx context.Context, userID, id string) (*domain.Task, error) {
	task, err := uc.tasks.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !task.IsCompleted() {
		task.Status = domain.TaskStatusCompleted
		if err := uc.tasks.Update(ctx, task); err != nil {
			return nil, err
		}
	}
	uc.cancel(ctx, userID, id)
	return task, nil
}

func (uc *UseCase) DeleteTask(ctx context.Context, userID, id string) error {
	if err := uc.tasks.Delete(ctx, userID, id); err != nil {
		return err
	}
	uc.cancel(ctx, userID, id)
	return nil
}

func (uc *UseCase) refreshReminders(ctx context.Context, userID string, now time.Time) {
	if uc.trigger == nil {
		return
	}
	due, err := uc.tasks.ListDueWithin(ctx, userID, now, uc.windowDays)
	if err != nil {
		uc.logger.Warn("reminder refresh skipped", zap.String("user_id", userID), zap.Error(err))
		return
	}

	var g errgroup.Group
	g.SetLimit(refreshConcurrency)
	for _, task := range due {
		g.Go(func() error {
			uc.schedule(ctx, userID, task, now)
			return nil
		})
	}
	_ = g.Wait()
}

func (uc *UseCase) schedule(ctx context.Context, userID string, task domain.Task, now time.Time) {
	if uc.trigger == nil {
		return
	}
	if err := uc.trigger.Trigger(ctx, userID, task, now); err != nil {
		uc.logger.Error("failed to schedule reminder",
			zap.String("user_id", userID),
			zap.String("task_id", task.ID),
			zap.Error(err),
		)
	}
}

func (uc *UseCase) cancel(ctx context.Context, userID, taskID string) {
	if uc.canceller == nil {
		return
	}
	if _, err := uc.canceller.Cancel(ctx, userID, taskID); err != nil {
		uc.logger.Error("failed to remove reminder",
			zap.String("user_id", userID),
			zap.String("task_id", taskID),
			zap.Error(err),
		)
	}
}
