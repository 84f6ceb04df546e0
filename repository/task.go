package repository

import (
	"context"
	"time"

	"github.com/fastygo/reminders/domain"
)

type TaskFilter struct {
	UserID string
	Status string
	Limit  int
	Offset int
}

// TaskRepository is the task store the reminder core consumes. Implementations own
// persistence and validation of tasks.
type TaskRepository interface {
	GetByID(ctx context.Context, userID, id string) (*domain.Task, error)
	List(ctx context.Context, filter TaskFilter) ([]domain.Task, error)
	// ListDueWithin returns open tasks of userID whose due date falls on a UTC day
	// between today and today+windowDays inclusive.
	ListDueWithin(ctx context.Context, userID string, now time.Time, windowDays int) ([]domain.Task, error)
	Create(ctx context.Context, task *domain.Task) (*domain.Task, error)
	Update(ctx context.Context, task *domain.Task) error
	Delete(ctx context.Context, userID, id string) error
	Ping(ctx context.Context) error
}

// DueRange converts a day window into the half-open instant range [from, to) covering
// the UTC days today..today+windowDays.
func DueRange(now time.Time, windowDays int) (time.Time, time.Time) {
	from := domain.UTCDay(now)
	return from, from.AddDate(0, 0, windowDays+1)
}
