package repository

import (
	"context"

	"github.com/fastygo/reminders/domain"
)

// ReminderRepository stores one reminder per (user, task) with automatic expiry.
type ReminderRepository interface {
	// Put upserts the record and resets its TTL. CreatedAt of an existing record is kept.
	Put(ctx context.Context, record *domain.ReminderRecord) error
	Get(ctx context.Context, userID, taskID string) (*domain.ReminderRecord, error)
	// ListActive returns every live reminder of the user in no particular order.
	// Records that fail to decode are skipped.
	ListActive(ctx context.Context, userID string) ([]domain.ReminderRecord, error)
	Remove(ctx context.Context, userID, taskID string) (bool, error)
}

// ReadStateRepository tracks read markers independently of reminders.
type ReadStateRepository interface {
	MarkRead(ctx context.Context, userID, taskID string) error
	MarkReadBatch(ctx context.Context, userID string, taskIDs []string) error
	IsRead(ctx context.Context, userID, taskID string) (bool, error)
	// ReadSet reports the read state for each task id in one round trip.
	ReadSet(ctx context.Context, userID string, taskIDs []string) (map[string]bool, error)
}
