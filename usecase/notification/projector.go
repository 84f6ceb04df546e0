package notification

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/reminders/domain"
	"github.com/fastygo/reminders/internal/observability"
	"github.com/fastygo/reminders/repository"
)

// MarkResult reports how many ids of a mark-as-read request were applied.
type MarkResult struct {
	Marked  int `json:"marked"`
	Skipped int `json:"skipped"`
}

// Projector builds the notification feed from live reminders and read markers.
type Projector struct {
	reminders repository.ReminderRepository
	readState repository.ReadStateRepository
	logger    *zap.Logger
	metrics   *observability.Metrics
}

func NewProjector(reminders repository.ReminderRepository, readState repository.ReadStateRepository, logger *zap.Logger, metrics *observability.Metrics) *Projector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Projector{
		reminders: reminders,
		readState: readState,
		logger:    logger,
		metrics:   metrics,
	}
}

// ListNotifications returns the user's notifications oldest first. Only live reminders
// produce entries; a read marker without a reminder is ignored.
func (p *Projector) ListNotifications(ctx context.Context, userID string, now time.Time) ([]domain.Notification, error) {
	if err := p.ready(); err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, domain.ErrUnauthorized
	}

	records, err := p.reminders.ListActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return []domain.Notification{}, nil
	}

	taskIDs := make([]string, 0, len(records))
	for _, rec := range records {
		taskIDs = append(taskIDs, rec.TaskID)
	}
	read, err := p.readState.ReadSet(ctx, userID, taskIDs)
	if err != nil {
		return nil, err
	}

	notifications := make([]domain.Notification, 0, len(records))
	for _, rec := range records {
		urgency := domain.Classify(rec.DueDate, now)
		notifications = append(notifications, domain.Notification{
			ID:           domain.NotificationID(userID, rec.TaskID),
			TaskID:       rec.TaskID,
			TaskTitle:    rec.TaskTitle,
			Message:      urgency.Message(),
			Priority:     rec.Priority.OrDefault(),
			DueDate:      rec.DueDate,
			DaysUntilDue: urgency.DaysUntilDue,
			CreatedAt:    rec.CreatedAt,
			Read:         read[rec.TaskID],
		})
	}

	sort.Slice(notifications, func(i, j int) bool {
		a, b := notifications[i], notifications[j]
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.TaskID < b.TaskID
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})

	p.metrics.NotificationsListed(len(notifications))
	return notifications, nil
}

// UnreadCount counts the notifications not yet marked read.
func UnreadCount(notifications []domain.Notification) int {
	n := 0
	for _, item := range notifications {
		if !item.Read {
			n++
		}
	}
	return n
}

// MarkAsRead marks the caller's notifications as read. Ids that do not parse or that name
// another user are skipped and never touch the read state.
func (p *Projector) MarkAsRead(ctx context.Context, userID string, notificationIDs []string) (MarkResult, error) {
	if err := p.ready(); err != nil {
		return MarkResult{}, err
	}
	if userID == "" {
		return MarkResult{}, domain.ErrUnauthorized
	}

	var result MarkResult
	seen := make(map[string]struct{}, len(notificationIDs))
	taskIDs := make([]string, 0, len(notificationIDs))
	for _, id := range notificationIDs {
		taskID, err := domain.ParseNotificationID(userID, id)
		if err != nil {
			result.Skipped++
			p.logger.Warn("notification id rejected",
				zap.String("user_id", userID),
				zap.String("notification_id", id),
				zap.Error(err),
			)
			continue
		}
		if _, dup := seen[taskID]; dup {
			continue
		}
		seen[taskID] = struct{}{}
		taskIDs = append(taskIDs, taskID)
	}

	if len(taskIDs) > 0 {
		if err := p.readState.MarkReadBatch(ctx, userID, taskIDs); err != nil {
			return MarkResult{}, err
		}
	}
	result.Marked = len(taskIDs)
	p.metrics.NotificationsMarked(result.Marked, result.Skipped)
	return result, nil
}

func (p *Projector) ready() error {
	if p == nil || p.reminders == nil || p.readState == nil {
		return domain.ErrNotInitialized
	}
	return nil
}
