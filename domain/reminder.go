package domain

import (
	"strings"
	"time"
)

// ReminderRecord marks a task as having an active reminder. Existence is the signal;
// the store expires it after the retention period.
type ReminderRecord struct {
	UserID    string     `json:"userId"`
	TaskID    string     `json:"taskId"`
	TaskTitle string     `json:"taskTitle,omitempty"`
	DueDate   *time.Time `json:"dueDate"`
	Priority  Priority   `json:"priority"`
	CreatedAt time.Time  `json:"createdAt"`
}

// ReminderFromTask snapshots the fields a reminder needs.
func ReminderFromTask(userID string, task Task) *ReminderRecord {
	rec := &ReminderRecord{
		UserID:    userID,
		TaskID:    task.ID,
		TaskTitle: task.Title,
		Priority:  task.Priority.OrDefault(),
	}
	if task.HasDueDate() {
		due := task.DueDate.UTC()
		rec.DueDate = &due
	}
	return rec
}

// Notification is projected from a reminder and its read marker at read time. It is never stored.
type Notification struct {
	ID           string     `json:"id"`
	TaskID       string     `json:"taskId"`
	TaskTitle    string     `json:"taskTitle"`
	Message      string     `json:"message"`
	Priority     Priority   `json:"priority"`
	DueDate      *time.Time `json:"dueDate"`
	DaysUntilDue *int       `json:"daysUntilDue"`
	CreatedAt    time.Time  `json:"createdAt"`
	Read         bool       `json:"read"`
}

// NotificationID builds the public identifier for a user's task notification.
func NotificationID(userID, taskID string) string {
	return userID + ":" + taskID
}

// ParseNotificationID extracts the task id from a notification id owned by userID.
// Ids that are malformed or embed another user are rejected with ErrInvalidReference.
func ParseNotificationID(userID, id string) (string, error) {
	if userID == "" {
		return "", ErrInvalidReference
	}
	taskID, ok := strings.CutPrefix(id, userID+":")
	if !ok || taskID == "" {
		return "", ErrInvalidReference
	}
	return taskID, nil
}
