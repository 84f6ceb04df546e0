package domain

import (
	"strings"
	"time"
)

// Priority ranks how pressing a task is.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ParsePriority normalizes user input, defaulting to medium for empty or unknown values.
func ParsePriority(value string) Priority {
	switch p := Priority(strings.ToLower(strings.TrimSpace(value))); p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p
	default:
		return PriorityMedium
	}
}

// OrDefault returns medium when the priority is unset or unrecognized.
func (p Priority) OrDefault() Priority {
	return ParsePriority(string(p))
}

const (
	TaskStatusPending   = "pending"
	TaskStatusCompleted = "completed"
)

// Task represents a user-owned activity item.
type Task struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status"`
	Priority    Priority   `json:"priority"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (t *Task) IsCompleted() bool {
	return t != nil && t.Status == TaskStatusCompleted
}

// HasDueDate reports whether the task carries a deadline.
func (t *Task) HasDueDate() bool {
	return t != nil && t.DueDate != nil && !t.DueDate.IsZero()
}
