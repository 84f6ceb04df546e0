package domain

import "time"

// JobStatus represents the lifecycle state of a reminder job.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobActive    JobStatus = "active"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

var validJobStatuses = map[JobStatus]bool{
	JobQueued:    true,
	JobActive:    true,
	JobCompleted: true,
	JobFailed:    true,
}

// IsValid returns true if the status is one of the recognized values.
func (s JobStatus) IsValid() bool {
	return validJobStatuses[s]
}

// IsPending reports whether a job with this status blocks a new enqueue for the same key.
func (s JobStatus) IsPending() bool {
	return s == JobQueued || s == JobActive
}

// ReminderJob asks a worker to run scheduling for one task. Key is the dedup key userId:taskId.
type ReminderJob struct {
	Key         string    `json:"key"`
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Task        Task      `json:"task"`
	Status      JobStatus `json:"status"`
	Attempts    int       `json:"attempts"`
	MaxAttempts int       `json:"max_attempts"`
	LastError   string    `json:"last_error,omitempty"`
	EnqueuedAt  time.Time `json:"enqueued_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// JobKey is the dedup key shared by reminder jobs and notification ids.
func JobKey(userID, taskID string) string {
	return NotificationID(userID, taskID)
}

// CanRetry reports whether another attempt is allowed after a failure.
func (j *ReminderJob) CanRetry() bool {
	return j != nil && j.Attempts < j.MaxAttempts
}
