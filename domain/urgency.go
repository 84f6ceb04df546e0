package domain

import (
	"fmt"
	"time"
)

// Tier is a coarse urgency classification derived from days until due.
type Tier string

const (
	TierOverdue     Tier = "overdue"
	TierDueToday    Tier = "due_today"
	TierDueTomorrow Tier = "due_tomorrow"
	TierUpcoming    Tier = "upcoming"
	TierNoDueDate   Tier = "no_due_date"
)

const day = 24 * time.Hour

// Urgency is the result of classifying a due date against a reference time.
// DaysUntilDue is nil when the task has no due date.
type Urgency struct {
	DaysUntilDue *int
	Tier         Tier
}

// UTCDay truncates t to midnight of its UTC calendar day.
func UTCDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween counts whole UTC calendar days from now to due. Negative when due is in the past.
func DaysBetween(due, now time.Time) int {
	return int(UTCDay(due).Sub(UTCDay(now)) / day)
}

// Classify compares calendar dates in UTC, never wall-clock instants, so that local offsets
// cannot shift a task across a day boundary.
func Classify(due *time.Time, now time.Time) Urgency {
	if due == nil || due.IsZero() {
		return Urgency{Tier: TierNoDueDate}
	}

	days := DaysBetween(*due, now)
	u := Urgency{DaysUntilDue: &days}
	switch {
	case days < 0:
		u.Tier = TierOverdue
	case days == 0:
		u.Tier = TierDueToday
	case days == 1:
		u.Tier = TierDueTomorrow
	default:
		u.Tier = TierUpcoming
	}
	return u
}

// Message renders the human-facing text for the classification.
func (u Urgency) Message() string {
	switch u.Tier {
	case TierOverdue:
		n := -*u.DaysUntilDue
		return fmt.Sprintf("Task is %d %s overdue!", n, pluralDays(n))
	case TierDueToday:
		return "Task is due today!"
	case TierDueTomorrow:
		return "Task is due tomorrow!"
	case TierUpcoming:
		return fmt.Sprintf("Task is due in %d %s", *u.DaysUntilDue, pluralDays(*u.DaysUntilDue))
	default:
		return "Task reminder"
	}
}

func pluralDays(n int) string {
	if n == 1 {
		return "day"
	}
	return "days"
}
