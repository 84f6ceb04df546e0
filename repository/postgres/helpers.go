package postgres

import "time"

func nullDue(due *time.Time) interface{} {
	if due == nil || due.IsZero() {
		return nil
	}
	return due.UTC()
}
