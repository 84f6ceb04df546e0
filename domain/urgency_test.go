package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(t time.Time) *time.Time { return &t }

func TestClassifyTiers(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)

	cases := []struct {
		name    string
		due     *time.Time
		tier    Tier
		days    *int
		message string
	}{
		{"due today", ptr(time.Date(2026, 3, 10, 1, 0, 0, 0, time.UTC)), TierDueToday, intPtr(0), "Task is due today!"},
		{"due later today", ptr(time.Date(2026, 3, 10, 23, 59, 0, 0, time.UTC)), TierDueToday, intPtr(0), "Task is due today!"},
		{"due tomorrow", ptr(time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)), TierDueTomorrow, intPtr(1), "Task is due tomorrow!"},
		{"upcoming", ptr(time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)), TierUpcoming, intPtr(4), "Task is due in 4 days"},
		{"one day overdue", ptr(time.Date(2026, 3, 9, 23, 0, 0, 0, time.UTC)), TierOverdue, intPtr(-1), "Task is 1 day overdue!"},
		{"three days overdue", ptr(time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC)), TierOverdue, intPtr(-3), "Task is 3 days overdue!"},
		{"no due date", nil, TierNoDueDate, nil, "Task reminder"},
		{"zero due date", ptr(time.Time{}), TierNoDueDate, nil, "Task reminder"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			u := Classify(tc.due, now)
			assert.Equal(t, tc.tier, u.Tier)
			assert.Equal(t, tc.days, u.DaysUntilDue)
			assert.Equal(t, tc.message, u.Message())
		})
	}
}

func TestClassifyIgnoresLocalOffsets(t *testing.T) {
	t.Parallel()

	// 23:30 in UTC-5 is already the next UTC day.
	est := time.FixedZone("EST", -5*60*60)
	now := time.Date(2026, 3, 10, 23, 30, 0, 0, est)
	due := time.Date(2026, 3, 11, 8, 0, 0, 0, time.UTC)

	u := Classify(&due, now)
	require.NotNil(t, u.DaysUntilDue)
	assert.Equal(t, 0, *u.DaysUntilDue)
	assert.Equal(t, TierDueToday, u.Tier)
}

func TestDaysUntilDueIsMonotonic(t *testing.T) {
	t.Parallel()

	due := time.Date(2026, 5, 20, 18, 0, 0, 0, time.UTC)
	start := time.Date(2026, 5, 1, 7, 45, 0, 0, time.UTC)

	prev := *Classify(&due, start).DaysUntilDue
	for i := 1; i <= 40; i++ {
		cur := *Classify(&due, start.AddDate(0, 0, i)).DaysUntilDue
		assert.LessOrEqual(t, cur, prev, "day %d", i)
		assert.Equal(t, prev-1, cur)
		prev = cur
	}
}

func TestUTCDay(t *testing.T) {
	t.Parallel()

	ist := time.FixedZone("IST", 5*60*60+30*60)
	in := time.Date(2026, 1, 1, 2, 0, 0, 0, ist)
	assert.Equal(t, time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC), UTCDay(in))
}

func intPtr(v int) *int { return &v }
