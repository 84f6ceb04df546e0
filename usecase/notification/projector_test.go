package notification

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/reminders/domain"
	"github.com/fastygo/reminders/repository"
	redisrepo "github.com/fastygo/reminders/repository/redis"
)

type fixture struct {
	mr        *miniredis.Miniredis
	clock     time.Time
	reminders repository.ReminderRepository
	readState repository.ReadStateRepository
	projector *Projector
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redislib.NewClient(&redislib.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	f := &fixture{mr: mr, clock: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)}
	f.reminders = redisrepo.NewReminderRepository(client, redisrepo.DefaultReminderTTL,
		redisrepo.WithClock(func() time.Time { return f.clock }))
	f.readState = redisrepo.NewReadStateRepository(client, redisrepo.DefaultReadMarkerTTL)
	f.projector = NewProjector(f.reminders, f.readState, nil, nil)
	return f
}

func (f *fixture) put(t *testing.T, userID, taskID string, due *time.Time) {
	t.Helper()
	require.NoError(t, f.reminders.Put(context.Background(), &domain.ReminderRecord{
		UserID: userID, TaskID: taskID, TaskTitle: "task " + taskID, DueDate: due,
	}))
}

func TestListNotificationsOrderedOldestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	today := f.clock
	f.put(t, "u1", "later", &today)
	f.clock = f.clock.Add(-time.Hour)
	f.put(t, "u1", "earlier", nil)
	f.clock = today

	list, err := f.projector.ListNotifications(ctx, "u1", today)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "earlier", list[0].TaskID)
	assert.Equal(t, "later", list[1].TaskID)

	assert.Equal(t, "u1:earlier", list[0].ID)
	assert.Equal(t, "Task reminder", list[0].Message)
	assert.Nil(t, list[0].DaysUntilDue)

	assert.Equal(t, "Task is due today!", list[1].Message)
	require.NotNil(t, list[1].DaysUntilDue)
	assert.Equal(t, 0, *list[1].DaysUntilDue)
	assert.Equal(t, domain.PriorityMedium, list[1].Priority)
	assert.False(t, list[1].Read)
}

func TestListNotificationsDerivesUrgencyAtReadTime(t *testing.T) {
	f := newFixture(t)
	due := time.Date(2026, 5, 5, 9, 0, 0, 0, time.UTC)
	f.put(t, "u1", "t1", &due)

	list, err := f.projector.ListNotifications(context.Background(), "u1", f.clock)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Task is due tomorrow!", list[0].Message)

	later := f.clock.AddDate(0, 0, 4)
	list, err = f.projector.ListNotifications(context.Background(), "u1", later)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Task is 3 days overdue!", list[0].Message)
	assert.Equal(t, -3, *list[0].DaysUntilDue)
}

func TestStaleReadMarkerDoesNotCreateNotification(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.readState.MarkRead(ctx, "u1", "gone"))
	f.put(t, "u1", "t1", nil)

	list, err := f.projector.ListNotifications(ctx, "u1", f.clock)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "t1", list[0].TaskID)
}

func TestListNotificationsSkipsMalformedRecords(t *testing.T) {
	f := newFixture(t)
	f.put(t, "u1", "t1", nil)
	require.NoError(t, f.mr.Set("reminder:u1:t2", "{broken"))

	list, err := f.projector.ListNotifications(context.Background(), "u1", f.clock)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "t1", list[0].TaskID)
}

func TestListNotificationsEmpty(t *testing.T) {
	f := newFixture(t)
	list, err := f.projector.ListNotifications(context.Background(), "u1", f.clock)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestMarkAsRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.put(t, "u1", "t1", nil)
	f.put(t, "u1", "t2", nil)

	res, err := f.projector.MarkAsRead(ctx, "u1", []string{"u1:t1", "u1:t1", "garbage"})
	require.NoError(t, err)
	assert.Equal(t, MarkResult{Marked: 1, Skipped: 1}, res)

	list, err := f.projector.ListNotifications(ctx, "u1", f.clock)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.True(t, list[0].Read)
	assert.False(t, list[1].Read)
	assert.Equal(t, 1, UnreadCount(list))
}

func TestMarkAsReadIgnoresForeignIDs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.put(t, "victim", "t1", nil)

	res, err := f.projector.MarkAsRead(ctx, "attacker", []string{"victim:t1", "attacker"})
	require.NoError(t, err)
	assert.Equal(t, MarkResult{Marked: 0, Skipped: 2}, res)

	read, err := f.readState.IsRead(ctx, "victim", "t1")
	require.NoError(t, err)
	assert.False(t, read)
	assert.False(t, f.mr.Exists("notification_read:attacker:t1"))
}

func TestMarkAsReadSurfacesUnavailable(t *testing.T) {
	f := newFixture(t)
	f.mr.Close()

	_, err := f.projector.MarkAsRead(context.Background(), "u1", []string{"u1:t1"})
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeUnavailable))

	_, err = f.projector.ListNotifications(context.Background(), "u1", f.clock)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeUnavailable))
}

func TestProjectorRequiresCaller(t *testing.T) {
	f := newFixture(t)
	_, err := f.projector.ListNotifications(context.Background(), "", f.clock)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = NewProjector(nil, nil, nil, nil).MarkAsRead(context.Background(), "u1", nil)
	assert.ErrorIs(t, err, domain.ErrNotInitialized)
}
