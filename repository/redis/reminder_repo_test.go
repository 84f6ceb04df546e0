package redis

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/reminders/domain"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redislib.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redislib.NewClient(&redislib.Options{
		Addr:        mr.Addr(),
		DialTimeout: 200 * time.Millisecond,
		ReadTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }
func (c *fakeClock) Add(d time.Duration) { c.t = c.t.Add(d) }

func TestReminderPutGetRoundTrip(t *testing.T) {
	_, client := newTestRedis(t)
	clock := &fakeClock{t: time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)}
	repo := NewReminderRepository(client, 0, WithClock(clock.Now))
	ctx := context.Background()

	due := time.Date(2026, 6, 2, 17, 0, 0, 0, time.UTC)
	rec := &domain.ReminderRecord{UserID: "u1", TaskID: "t1", TaskTitle: "Ship it", DueDate: &due, Priority: domain.PriorityHigh}
	require.NoError(t, repo.Put(ctx, rec))
	assert.Equal(t, clock.t, rec.CreatedAt)

	got, err := repo.Get(ctx, "u1", "t1")
	require.NoError(t, err)
	assert.Equal(t, rec.UserID, got.UserID)
	assert.Equal(t, rec.TaskID, got.TaskID)
	assert.Equal(t, rec.TaskTitle, got.TaskTitle)
	assert.Equal(t, rec.Priority, got.Priority)
	require.NotNil(t, got.DueDate)
	assert.True(t, due.Equal(*got.DueDate))
	assert.True(t, rec.CreatedAt.Equal(got.CreatedAt))
}

func TestReminderPutDefaultsPriority(t *testing.T) {
	_, client := newTestRedis(t)
	repo := NewReminderRepository(client, 0)

	require.NoError(t, repo.Put(context.Background(), &domain.ReminderRecord{UserID: "u1", TaskID: "t1"}))
	got, err := repo.Get(context.Background(), "u1", "t1")
	require.NoError(t, err)
	assert.Equal(t, domain.PriorityMedium, got.Priority)
	assert.Nil(t, got.DueDate)
}

func TestReminderPutIsIdempotentAndRefreshesTTL(t *testing.T) {
	mr, client := newTestRedis(t)
	clock := &fakeClock{t: time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)}
	repo := NewReminderRepository(client, DefaultReminderTTL, WithClock(clock.Now))
	ctx := context.Background()

	require.NoError(t, repo.Put(ctx, &domain.ReminderRecord{UserID: "u1", TaskID: "t1", TaskTitle: "A"}))
	firstCreated := clock.t

	mr.FastForward(3 * 24 * time.Hour)
	clock.Add(3 * 24 * time.Hour)
	assert.Equal(t, 4*24*time.Hour, mr.TTL("reminder:u1:t1"))

	second := &domain.ReminderRecord{UserID: "u1", TaskID: "t1", TaskTitle: "A"}
	require.NoError(t, repo.Put(ctx, second))

	assert.Equal(t, []string{"reminder:u1:t1"}, mr.Keys())
	assert.Equal(t, DefaultReminderTTL, mr.TTL("reminder:u1:t1"))
	assert.True(t, firstCreated.Equal(second.CreatedAt), "refresh keeps the original creation time")
}

func TestReminderExpires(t *testing.T) {
	mr, client := newTestRedis(t)
	repo := NewReminderRepository(client, time.Hour)
	ctx := context.Background()

	require.NoError(t, repo.Put(ctx, &domain.ReminderRecord{UserID: "u1", TaskID: "t1"}))
	mr.FastForward(time.Hour + time.Second)

	_, err := repo.Get(ctx, "u1", "t1")
	assert.ErrorIs(t, err, domain.ErrReminderNotFound)

	list, err := repo.ListActive(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestReminderListActiveScopesToUser(t *testing.T) {
	mr, client := newTestRedis(t)
	malformed := 0
	repo := NewReminderRepository(client, 0, WithMalformedObserver(func() { malformed++ }))
	ctx := context.Background()

	for _, rec := range []domain.ReminderRecord{
		{UserID: "u1", TaskID: "t1"},
		{UserID: "u1", TaskID: "t2"},
		{UserID: "u10", TaskID: "t3"},
		{UserID: "a*", TaskID: "t4"},
		{UserID: "ab", TaskID: "t5"},
	} {
		rec := rec
		require.NoError(t, repo.Put(ctx, &rec))
	}
	require.NoError(t, mr.Set("reminder:u1:broken", "{not json"))

	list, err := repo.ListActive(ctx, "u1")
	require.NoError(t, err)
	ids := make([]string, 0, len(list))
	for _, rec := range list {
		assert.Equal(t, "u1", rec.UserID)
		ids = append(ids, rec.TaskID)
	}
	assert.ElementsMatch(t, []string{"t1", "t2"}, ids)
	assert.Equal(t, 1, malformed)

	list, err = repo.ListActive(ctx, "a*")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "t4", list[0].TaskID)
}

func TestReminderGetMalformed(t *testing.T) {
	mr, client := newTestRedis(t)
	repo := NewReminderRepository(client, 0)
	require.NoError(t, mr.Set("reminder:u1:t1", "garbage"))

	_, err := repo.Get(context.Background(), "u1", "t1")
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeMalformedRecord))
}

func TestReminderRemove(t *testing.T) {
	_, client := newTestRedis(t)
	repo := NewReminderRepository(client, 0)
	ctx := context.Background()

	require.NoError(t, repo.Put(ctx, &domain.ReminderRecord{UserID: "u1", TaskID: "t1"}))

	removed, err := repo.Remove(ctx, "u1", "t1")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repo.Remove(ctx, "u1", "t1")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestReminderRejectsAmbiguousUserID(t *testing.T) {
	_, client := newTestRedis(t)
	repo := NewReminderRepository(client, 0)

	err := repo.Put(context.Background(), &domain.ReminderRecord{UserID: "u1:x", TaskID: "t1"})
	assert.ErrorIs(t, err, domain.ErrInvalidPayload)

	_, err = repo.ListActive(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidPayload)
}

func TestReminderBackendUnavailable(t *testing.T) {
	mr, client := newTestRedis(t)
	repo := NewReminderRepository(client, 0)
	mr.Close()

	ctx := context.Background()
	_, err := repo.Get(ctx, "u1", "t1")
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeUnavailable), "got %v", err)

	_, err = repo.ListActive(ctx, "u1")
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeUnavailable))

	err = repo.Put(ctx, &domain.ReminderRecord{UserID: "u1", TaskID: "t1"})
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeUnavailable))

	_, err = repo.Remove(ctx, "u1", "t1")
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeUnavailable))
}

func TestReminderHonorsCancelledContext(t *testing.T) {
	_, client := newTestRedis(t)
	repo := NewReminderRepository(client, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.Get(ctx, "u1", "t1")
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeUnavailable))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReminderNotInitialized(t *testing.T) {
	repo := NewReminderRepository(nil, 0)
	_, err := repo.Get(context.Background(), "u1", "t1")
	assert.ErrorIs(t, err, domain.ErrNotInitialized)
}

func TestEscapeGlob(t *testing.T) {
	assert.Equal(t, `reminder:a\*b\?\[c\]\\:`, escapeGlob(`reminder:a*b?[c]\:`))
}

func TestReminderConcurrentPutsLeaveOneWholeRecord(t *testing.T) {
	_, client := newTestRedis(t)
	repo := NewReminderRepository(client, 0)
	ctx := context.Background()
	due := time.Date(2026, 6, 2, 0, 0, 0, 0, time.UTC)

	const writers = 16
	titles := make(map[string]bool, writers)
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		title := fmt.Sprintf("title %02d", i)
		titles[title] = true
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- repo.Put(ctx, &domain.ReminderRecord{
				UserID:    "u1",
				TaskID:    "t1",
				TaskTitle: title,
				DueDate:   &due,
				Priority:  domain.PriorityHigh,
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := repo.Get(ctx, "u1", "t1")
	require.NoError(t, err)
	assert.True(t, titles[got.TaskTitle], "title %q was written by no one", got.TaskTitle)
	assert.Equal(t, domain.PriorityHigh, got.Priority)
	require.NotNil(t, got.DueDate)
	assert.True(t, due.Equal(*got.DueDate))

	active, err := repo.ListActive(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, got.TaskTitle, active[0].TaskTitle)
}
