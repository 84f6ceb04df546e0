package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/reminders/domain"
)

func TestMarkReadIsIdempotent(t *testing.T) {
	mr, client := newTestRedis(t)
	repo := NewReadStateRepository(client, 0)
	ctx := context.Background()

	read, err := repo.IsRead(ctx, "u1", "t1")
	require.NoError(t, err)
	assert.False(t, read)

	require.NoError(t, repo.MarkRead(ctx, "u1", "t1"))
	mr.FastForward(24 * time.Hour)
	require.NoError(t, repo.MarkRead(ctx, "u1", "t1"))

	read, err = repo.IsRead(ctx, "u1", "t1")
	require.NoError(t, err)
	assert.True(t, read)
	assert.Equal(t, DefaultReadMarkerTTL, mr.TTL("notification_read:u1:t1"))
}

func TestReadMarkerExpiresIndependently(t *testing.T) {
	mr, client := newTestRedis(t)
	markers := NewReadStateRepository(client, 2*time.Hour)
	reminders := NewReminderRepository(client, time.Hour)
	ctx := context.Background()

	require.NoError(t, reminders.Put(ctx, &domain.ReminderRecord{UserID: "u1", TaskID: "t1"}))
	require.NoError(t, markers.MarkRead(ctx, "u1", "t1"))

	mr.FastForward(90 * time.Minute)
	_, err := reminders.Get(ctx, "u1", "t1")
	assert.ErrorIs(t, err, domain.ErrReminderNotFound)

	read, err := markers.IsRead(ctx, "u1", "t1")
	require.NoError(t, err)
	assert.True(t, read, "stale marker survives its reminder")

	mr.FastForward(time.Hour)
	read, err = markers.IsRead(ctx, "u1", "t1")
	require.NoError(t, err)
	assert.False(t, read)
}

func TestMarkReadBatchAndReadSet(t *testing.T) {
	mr, client := newTestRedis(t)
	repo := NewReadStateRepository(client, 0)
	ctx := context.Background()

	require.NoError(t, repo.MarkReadBatch(ctx, "u1", []string{"t1", "t2", "t1", ""}))
	assert.ElementsMatch(t, []string{"notification_read:u1:t1", "notification_read:u1:t2"}, mr.Keys())

	set, err := repo.ReadSet(ctx, "u1", []string{"t1", "t2", "t3"})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"t1": true, "t2": true, "t3": false}, set)

	other, err := repo.ReadSet(ctx, "u2", []string{"t1"})
	require.NoError(t, err)
	assert.False(t, other["t1"])

	require.NoError(t, repo.MarkReadBatch(ctx, "u1", nil))
}

func TestMarkReadBatchUnavailable(t *testing.T) {
	mr, client := newTestRedis(t)
	repo := NewReadStateRepository(client, 0)
	mr.Close()

	err := repo.MarkReadBatch(context.Background(), "u1", []string{"t1", "t2"})
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeUnavailable), "got %v", err)

	_, err = repo.ReadSet(context.Background(), "u1", []string{"t1"})
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeUnavailable))
}

func TestMarkReadValidatesInput(t *testing.T) {
	_, client := newTestRedis(t)
	repo := NewReadStateRepository(client, 0)

	assert.ErrorIs(t, repo.MarkRead(context.Background(), "u1", ""), domain.ErrInvalidPayload)
	assert.ErrorIs(t, repo.MarkRead(context.Background(), "", "t1"), domain.ErrInvalidPayload)
}
