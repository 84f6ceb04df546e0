package redis

import (
	"context"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/fastygo/reminders/domain"
	"github.com/fastygo/reminders/repository"
)

const (
	readMarkerPrefix     = "notification_read:"
	readMarkerValue      = "true"
	DefaultReadMarkerTTL = 30 * 24 * time.Hour
)

type readStateRepository struct {
	client *redislib.Client
	prefix string
	ttl    time.Duration
}

// NewReadStateRepository creates a Redis-backed read marker store. Markers live under
// notification_read:{userId}:{taskId} and expire independently of reminders.
func NewReadStateRepository(client *redislib.Client, ttl time.Duration) repository.ReadStateRepository {
	if ttl <= 0 {
		ttl = DefaultReadMarkerTTL
	}
	return &readStateRepository{
		client: client,
		prefix: readMarkerPrefix,
		ttl:    ttl,
	}
}

func (r *readStateRepository) MarkRead(ctx context.Context, userID, taskID string) error {
	if r == nil || r.client == nil {
		return domain.ErrNotInitialized
	}
	if err := validateUserID(userID); err != nil {
		return err
	}
	if taskID == "" {
		return domain.ErrInvalidPayload
	}
	if err := r.client.Set(ctx, r.key(userID, taskID), readMarkerValue, r.ttl).Err(); err != nil {
		return domain.Unavailable("read state store", err)
	}
	return nil
}

// MarkReadBatch writes every marker inside one MULTI/EXEC so the batch lands as a unit.
func (r *readStateRepository) MarkReadBatch(ctx context.Context, userID string, taskIDs []string) error {
	if r == nil || r.client == nil {
		return domain.ErrNotInitialized
	}
	if err := validateUserID(userID); err != nil {
		return err
	}

	ids := uniqueNonEmpty(taskIDs)
	if len(ids) == 0 {
		return nil
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redislib.Pipeliner) error {
		for _, taskID := range ids {
			pipe.Set(ctx, r.key(userID, taskID), readMarkerValue, r.ttl)
		}
		return nil
	})
	if err != nil {
		return domain.Unavailable("read state store", err)
	}
	return nil
}

func (r *readStateRepository) IsRead(ctx context.Context, userID, taskID string) (bool, error) {
	if r == nil || r.client == nil {
		return false, domain.ErrNotInitialized
	}
	if err := validateUserID(userID); err != nil {
		return false, err
	}
	n, err := r.client.Exists(ctx, r.key(userID, taskID)).Result()
	if err != nil {
		return false, domain.Unavailable("read state store", err)
	}
	return n > 0, nil
}

func (r *readStateRepository) ReadSet(ctx context.Context, userID string, taskIDs []string) (map[string]bool, error) {
	if r == nil || r.client == nil {
		return nil, domain.ErrNotInitialized
	}
	if err := validateUserID(userID); err != nil {
		return nil, err
	}

	result := make(map[string]bool, len(taskIDs))
	ids := uniqueNonEmpty(taskIDs)
	if len(ids) == 0 {
		return result, nil
	}

	cmds := make([]*redislib.IntCmd, len(ids))
	_, err := r.client.Pipelined(ctx, func(pipe redislib.Pipeliner) error {
		for i, taskID := range ids {
			cmds[i] = pipe.Exists(ctx, r.key(userID, taskID))
		}
		return nil
	})
	if err != nil {
		return nil, domain.Unavailable("read state store", err)
	}

	for i, cmd := range cmds {
		result[ids[i]] = cmd.Val() > 0
	}
	return result, nil
}

func (r *readStateRepository) key(userID, taskID string) string {
	return r.prefix + userID + ":" + taskID
}

func uniqueNonEmpty(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
