package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fastygo/reminders/domain"
	"github.com/fastygo/reminders/repository"
)

const (
	reminderPrefix     = "reminder:"
	DefaultReminderTTL = 7 * 24 * time.Hour

	scanCount = 100
	mgetChunk = 100
)

type reminderRepository struct {
	client *redislib.Client
	prefix string
	ttl    time.Duration
	opts   options
}

// NewReminderRepository creates a Redis-backed reminder store. Keys look like
// reminder:{userId}:{taskId} and expire after ttl.
func NewReminderRepository(client *redislib.Client, ttl time.Duration, opts ...Option) repository.ReminderRepository {
	if ttl <= 0 {
		ttl = DefaultReminderTTL
	}
	return &reminderRepository{
		client: client,
		prefix: reminderPrefix,
		ttl:    ttl,
		opts:   buildOptions(opts),
	}
}

func (r *reminderRepository) Put(ctx context.Context, record *domain.ReminderRecord) error {
	if r == nil || r.client == nil {
		return domain.ErrNotInitialized
	}
	if record == nil || record.TaskID == "" {
		return domain.ErrInvalidPayload
	}
	if err := validateUserID(record.UserID); err != nil {
		return err
	}

	key := r.key(record.UserID, record.TaskID)
	record.Priority = record.Priority.OrDefault()

	if record.CreatedAt.IsZero() {
		createdAt, err := r.existingCreatedAt(ctx, key)
		if err != nil {
			return err
		}
		if createdAt.IsZero() {
			createdAt = r.opts.now().UTC()
		}
		record.CreatedAt = createdAt
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}

	if err := r.client.Set(ctx, key, payload, r.ttl).Err(); err != nil {
		return domain.Unavailable("reminder store", err)
	}
	return nil
}

func (r *reminderRepository) Get(ctx context.Context, userID, taskID string) (*domain.ReminderRecord, error) {
	if r == nil || r.client == nil {
		return nil, domain.ErrNotInitialized
	}
	if err := validateUserID(userID); err != nil {
		return nil, err
	}

	key := r.key(userID, taskID)
	result, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return nil, domain.ErrReminderNotFound
		}
		return nil, domain.Unavailable("reminder store", err)
	}

	record, err := decodeReminder(result, userID, taskID)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeMalformedRecord, "malformed reminder "+key, err)
	}
	return record, nil
}

func (r *reminderRepository) ListActive(ctx context.Context, userID string) ([]domain.ReminderRecord, error) {
	if r == nil || r.client == nil {
		return nil, domain.ErrNotInitialized
	}
	if err := validateUserID(userID); err != nil {
		return nil, err
	}

	userPrefix := r.prefix + userID + ":"
	keys, err := scanKeys(ctx, r.client, escapeGlob(userPrefix)+"*")
	if err != nil {
		return nil, domain.Unavailable("reminder store", err)
	}

	records := make([]domain.ReminderRecord, 0, len(keys))
	for start := 0; start < len(keys); start += mgetChunk {
		end := min(start+mgetChunk, len(keys))
		chunk := keys[start:end]

		values, err := r.client.MGet(ctx, chunk...).Result()
		if err != nil {
			return nil, domain.Unavailable("reminder store", err)
		}

		for i, value := range values {
			raw, ok := value.(string)
			if !ok {
				// expired between SCAN and MGET
				continue
			}
			taskID := chunk[i][len(userPrefix):]
			record, err := decodeReminder([]byte(raw), userID, taskID)
			if err != nil {
				r.opts.logger.Warn("skipping malformed reminder",
					zap.String("key", chunk[i]),
					zap.String("user_id", userID),
					zap.Error(err))
				r.opts.onMalformed()
				continue
			}
			records = append(records, *record)
		}
	}
	return records, nil
}

func (r *reminderRepository) Remove(ctx context.Context, userID, taskID string) (bool, error) {
	if r == nil || r.client == nil {
		return false, domain.ErrNotInitialized
	}
	if err := validateUserID(userID); err != nil {
		return false, err
	}
	deleted, err := r.client.Del(ctx, r.key(userID, taskID)).Result()
	if err != nil {
		return false, domain.Unavailable("reminder store", err)
	}
	return deleted > 0, nil
}

func (r *reminderRepository) existingCreatedAt(ctx context.Context, key string) (time.Time, error) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return time.Time{}, nil
		}
		return time.Time{}, domain.Unavailable("reminder store", err)
	}
	var previous domain.ReminderRecord
	if err := json.Unmarshal(raw, &previous); err != nil {
		// a corrupt record gets overwritten with a fresh one
		return time.Time{}, nil
	}
	return previous.CreatedAt, nil
}

func (r *reminderRepository) key(userID, taskID string) string {
	return r.prefix + userID + ":" + taskID
}

func decodeReminder(raw []byte, userID, taskID string) (*domain.ReminderRecord, error) {
	var record domain.ReminderRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, err
	}
	if record.UserID == "" {
		record.UserID = userID
	}
	if record.TaskID == "" {
		record.TaskID = taskID
	}
	if record.UserID != userID || record.TaskID != taskID {
		return nil, errors.New("record identity does not match key")
	}
	record.Priority = record.Priority.OrDefault()
	return &record, nil
}
