package redis

import (
	"context"
	"strings"
	"time"

	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fastygo/reminders/domain"
)

// Option customizes a Redis-backed repository.
type Option func(*options)

type options struct {
	logger      *zap.Logger
	now         func() time.Time
	onMalformed func()
}

// WithLogger sets the logger used for skipped records.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock overrides the time source used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithMalformedObserver registers a callback invoked for every record skipped as undecodable.
func WithMalformedObserver(fn func()) Option {
	return func(o *options) {
		if fn != nil {
			o.onMalformed = fn
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		logger:      zap.NewNop(),
		now:         time.Now,
		onMalformed: func() {},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// validateUserID rejects ids that would make the userId:taskId key shape ambiguous.
func validateUserID(userID string) error {
	if userID == "" || strings.Contains(userID, ":") {
		return domain.ErrInvalidPayload
	}
	return nil
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func escapeGlob(s string) string {
	return globEscaper.Replace(s)
}

func scanKeys(ctx context.Context, client *redislib.Client, match string) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	for {
		batch, next, err := client.Scan(ctx, cursor, match, scanCount).Result()
		if err != nil {
			return nil, err
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			return keys, nil
		}
	}
}
