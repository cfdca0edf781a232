// Package ledger records which reminders were delivered so a repeated sweep
// for the same day does not mail anyone twice.
package ledger

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultTTL = 72 * time.Hour

// RedisLedger stores one key per delivered reminder. The value is the UTC
// time of the send.
type RedisLedger struct {
	redis *redis.Client
	ttl   time.Duration
	now   func() time.Time
}

func NewRedisLedger(client *redis.Client, ttl time.Duration) *RedisLedger {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisLedger{redis: client, ttl: ttl, now: time.Now}
}

func (l *RedisLedger) Seen(ctx context.Context, key string) (bool, error) {
	_, err := l.redis.Get(ctx, key).Result()
	if stderrors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("ledger get %s: %w", key, err)
	}
	return true, nil
}

func (l *RedisLedger) Record(ctx context.Context, key string) error {
	sentAt := l.now().UTC().Format(time.RFC3339)
	if err := l.redis.Set(ctx, key, sentAt, l.ttl).Err(); err != nil {
		return fmt.Errorf("ledger set %s: %w", key, err)
	}
	return nil
}
