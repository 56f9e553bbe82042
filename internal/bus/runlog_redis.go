package bus

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const runLogKeyPrefix = "workflow:runlog:"

// RedisStepLog persists step results in a Redis hash per run, so memoization
// survives process restarts between re-deliveries.
type RedisStepLog struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStepLog wraps the given client. Run logs expire after ttl; zero
// means they are kept until Redis evicts them.
func NewRedisStepLog(client *redis.Client, ttl time.Duration) *RedisStepLog {
	return &RedisStepLog{client: client, ttl: ttl}
}

// Get returns the stored result for a step of a run, if any.
func (l *RedisStepLog) Get(ctx context.Context, runID, step string) ([]byte, bool, error) {
	raw, err := l.client.HGet(ctx, runLogKeyPrefix+runID, step).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

// Put stores the result for a step of a run and refreshes the run TTL.
func (l *RedisStepLog) Put(ctx context.Context, runID, step string, result []byte) error {
	key := runLogKeyPrefix + runID
	if err := l.client.HSet(ctx, key, step, result).Err(); err != nil {
		return err
	}
	if l.ttl > 0 {
		if err := l.client.Expire(ctx, key, l.ttl).Err(); err != nil {
			return err
		}
	}
	return nil
}
