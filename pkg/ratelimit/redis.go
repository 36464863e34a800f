package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// redisKeyTTL bounds how long an idle window key survives. Windows longer than
// this are not supported by the redis limiter.
const redisKeyTTL = 24 * time.Hour

// RedisLimiter implements a sliding window on a redis sorted set, scored by
// unix-nano timestamps, shared across orchestrator instances.
type RedisLimiter struct {
	client redis.UniversalClient

	now func() time.Time
}

// NewRedisLimiter creates a limiter over the given redis client.
func NewRedisLimiter(client redis.UniversalClient) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		now:    time.Now,
	}
}

func redisLimiterKey(ruleID, userID string) string {
	return "chatflow:ratelimit:" + ruleID + ":" + userID
}

// Count prunes expired members then returns the window cardinality.
func (l *RedisLimiter) Count(ctx context.Context, ruleID, userID string, window time.Duration) (int, error) {
	key := redisLimiterKey(ruleID, userID)
	cutoff := l.now().Add(-window).UnixNano()

	err := l.client.ZRemRangeByScore(ctx, key, "-inf", fmt.Sprintf("%d", cutoff)).Err()
	if err != nil {
		return 0, fmt.Errorf("failed to prune rate-limit window: %w", err)
	}

	count, err := l.client.ZCard(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count rate-limit window: %w", err)
	}

	return int(count), nil
}

// Record adds one execution at the current instant.
func (l *RedisLimiter) Record(ctx context.Context, ruleID, userID string) error {
	key := redisLimiterKey(ruleID, userID)
	at := l.now().UnixNano()

	pipe := l.client.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(at), Member: uuid.New().String()})
	pipe.Expire(ctx, key, redisKeyTTL)

	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to record rate-limit entry: %w", err)
	}

	return nil
}
