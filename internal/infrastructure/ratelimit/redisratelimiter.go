package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "tasklane:ratelimit:"

// RedisRateLimiter keeps one sorted set of request timestamps per key and
// window, so every instance sharing the Redis server sees the same counts.
// Denied requests are recorded too.
type RedisRateLimiter struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisRateLimiter(client *redis.Client) *RedisRateLimiter {
	return &RedisRateLimiter{
		client: client,
		now:    time.Now,
	}
}

var _ RateLimiter = (*RedisRateLimiter)(nil)

func (l *RedisRateLimiter) Allow(ctx context.Context, key string, policy Policy) (Decision, error) {
	now := l.now()
	decision := Decision{Allowed: true, Remaining: -1}

	windows := []struct {
		duration time.Duration
		limit    int
	}{
		{time.Minute, policy.RequestsPerMinute},
		{time.Hour, policy.RequestsPerHour},
	}

	for _, window := range windows {
		if window.limit <= 0 {
			continue
		}

		count, err := l.record(ctx, key, window.duration, now)
		if err != nil {
			return Decision{}, err
		}

		remaining := window.limit - int(count) - 1
		if remaining < 0 {
			remaining = 0
		}
		if decision.Remaining < 0 || remaining < decision.Remaining {
			decision.Limit = window.limit
			decision.Remaining = remaining
		}
		if count >= int64(window.limit) {
			decision.Allowed = false
			decision.RetryAfter = window.duration
			return decision, nil
		}
	}

	if decision.Remaining < 0 {
		decision.Remaining = 0
	}
	return decision, nil
}

// record adds a request to the window and returns how many requests the
// window held before it.
func (l *RedisRateLimiter) record(ctx context.Context, key string, window time.Duration, now time.Time) (int64, error) {
	redisKey := l.getKey(key, window)
	windowStart := now.Add(-window).UnixNano()

	pipe := l.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", strconv.FormatInt(windowStart, 10))
	zcard := pipe.ZCard(ctx, redisKey)
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixNano()), Member: uuid.NewString()})
	pipe.Expire(ctx, redisKey, window+time.Minute)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to record request for %s: %w", key, err)
	}
	return zcard.Val(), nil
}

func (l *RedisRateLimiter) Reset(ctx context.Context, key string) error {
	iter := l.client.Scan(ctx, 0, keyPrefix+key+":*", 0).Iterator()
	for iter.Next(ctx) {
		if err := l.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to delete key %s: %w", iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan keys: %w", err)
	}
	return nil
}

func (l *RedisRateLimiter) getKey(identifier string, window time.Duration) string {
	return fmt.Sprintf("%s%s:%s", keyPrefix, identifier, window.String())
}
