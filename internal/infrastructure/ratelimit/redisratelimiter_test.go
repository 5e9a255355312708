package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestLimiter(t *testing.T) (*RedisRateLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisRateLimiter(client), mr
}

func TestRedisRateLimiter_PerMinute(t *testing.T) {
	limiter, _ := setupTestLimiter(t)
	ctx := context.Background()
	policy := Policy{RequestsPerMinute: 5}

	for i := 0; i < 5; i++ {
		d, err := limiter.Allow(ctx, "user:1", policy)
		require.NoError(t, err)
		assert.True(t, d.Allowed, "request %d should be allowed", i+1)
		assert.Equal(t, 5, d.Limit)
		assert.Equal(t, 4-i, d.Remaining)
	}

	d, err := limiter.Allow(ctx, "user:1", policy)
	require.NoError(t, err)
	assert.False(t, d.Allowed, "6th request should be denied")
	assert.Equal(t, 0, d.Remaining)
	assert.Equal(t, time.Minute, d.RetryAfter)

	d, err = limiter.Allow(ctx, "user:2", policy)
	require.NoError(t, err)
	assert.True(t, d.Allowed, "keys are independent")
}

func TestRedisRateLimiter_PerHour(t *testing.T) {
	limiter, _ := setupTestLimiter(t)
	ctx := context.Background()
	policy := Policy{RequestsPerMinute: 100, RequestsPerHour: 3}

	for i := 0; i < 3; i++ {
		d, err := limiter.Allow(ctx, "ip:10.0.0.1", policy)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	}

	d, err := limiter.Allow(ctx, "ip:10.0.0.1", policy)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, time.Hour, d.RetryAfter)
	assert.Equal(t, 3, d.Limit)
}

func TestRedisRateLimiter_WindowSlides(t *testing.T) {
	limiter, _ := setupTestLimiter(t)
	ctx := context.Background()
	policy := Policy{RequestsPerMinute: 2}

	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return start }

	for i := 0; i < 2; i++ {
		d, err := limiter.Allow(ctx, "user:1", policy)
		require.NoError(t, err)
		require.True(t, d.Allowed)
	}
	d, err := limiter.Allow(ctx, "user:1", policy)
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	limiter.now = func() time.Time { return start.Add(61 * time.Second) }
	d, err = limiter.Allow(ctx, "user:1", policy)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestRedisRateLimiter_ZeroPolicyAllows(t *testing.T) {
	limiter, _ := setupTestLimiter(t)

	d, err := limiter.Allow(context.Background(), "user:1", Policy{})
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.True(t, Policy{}.IsZero())
}

func TestRedisRateLimiter_Reset(t *testing.T) {
	limiter, mr := setupTestLimiter(t)
	ctx := context.Background()
	policy := Policy{RequestsPerMinute: 1, RequestsPerHour: 10}

	_, err := limiter.Allow(ctx, "user:1", policy)
	require.NoError(t, err)
	d, err := limiter.Allow(ctx, "user:1", policy)
	require.NoError(t, err)
	require.False(t, d.Allowed)

	require.NoError(t, limiter.Reset(ctx, "user:1"))
	assert.Empty(t, mr.Keys())

	d, err = limiter.Allow(ctx, "user:1", policy)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestRedisRateLimiter_RedisDown(t *testing.T) {
	limiter, mr := setupTestLimiter(t)
	mr.Close()

	_, err := limiter.Allow(context.Background(), "user:1", Policy{RequestsPerMinute: 1})
	assert.Error(t, err)
}
