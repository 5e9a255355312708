package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tasklane/tasklane/internal/domain/entitlement"
	"github.com/tasklane/tasklane/internal/shared/logger"
)

const (
	policyKeyPrefix     = "tasklane:entitlement:user:"
	planIndexKeyPrefix  = "tasklane:entitlement:plan:"
	policyTTLJitterFrac = 10 // jitter up to ttl/10 (anti-stampede)
)

// RedisPolicyCache stores resolutions as JSON, one key per user. A set per
// plan tracks which users were resolved against it so a plan edit can drop
// them without scanning.
type RedisPolicyCache struct {
	client *redis.Client
	logger logger.Interface
}

func NewRedisPolicyCache(client *redis.Client, logger logger.Interface) *RedisPolicyCache {
	return &RedisPolicyCache{
		client: client,
		logger: logger,
	}
}

var _ entitlement.PolicyCache = (*RedisPolicyCache)(nil)

func (c *RedisPolicyCache) userKey(userID uint) string {
	return fmt.Sprintf("%s%d", policyKeyPrefix, userID)
}

func (c *RedisPolicyCache) planKey(planID uint) string {
	return fmt.Sprintf("%s%d", planIndexKeyPrefix, planID)
}

func (c *RedisPolicyCache) Get(ctx context.Context, userID uint) (*entitlement.CachedResolution, bool, error) {
	data, err := c.client.Get(ctx, c.userKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get policy from cache: %w", err)
	}

	var resolution entitlement.CachedResolution
	if err := json.Unmarshal(data, &resolution); err != nil {
		// A corrupt entry is a miss; it is overwritten on the next Set.
		c.logger.Warnw("discarding undecodable cached policy", "user_id", userID, "error", err)
		return nil, false, nil
	}
	return &resolution, true, nil
}

func (c *RedisPolicyCache) Set(ctx context.Context, userID uint, resolution *entitlement.CachedResolution, ttl time.Duration) error {
	if resolution == nil || ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(resolution)
	if err != nil {
		return fmt.Errorf("failed to encode policy: %w", err)
	}

	ttl = jitterTTL(ttl)
	pipe := c.client.TxPipeline()
	pipe.Set(ctx, c.userKey(userID), data, ttl)
	if resolution.Policy != nil && resolution.Policy.PlanID != 0 {
		planKey := c.planKey(resolution.Policy.PlanID)
		pipe.SAdd(ctx, planKey, userID)
		// The index only needs to outlive the entries it points at.
		pipe.Expire(ctx, planKey, 2*ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to set policy in cache: %w", err)
	}
	return nil
}

func (c *RedisPolicyCache) Delete(ctx context.Context, userIDs ...uint) error {
	if len(userIDs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, c.userKey(id))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete cached policies: %w", err)
	}
	return nil
}

func (c *RedisPolicyCache) DeletePlan(ctx context.Context, planID uint) error {
	planKey := c.planKey(planID)
	members, err := c.client.SMembers(ctx, planKey).Result()
	if err != nil {
		return fmt.Errorf("failed to read plan cache index: %w", err)
	}

	keys := make([]string, 0, len(members)+1)
	for _, m := range members {
		id, err := strconv.ParseUint(m, 10, 64)
		if err != nil {
			continue
		}
		keys = append(keys, c.userKey(uint(id)))
	}
	keys = append(keys, planKey)

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete cached policies for plan: %w", err)
	}
	c.logger.Debugw("dropped cached policies for plan", "plan_id", planID, "users", len(members))
	return nil
}

func jitterTTL(ttl time.Duration) time.Duration {
	span := int64(ttl) / policyTTLJitterFrac
	if span <= 0 {
		return ttl
	}
	return ttl + time.Duration(rand.Int64N(span))
}
