package cache

import (
	"context"
	"sync"
	"time"

	"github.com/tasklane/tasklane/internal/domain/entitlement"
)

type memoryEntry struct {
	resolution *entitlement.CachedResolution
	planID     uint
	expiresAt  time.Time
}

// MemoryPolicyCache is an in-process entitlement.PolicyCache for single
// instance deployments and tests. Expired entries are dropped lazily on read
// and by Sweep.
type MemoryPolicyCache struct {
	mu      sync.RWMutex
	entries map[uint]memoryEntry
	byPlan  map[uint]map[uint]struct{}
	now     func() time.Time
}

func NewMemoryPolicyCache() *MemoryPolicyCache {
	return &MemoryPolicyCache{
		entries: make(map[uint]memoryEntry),
		byPlan:  make(map[uint]map[uint]struct{}),
		now:     time.Now,
	}
}

var _ entitlement.PolicyCache = (*MemoryPolicyCache)(nil)

func (c *MemoryPolicyCache) Get(_ context.Context, userID uint) (*entitlement.CachedResolution, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[userID]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !c.now().Before(entry.expiresAt) {
		c.mu.Lock()
		if current, ok := c.entries[userID]; ok && current.expiresAt.Equal(entry.expiresAt) {
			c.removeLocked(userID)
		}
		c.mu.Unlock()
		return nil, false, nil
	}
	return entry.resolution, true, nil
}

func (c *MemoryPolicyCache) Set(_ context.Context, userID uint, resolution *entitlement.CachedResolution, ttl time.Duration) error {
	if resolution == nil || ttl <= 0 {
		return nil
	}
	var planID uint
	if resolution.Policy != nil {
		planID = resolution.Policy.PlanID
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(userID)
	c.entries[userID] = memoryEntry{
		resolution: resolution,
		planID:     planID,
		expiresAt:  c.now().Add(ttl),
	}
	if planID != 0 {
		users, ok := c.byPlan[planID]
		if !ok {
			users = make(map[uint]struct{})
			c.byPlan[planID] = users
		}
		users[userID] = struct{}{}
	}
	return nil
}

func (c *MemoryPolicyCache) Delete(_ context.Context, userIDs ...uint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range userIDs {
		c.removeLocked(id)
	}
	return nil
}

func (c *MemoryPolicyCache) DeletePlan(_ context.Context, planID uint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id := range c.byPlan[planID] {
		delete(c.entries, id)
	}
	delete(c.byPlan, planID)
	return nil
}

// Sweep drops expired entries and returns how many were removed.
func (c *MemoryPolicyCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	removed := 0
	for id, entry := range c.entries {
		if !now.Before(entry.expiresAt) {
			c.removeLocked(id)
			removed++
		}
	}
	return removed
}

func (c *MemoryPolicyCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *MemoryPolicyCache) removeLocked(userID uint) {
	entry, ok := c.entries[userID]
	if !ok {
		return
	}
	delete(c.entries, userID)
	if users, ok := c.byPlan[entry.planID]; ok {
		delete(users, userID)
		if len(users) == 0 {
			delete(c.byPlan, entry.planID)
		}
	}
}
