package entitlement

import (
	"context"
	"time"
)

// OverrideRecord is an active override as seen by the resolver.
type OverrideRecord struct {
	ID       uint
	PlanID   uint
	Features []byte
}

// ConfigurationStore is the read side of plan storage used during resolution.
// Implementations return ErrNotSubscribed from ActivePlanForUser when the user
// has no active subscription, and (nil, nil) from ActiveOverride when the
// user has no active override. Any other error is an I/O failure.
type ConfigurationStore interface {
	ActivePlanForUser(ctx context.Context, userID uint) (uint, error)
	PlanFeatures(ctx context.Context, planID uint) ([]byte, error)
	ActiveOverride(ctx context.Context, userID uint) (*OverrideRecord, error)
}

// UsageSource counts resources a user currently owns.
type UsageSource interface {
	CurrentUsage(ctx context.Context, userID uint, limitName string) (int64, error)
}

// CachedResolution is a cache entry. A nil Policy records that the user was
// not subscribed at the time of resolution.
type CachedResolution struct {
	Policy *EffectivePolicy `json:"policy,omitempty"`
}

// PolicyCache memoizes resolutions per user. Entries must never be shared
// between users.
type PolicyCache interface {
	Get(ctx context.Context, userID uint) (*CachedResolution, bool, error)
	Set(ctx context.Context, userID uint, entry *CachedResolution, ttl time.Duration) error
	Delete(ctx context.Context, userIDs ...uint) error
	// DeletePlan drops every entry resolved against planID.
	DeletePlan(ctx context.Context, planID uint) error
}
