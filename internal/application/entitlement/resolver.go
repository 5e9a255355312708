// Package entitlement resolves effective plan policies for users and
// answers entitlement questions for route guards and handlers.
package entitlement

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tasklane/tasklane/internal/domain/entitlement"
	"github.com/tasklane/tasklane/internal/shared/logger"
)

// ResolverConfig tunes policy resolution.
type ResolverConfig struct {
	Catalog     entitlement.FieldCatalog
	TTL         time.Duration
	NegativeTTL time.Duration
}

// Resolver merges a user's plan with their active override into an
// effective policy. Results are memoized in an optional PolicyCache.
type Resolver struct {
	store  entitlement.ConfigurationStore
	cache  entitlement.PolicyCache
	cfg    ResolverConfig
	group  singleflight.Group
	logger logger.Interface
	now    func() time.Time
}

// NewResolver creates a resolver. cache may be nil to disable memoization.
func NewResolver(
	store entitlement.ConfigurationStore,
	cache entitlement.PolicyCache,
	cfg ResolverConfig,
	logger logger.Interface,
) *Resolver {
	return &Resolver{
		store:  store,
		cache:  cache,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Resolve returns the effective policy for userID. It returns
// entitlement.ErrNotSubscribed when the user has no active subscription and
// an error matching entitlement.ErrStoreUnavailable when storage fails.
// Malformed features documents never fail resolution.
func (r *Resolver) Resolve(ctx context.Context, userID uint) (*entitlement.EffectivePolicy, error) {
	if userID == 0 {
		return nil, entitlement.ErrUnauthenticated
	}

	if cached, ok := r.lookupCache(ctx, userID); ok {
		if cached.Policy == nil {
			return nil, entitlement.ErrNotSubscribed
		}
		return cached.Policy, nil
	}

	v, err, _ := r.group.Do(strconv.FormatUint(uint64(userID), 10), func() (interface{}, error) {
		// Another caller may have filled the cache while we waited.
		if cached, ok := r.lookupCache(ctx, userID); ok {
			return cached, nil
		}

		start := time.Now()
		policy, err := r.resolve(ctx, userID)
		resolutionLatency.Observe(time.Since(start).Seconds())

		switch {
		case errors.Is(err, entitlement.ErrNotSubscribed):
			resolutionsTotal.WithLabelValues("not_subscribed").Inc()
			entry := &entitlement.CachedResolution{}
			r.storeCache(ctx, userID, entry, r.cfg.NegativeTTL)
			return entry, nil
		case err != nil:
			resolutionsTotal.WithLabelValues("store_error").Inc()
			return nil, err
		}

		resolutionsTotal.WithLabelValues("resolved").Inc()
		entry := &entitlement.CachedResolution{Policy: policy}
		r.storeCache(ctx, userID, entry, r.cfg.TTL)
		return entry, nil
	})
	if err != nil {
		r.logger.Errorw("failed to resolve entitlement policy", "user_id", userID, "error", err)
		return nil, err
	}

	entry := v.(*entitlement.CachedResolution)
	if entry.Policy == nil {
		return nil, entitlement.ErrNotSubscribed
	}
	return entry.Policy, nil
}

func (r *Resolver) resolve(ctx context.Context, userID uint) (*entitlement.EffectivePolicy, error) {
	planID, err := r.store.ActivePlanForUser(ctx, userID)
	if err != nil {
		if errors.Is(err, entitlement.ErrNotSubscribed) {
			return nil, err
		}
		return nil, asStoreError("get active plan", err)
	}

	override, err := r.store.ActiveOverride(ctx, userID)
	if err != nil {
		return nil, asStoreError("get active override", err)
	}

	// An override carries its own base plan reference, which takes the place
	// of the subscribed plan while the override is active.
	var overrideID uint
	if override != nil {
		overrideID = override.ID
		if override.PlanID != 0 {
			planID = override.PlanID
		}
	}

	raw, err := r.store.PlanFeatures(ctx, planID)
	if err != nil {
		return nil, asStoreError("get plan features", err)
	}
	base, err := entitlement.ParseDocument(raw)
	if err != nil {
		malformedDocumentsTotal.WithLabelValues("plan").Inc()
		r.logger.Warnw("plan features document is malformed, using what parsed",
			"plan_id", planID,
			"user_id", userID,
			"error", err,
		)
	}

	var overrideDoc entitlement.Document
	if override != nil {
		overrideDoc, err = entitlement.ParseDocument(override.Features)
		if err != nil {
			malformedDocumentsTotal.WithLabelValues("override").Inc()
			r.logger.Warnw("override features document is malformed, using what parsed",
				"override_id", override.ID,
				"user_id", userID,
				"error", err,
			)
		}
	}

	policy := entitlement.NewEffectivePolicy(userID, planID, overrideID, base, overrideDoc, r.cfg.Catalog, r.now())

	r.logger.Debugw("entitlement policy resolved",
		"user_id", userID,
		"plan_id", planID,
		"override_id", overrideID,
	)
	return policy, nil
}

func asStoreError(op string, err error) error {
	if errors.Is(err, entitlement.ErrStoreUnavailable) {
		return err
	}
	return entitlement.NewStoreError(op, err)
}

func (r *Resolver) lookupCache(ctx context.Context, userID uint) (*entitlement.CachedResolution, bool) {
	if r.cache == nil {
		return nil, false
	}
	entry, ok, err := r.cache.Get(ctx, userID)
	if err != nil {
		cacheLookupsTotal.WithLabelValues("error").Inc()
		r.logger.Warnw("entitlement cache lookup failed", "user_id", userID, "error", err)
		return nil, false
	}
	if !ok || entry == nil {
		cacheLookupsTotal.WithLabelValues("miss").Inc()
		return nil, false
	}
	cacheLookupsTotal.WithLabelValues("hit").Inc()
	return entry, true
}

func (r *Resolver) storeCache(ctx context.Context, userID uint, entry *entitlement.CachedResolution, ttl time.Duration) {
	if r.cache == nil || ttl <= 0 {
		return
	}
	if err := r.cache.Set(ctx, userID, entry, ttl); err != nil {
		r.logger.Warnw("failed to cache entitlement policy", "user_id", userID, "error", err)
	}
}

// InvalidateUser drops the cached resolution of the given users.
func (r *Resolver) InvalidateUser(ctx context.Context, userIDs ...uint) error {
	if r.cache == nil || len(userIDs) == 0 {
		return nil
	}
	if err := r.cache.Delete(ctx, userIDs...); err != nil {
		return fmt.Errorf("failed to invalidate entitlement cache: %w", err)
	}
	r.logger.Debugw("entitlement cache invalidated", "user_ids", userIDs)
	return nil
}

// InvalidatePlan drops every cached resolution based on planID.
func (r *Resolver) InvalidatePlan(ctx context.Context, planID uint) error {
	if r.cache == nil {
		return nil
	}
	if err := r.cache.DeletePlan(ctx, planID); err != nil {
		return fmt.Errorf("failed to invalidate entitlement cache for plan %d: %w", planID, err)
	}
	r.logger.Debugw("entitlement cache invalidated for plan", "plan_id", planID)
	return nil
}
