package entitlement

import (
	"context"
	"errors"
	"slices"

	"github.com/tasklane/tasklane/internal/domain/entitlement"
	"github.com/tasklane/tasklane/internal/shared/logger"
)

// PublicAllowList names pages and features that stay reachable for users
// without an active subscription.
type PublicAllowList struct {
	Pages    []string
	Features []string
}

func (a PublicAllowList) AllowsPage(page string) bool {
	return slices.Contains(a.Pages, page)
}

func (a PublicAllowList) AllowsFeature(feature string) bool {
	return slices.Contains(a.Features, feature)
}

// Service is the entry point for handlers that need entitlement checks
// outside the guard chain.
type Service struct {
	resolver *Resolver
	usage    entitlement.UsageSource
	public   PublicAllowList
	logger   logger.Interface
}

func NewService(
	resolver *Resolver,
	usage entitlement.UsageSource,
	public PublicAllowList,
	logger logger.Interface,
) *Service {
	return &Service{
		resolver: resolver,
		usage:    usage,
		public:   public,
		logger:   logger,
	}
}

func (s *Service) Resolver() *Resolver {
	return s.resolver
}

func (s *Service) PublicAllowList() PublicAllowList {
	return s.public
}

// Resolve returns the user's policy, or nil when the user is not subscribed.
// Only unauthenticated and store errors are returned.
func (s *Service) Resolve(ctx context.Context, userID uint) (*entitlement.EffectivePolicy, error) {
	policy, err := s.resolver.Resolve(ctx, userID)
	if errors.Is(err, entitlement.ErrNotSubscribed) {
		return nil, nil
	}
	return policy, err
}

// GetUserPlanConfig returns the effective policy, or (nil, nil) when the
// user has no active subscription.
func (s *Service) GetUserPlanConfig(ctx context.Context, userID uint) (*entitlement.EffectivePolicy, error) {
	return s.Resolve(ctx, userID)
}

// IsFieldVisible reports field visibility for a user. Unsubscribed users see
// every field outside the field catalogue, matching what ResponseFilter keeps.
func (s *Service) IsFieldVisible(ctx context.Context, userID uint, entity, field string) (bool, error) {
	policy, err := s.Resolve(ctx, userID)
	if err != nil {
		return false, err
	}
	if policy == nil {
		return !s.resolver.cfg.Catalog.Governs(entity, field), nil
	}
	return policy.IsFieldVisible(entity, field), nil
}

// CheckLimit compares the user's current usage against the named limit.
// Usage is only counted when the policy actually sets a finite limit.
func (s *Service) CheckLimit(ctx context.Context, userID uint, limitName string) (entitlement.LimitCheck, error) {
	policy, err := s.Resolve(ctx, userID)
	if err != nil {
		return entitlement.LimitCheck{}, err
	}
	return s.CheckPolicyLimit(ctx, policy, limitName)
}

// CheckPolicyLimit is CheckLimit against an already resolved policy.
func (s *Service) CheckPolicyLimit(ctx context.Context, policy *entitlement.EffectivePolicy, limitName string) (entitlement.LimitCheck, error) {
	if policy == nil {
		return policy.CheckLimit(limitName, 0), nil
	}
	if limit, ok := policy.Limit(limitName); !ok || limit == entitlement.UnlimitedValue {
		return policy.CheckLimit(limitName, 0), nil
	}

	current, err := s.usage.CurrentUsage(ctx, policy.UserID, limitName)
	if err != nil {
		s.logger.Errorw("failed to count usage",
			"user_id", policy.UserID,
			"limit", limitName,
			"error", err,
		)
		if errors.Is(err, entitlement.ErrStoreUnavailable) {
			return entitlement.LimitCheck{}, err
		}
		return entitlement.LimitCheck{}, entitlement.NewStoreError("count usage", err)
	}
	return policy.CheckLimit(limitName, current), nil
}

// FeatureAllowed applies the public allow-list on top of the policy.
func (s *Service) FeatureAllowed(policy *entitlement.EffectivePolicy, feature string) bool {
	if policy == nil {
		return s.public.AllowsFeature(feature)
	}
	return policy.IsFeatureEnabled(feature)
}

// PageAllowed applies the public allow-list on top of the policy. Public
// pages are view-only for unsubscribed users.
func (s *Service) PageAllowed(policy *entitlement.EffectivePolicy, page string, required entitlement.AccessLevel) bool {
	if policy == nil {
		return s.public.AllowsPage(page) && entitlement.AccessView.Satisfies(required)
	}
	return policy.PageAccess(page).Satisfies(required)
}
