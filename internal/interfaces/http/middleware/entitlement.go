package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	appentitlement "github.com/tasklane/tasklane/internal/application/entitlement"
	"github.com/tasklane/tasklane/internal/domain/entitlement"
	"github.com/tasklane/tasklane/internal/infrastructure/ratelimit"
	"github.com/tasklane/tasklane/internal/shared/constants"
	"github.com/tasklane/tasklane/internal/shared/logger"
)

const (
	errMsgAuthRequired = "authentication required"
	errMsgInternal     = "internal error"

	contextKeyFilter = "entitlement_filter"
)

// EntitlementMiddleware builds route guards over the user's effective
// policy. The policy is resolved at most once per request and kept on the
// gin context for later guards, handlers and the response filter.
type EntitlementMiddleware struct {
	service *appentitlement.Service
	filter  *appentitlement.ResponseFilter
	limiter ratelimit.RateLimiter
	logger  logger.Interface
}

func NewEntitlementMiddleware(
	service *appentitlement.Service,
	filter *appentitlement.ResponseFilter,
	logger logger.Interface,
) *EntitlementMiddleware {
	return &EntitlementMiddleware{
		service: service,
		filter:  filter,
		logger:  logger,
	}
}

// RequireFeature denies unless the feature is enabled for the user.
func (m *EntitlementMiddleware) RequireFeature(feature string) gin.HandlerFunc {
	return func(c *gin.Context) {
		policy, ok := m.policy(c)
		if !ok {
			return
		}
		if !m.service.FeatureAllowed(policy, feature) {
			m.deny(c, &entitlement.DeniedError{
				Kind:          entitlement.DenialFeature,
				Key:           feature,
				NotSubscribed: policy == nil,
			})
			return
		}
		c.Next()
	}
}

// RequirePageAccess denies unless the page grants at least the required
// access level.
func (m *EntitlementMiddleware) RequirePageAccess(page string, required entitlement.AccessLevel) gin.HandlerFunc {
	return func(c *gin.Context) {
		policy, ok := m.policy(c)
		if !ok {
			return
		}
		if !m.service.PageAllowed(policy, page, required) {
			m.deny(c, &entitlement.DeniedError{
				Kind:          entitlement.DenialPage,
				Key:           page,
				Required:      required,
				NotSubscribed: policy == nil,
			})
			return
		}
		c.Next()
	}
}

// RequirePermission denies unless the permission is explicitly granted.
func (m *EntitlementMiddleware) RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		policy, ok := m.policy(c)
		if !ok {
			return
		}
		if !policy.HasPermission(permission) {
			m.deny(c, &entitlement.DeniedError{
				Kind:          entitlement.DenialPermission,
				Key:           permission,
				NotSubscribed: policy == nil,
			})
			return
		}
		c.Next()
	}
}

// CheckFeatureLimit denies once the user's usage has reached the limit. It
// only compares; creating the resource is what moves the count.
func (m *EntitlementMiddleware) CheckFeatureLimit(limitName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		policy, ok := m.policy(c)
		if !ok {
			return
		}
		check, err := m.service.CheckPolicyLimit(c.Request.Context(), policy, limitName)
		if err != nil {
			m.internalError(c, err)
			return
		}
		if !check.Allowed {
			m.deny(c, &entitlement.DeniedError{
				Kind:          entitlement.DenialLimit,
				Key:           limitName,
				Current:       check.Current,
				Limit:         check.Limit,
				NotSubscribed: policy == nil,
			})
			return
		}
		c.Next()
	}
}

// FilterResponseByPlan marks the request so that Render strips the fields of
// entity the user may not see. It never denies an authenticated request.
func (m *EntitlementMiddleware) FilterResponseByPlan(entity string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := m.policy(c); !ok {
			return
		}
		c.Set(constants.ContextKeyFilterEntity, entity)
		c.Set(contextKeyFilter, m.filter)
		c.Next()
	}
}

// policy resolves the request's policy once. A nil policy with ok=true means
// the user is authenticated but not subscribed. On false the response has
// already been written.
func (m *EntitlementMiddleware) policy(c *gin.Context) (*entitlement.EffectivePolicy, bool) {
	userID, authenticated := UserIDFromContext(c)
	if !authenticated {
		appentitlement.RecordDenial("unauthenticated")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errMsgAuthRequired})
		return nil, false
	}

	if cached, exists := c.Get(constants.ContextKeyPolicy); exists {
		policy, _ := cached.(*entitlement.EffectivePolicy)
		return policy, true
	}

	policy, err := m.service.Resolve(c.Request.Context(), userID)
	if err != nil {
		m.internalError(c, err)
		return nil, false
	}

	c.Set(constants.ContextKeyPolicy, policy)
	setPolicyHeaders(c, policy)
	return policy, true
}

func setPolicyHeaders(c *gin.Context, policy *entitlement.EffectivePolicy) {
	if policy == nil {
		return
	}
	c.Header(constants.HeaderPlanID, strconv.FormatUint(uint64(policy.PlanID), 10))
	if policy.HasOverride() {
		c.Header(constants.HeaderPlanOverride, strconv.FormatUint(uint64(policy.OverrideID), 10))
	}
	if snapshot, err := json.Marshal(policy.FeatureSnapshot()); err == nil {
		c.Header(constants.HeaderPlanFeatures, string(snapshot))
	}
}

func (m *EntitlementMiddleware) deny(c *gin.Context, denied *entitlement.DeniedError) {
	appentitlement.RecordDenial(string(denied.Kind))
	userID, _ := UserIDFromContext(c)
	m.logger.Infow("entitlement denied",
		"user_id", userID,
		"kind", denied.Kind,
		"key", denied.Key,
		"not_subscribed", denied.NotSubscribed,
		"path", c.FullPath(),
	)
	c.AbortWithStatusJSON(http.StatusForbidden, DenialPayload(denied))
}

func (m *EntitlementMiddleware) internalError(c *gin.Context, err error) {
	appentitlement.RecordDenial("internal")
	userID, _ := UserIDFromContext(c)
	m.logger.Errorw("entitlement check failed",
		"user_id", userID,
		"path", c.FullPath(),
		"store_unavailable", errors.Is(err, entitlement.ErrStoreUnavailable),
		"error", err,
	)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": errMsgInternal})
}

// DenialPayload is the stable denial body: the error text, the denied key
// under its guard's name and the upgrade hint. Limit denials report the
// limit name under "feature" along with current usage and the limit.
func DenialPayload(denied *entitlement.DeniedError) gin.H {
	payload := gin.H{
		"error":   denied.Error(),
		"upgrade": true,
	}
	switch denied.Kind {
	case entitlement.DenialLimit:
		payload["feature"] = denied.Key
		payload["current"] = denied.Current
		payload["limit"] = denied.Limit
	default:
		payload[string(denied.Kind)] = denied.Key
	}
	return payload
}

// PolicyFromContext returns the policy resolved by an entitlement guard
// earlier in the chain.
func PolicyFromContext(c *gin.Context) (*entitlement.EffectivePolicy, bool) {
	v, exists := c.Get(constants.ContextKeyPolicy)
	if !exists {
		return nil, false
	}
	policy, _ := v.(*entitlement.EffectivePolicy)
	return policy, true
}
