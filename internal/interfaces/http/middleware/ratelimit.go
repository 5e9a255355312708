package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	appentitlement "github.com/tasklane/tasklane/internal/application/entitlement"
	"github.com/tasklane/tasklane/internal/domain/entitlement"
	"github.com/tasklane/tasklane/internal/infrastructure/ratelimit"
	"github.com/tasklane/tasklane/internal/shared/constants"
	"github.com/tasklane/tasklane/internal/shared/logger"
	"github.com/tasklane/tasklane/internal/shared/utils"
)

const errMsgRateLimited = "rate limit exceeded"

// RateLimit throttles requests with a fixed policy, keyed by user id when the
// request is authenticated and by client IP otherwise. scope separates the
// counters of different route groups. Limiter errors let the request through.
func RateLimit(limiter ratelimit.RateLimiter, scope string, policy ratelimit.Policy, log logger.Interface) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || policy.IsZero() {
			c.Next()
			return
		}

		key := scope + ":ip:" + c.ClientIP()
		if userID, ok := UserIDFromContext(c); ok {
			key = scope + ":user:" + strconv.FormatUint(uint64(userID), 10)
		}

		decision, err := limiter.Allow(c.Request.Context(), key, policy)
		if err != nil {
			log.Warnw("rate limiter unavailable", "key", key, "error", err)
			c.Next()
			return
		}

		setRateHeaders(c, decision)
		if !decision.Allowed {
			log.Warnw("rate limit exceeded", "key", key, "limit", decision.Limit)
			utils.ErrorResponse(c, http.StatusTooManyRequests, errMsgRateLimited)
			c.Abort()
			return
		}
		c.Next()
	}
}

// WithRateLimiter enables LimitRequestRate.
func (m *EntitlementMiddleware) WithRateLimiter(limiter ratelimit.RateLimiter) *EntitlementMiddleware {
	m.limiter = limiter
	return m
}

// LimitRequestRate throttles each user to the plan limit limitName, read as
// requests per minute. Anonymous requests, users without a plan and unset or
// unlimited limits pass through. Limiter errors let the request through.
func (m *EntitlementMiddleware) LimitRequestRate(limitName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, authenticated := UserIDFromContext(c)
		if m.limiter == nil || !authenticated {
			c.Next()
			return
		}

		policy, ok := m.policy(c)
		if !ok {
			return
		}
		limit, set := policy.Limit(limitName)
		if policy == nil || !set || limit == entitlement.UnlimitedValue {
			c.Next()
			return
		}

		// A zero limit leaves no quota; the limiter treats zero windows as off.
		if limit <= 0 {
			setRateHeaders(c, ratelimit.Decision{Allowed: false, RetryAfter: time.Minute})
			m.denyRate(c, userID, policy.PlanID, limitName, limit)
			return
		}

		key := "plan:user:" + strconv.FormatUint(uint64(userID), 10)
		decision, err := m.limiter.Allow(c.Request.Context(), key, ratelimit.Policy{RequestsPerMinute: int(limit)})
		if err != nil {
			m.logger.Warnw("rate limiter unavailable", "user_id", userID, "error", err)
			c.Next()
			return
		}

		setRateHeaders(c, decision)
		if !decision.Allowed {
			m.denyRate(c, userID, policy.PlanID, limitName, limit)
			return
		}
		c.Next()
	}
}

func (m *EntitlementMiddleware) denyRate(c *gin.Context, userID, planID uint, limitName string, limit int64) {
	appentitlement.RecordDenial("rate")
	m.logger.Infow("plan rate limit exceeded",
		"user_id", userID,
		"plan_id", planID,
		"limit", limit,
	)
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"error":   errMsgRateLimited,
		"feature": limitName,
		"limit":   limit,
		"upgrade": true,
	})
}

func setRateHeaders(c *gin.Context, decision ratelimit.Decision) {
	c.Header(constants.HeaderRateLimit, strconv.Itoa(decision.Limit))
	c.Header(constants.HeaderRateRemaining, strconv.Itoa(decision.Remaining))
	if !decision.Allowed {
		c.Header(constants.HeaderRetryAfter, strconv.Itoa(int(decision.RetryAfter.Seconds())))
	}
}
