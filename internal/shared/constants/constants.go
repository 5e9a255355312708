package constants

const (
	// Environment constants
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"

	// Default pagination
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100

	// HTTP Headers
	HeaderAuthorization = "Authorization"
	HeaderXRequestID    = "X-Request-ID"
	HeaderPlanID        = "X-Plan-Id"
	HeaderPlanOverride  = "X-Plan-Override"
	HeaderPlanFeatures  = "X-Plan-Features"
	HeaderRateLimit     = "X-RateLimit-Limit"
	HeaderRateRemaining = "X-RateLimit-Remaining"
	HeaderRetryAfter    = "Retry-After"

	// Context keys
	ContextKeyUserID       = "user_id"
	ContextKeyUserRole     = "user_role"
	ContextKeyRequestID    = "request_id"
	ContextKeyPolicy       = "entitlement_policy"
	ContextKeyFilterEntity = "entitlement_filter_entity"

	// Database table names
	TablePlans         = "plans"
	TablePlanOverrides = "plan_overrides"
	TableSubscriptions = "subscriptions"

	DefaultCurrency = "USD"

	// LimitAPIRequestsPerMinute is the plan limit that throttles /api traffic per user.
	LimitAPIRequestsPerMinute = "api_requests_per_minute"

	// Error messages
	ErrMsgInternalServerError = "Internal server error occurred"
)
