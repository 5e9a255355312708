package http

import (
	"context"
	"fmt"

	"github.com/tasklane/tasklane/internal/infrastructure/auth"
	"github.com/tasklane/tasklane/internal/infrastructure/permission"
	"github.com/tasklane/tasklane/internal/infrastructure/ratelimit"
	"github.com/tasklane/tasklane/internal/interfaces/http/handlers"
	"github.com/tasklane/tasklane/internal/interfaces/http/middleware"
)

type allHandlers struct {
	planHandler     *handlers.PlanHandler
	overrideHandler *handlers.OverrideHandler
	meHandler       *handlers.MeHandler
	healthHandler   *handlers.HealthHandler
}

// ============================================================
// Section 4: Auth, RBAC, handlers and middlewares
// ============================================================

func (c *Container) initHandlers() error {
	log := c.log
	ucs := c.ucs

	c.jwtSvc = auth.NewJWTService(c.cfg.Auth.JWT.Secret, c.cfg.Auth.JWT.AccessExpMinutes)

	enforcer, err := permission.NewEnforcer(c.db, c.cfg.Auth.RBACModelPath, log.Named("rbac"))
	if err != nil {
		return fmt.Errorf("failed to create permission enforcer: %w", err)
	}
	if err := permission.InitAdminPolicies(enforcer, log); err != nil {
		return fmt.Errorf("failed to seed admin policies: %w", err)
	}
	c.enforcer = enforcer

	c.authMiddleware = middleware.NewAuthMiddleware(c.jwtSvc, c.cfg.Auth.Cookie.AccessTokenName, log)
	c.adminPermission = middleware.NewAdminPermissionMiddleware(enforcer, log)
	c.entitlementMiddleware = middleware.NewEntitlementMiddleware(c.service, c.filter, log.Named("entitlement"))

	if c.redis != nil && c.cfg.Server.RateLimit.Enabled {
		limiter := ratelimit.NewRedisRateLimiter(c.redis)
		c.rateLimiter = limiter
		c.entitlementMiddleware.WithRateLimiter(limiter)
	}

	c.hdlrs = &allHandlers{
		planHandler: handlers.NewPlanHandler(
			ucs.createPlanUC, ucs.updatePlanUC, ucs.getPlanUC,
			ucs.listPlansUC, ucs.getPublicPlansUC, ucs.setPlanStatusUC, log,
		),
		overrideHandler: handlers.NewOverrideHandler(ucs.upsertOverrideUC, ucs.manageOverrideUC, log),
		meHandler:       handlers.NewMeHandler(c.service, log),
		healthHandler:   handlers.NewHealthHandler(c.healthChecks()),
	}
	return nil
}

func (c *Container) healthChecks() map[string]handlers.DependencyCheck {
	checks := map[string]handlers.DependencyCheck{
		"database": func(ctx context.Context) error {
			sqlDB, err := c.db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if c.redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return c.redis.Ping(ctx).Err()
		}
	}
	return checks
}
