package http

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/tasklane/tasklane/docs"
	"github.com/tasklane/tasklane/internal/infrastructure/ratelimit"
	"github.com/tasklane/tasklane/internal/interfaces/http/middleware"
	"github.com/tasklane/tasklane/internal/interfaces/http/routes"
)

// SetupRoutes configures all HTTP routes
func (c *Container) SetupRoutes() {
	c.engine.Use(middleware.RequestID())
	c.engine.Use(middleware.CustomLogger(c.log))
	c.engine.Use(middleware.CustomRecovery(c.log))
	c.engine.Use(middleware.ErrorHandler(c.log))
	c.engine.Use(middleware.SecurityHeaders())
	c.engine.Use(middleware.CORS(c.cfg.Server.AllowedOrigins))
	c.engine.Use(middleware.Metrics())

	c.engine.GET("/health", c.hdlrs.healthHandler.HealthCheck)
	c.engine.GET("/metrics", middleware.MetricsHandler())
	c.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	limits := c.cfg.Server.RateLimit
	publicRateLimit := middleware.RateLimit(c.rateLimiter, "public",
		ratelimit.Policy{RequestsPerMinute: limits.PublicPerMinute}, c.log)
	userRateLimit := middleware.RateLimit(c.rateLimiter, "user",
		ratelimit.Policy{RequestsPerMinute: limits.UserPerMinute, RequestsPerHour: limits.UserPerHour}, c.log)

	routes.SetupPlanRoutes(c.engine, &routes.PlanRouteConfig{
		PlanHandler:     c.hdlrs.planHandler,
		AuthMiddleware:  c.authMiddleware,
		AdminPermission: c.adminPermission,
		PublicRateLimit: publicRateLimit,
		UserRateLimit:   userRateLimit,
	})
	routes.SetupOverrideRoutes(c.engine, &routes.OverrideRouteConfig{
		OverrideHandler: c.hdlrs.overrideHandler,
		AuthMiddleware:  c.authMiddleware,
		AdminPermission: c.adminPermission,
		UserRateLimit:   userRateLimit,
	})
	routes.SetupMeRoutes(c.engine, &routes.MeRouteConfig{
		MeHandler:      c.hdlrs.meHandler,
		AuthMiddleware: c.authMiddleware,
		UserRateLimit:  userRateLimit,
	})
	routes.SetupAPIRoutes(c.engine, &routes.APIRouteConfig{
		AuthMiddleware: c.authMiddleware,
		Guards:         c.entitlementMiddleware,
		Registrars:     c.apiRegistrars,
	})
}

// GetEngine returns the Gin engine
func (c *Container) GetEngine() *gin.Engine {
	return c.engine
}

// Shutdown stops background loops. The HTTP server is shut down by the caller.
func (c *Container) Shutdown() {
	c.stopBackground()
}
