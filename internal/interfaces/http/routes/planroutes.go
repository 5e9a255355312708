package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/tasklane/tasklane/internal/infrastructure/permission"
	"github.com/tasklane/tasklane/internal/interfaces/http/handlers"
	"github.com/tasklane/tasklane/internal/interfaces/http/middleware"
)

// PlanRouteConfig holds dependencies for plan routes.
type PlanRouteConfig struct {
	PlanHandler     *handlers.PlanHandler
	AuthMiddleware  *middleware.AuthMiddleware
	AdminPermission *middleware.AdminPermissionMiddleware
	PublicRateLimit gin.HandlerFunc
	UserRateLimit   gin.HandlerFunc
}

// SetupPlanRoutes configures the public plan listing and plan administration.
func SetupPlanRoutes(engine *gin.Engine, cfg *PlanRouteConfig) {
	// Public endpoints (no authentication required)
	engine.GET("/plans/public", cfg.PublicRateLimit, cfg.PlanHandler.GetPublicPlans)

	plans := engine.Group("/admin/plans")
	plans.Use(cfg.AuthMiddleware.RequireAuth(), cfg.UserRateLimit)
	{
		read := cfg.AdminPermission.Require(permission.ResourcePlan, permission.ActionRead)
		write := cfg.AdminPermission.Require(permission.ResourcePlan, permission.ActionWrite)

		plans.GET("", read, cfg.PlanHandler.ListPlans)
		plans.GET("/:id", read, cfg.PlanHandler.GetPlan)
		plans.POST("", write, cfg.PlanHandler.CreatePlan)
		plans.PUT("/:id", write, cfg.PlanHandler.UpdatePlan)
		plans.PATCH("/:id/status", write, cfg.PlanHandler.UpdatePlanStatus)
	}
}
