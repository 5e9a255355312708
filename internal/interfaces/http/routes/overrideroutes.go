package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/tasklane/tasklane/internal/infrastructure/permission"
	"github.com/tasklane/tasklane/internal/interfaces/http/handlers"
	"github.com/tasklane/tasklane/internal/interfaces/http/middleware"
)

// OverrideRouteConfig holds dependencies for per-user override routes.
type OverrideRouteConfig struct {
	OverrideHandler *handlers.OverrideHandler
	AuthMiddleware  *middleware.AuthMiddleware
	AdminPermission *middleware.AdminPermissionMiddleware
	UserRateLimit   gin.HandlerFunc
}

// SetupOverrideRoutes configures /admin/users/:user_id/override.
func SetupOverrideRoutes(engine *gin.Engine, cfg *OverrideRouteConfig) {
	override := engine.Group("/admin/users/:user_id/override")
	override.Use(cfg.AuthMiddleware.RequireAuth(), cfg.UserRateLimit)
	{
		read := cfg.AdminPermission.Require(permission.ResourcePlanOverride, permission.ActionRead)
		write := cfg.AdminPermission.Require(permission.ResourcePlanOverride, permission.ActionWrite)

		override.GET("", read, cfg.OverrideHandler.GetOverride)
		override.PUT("", write, cfg.OverrideHandler.UpsertOverride)
		override.PATCH("/status", write, cfg.OverrideHandler.UpdateOverrideStatus)
		override.DELETE("", write, cfg.OverrideHandler.DeleteOverride)
	}
}
