package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/tasklane/tasklane/internal/interfaces/http/handlers"
	"github.com/tasklane/tasklane/internal/interfaces/http/middleware"
)

// MeRouteConfig holds dependencies for the current user's entitlement routes.
type MeRouteConfig struct {
	MeHandler      *handlers.MeHandler
	AuthMiddleware *middleware.AuthMiddleware
	UserRateLimit  gin.HandlerFunc
}

// SetupMeRoutes configures /me endpoints.
func SetupMeRoutes(engine *gin.Engine, cfg *MeRouteConfig) {
	me := engine.Group("/me")
	me.Use(cfg.AuthMiddleware.RequireAuth(), cfg.UserRateLimit)
	{
		me.GET("/plan", cfg.MeHandler.GetMyPlan)
		me.GET("/limits/:name", cfg.MeHandler.GetMyLimit)
		me.GET("/fields/:entity/:field", cfg.MeHandler.GetMyFieldVisibility)
		me.GET("/pages/:page", cfg.MeHandler.GetMyPageAccess)
	}
}
