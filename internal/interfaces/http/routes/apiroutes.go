package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/tasklane/tasklane/internal/interfaces/http/middleware"
	"github.com/tasklane/tasklane/internal/shared/constants"
)

// APIRegistrar mounts entity routes (clients, jobs, invoices) onto the /api
// group. The group only identifies the user; every route must chain at least
// one entitlement guard, which answers anonymous requests with 401. Handlers
// render through middleware.Render so FilterResponseByPlan can strip hidden
// fields.
type APIRegistrar func(api *gin.RouterGroup, guards *middleware.EntitlementMiddleware)

// APIRouteConfig holds dependencies for the entity API group.
type APIRouteConfig struct {
	AuthMiddleware *middleware.AuthMiddleware
	Guards         *middleware.EntitlementMiddleware
	Registrars     []APIRegistrar
}

// SetupAPIRoutes creates the /api group and hands it to every registrar.
// Requests are throttled by the plan's api_requests_per_minute limit.
func SetupAPIRoutes(engine *gin.Engine, cfg *APIRouteConfig) {
	if len(cfg.Registrars) == 0 {
		return
	}
	api := engine.Group("/api")
	api.Use(cfg.AuthMiddleware.OptionalAuth(), cfg.Guards.LimitRequestRate(constants.LimitAPIRequestsPerMinute))
	for _, register := range cfg.Registrars {
		register(api, cfg.Guards)
	}
}
