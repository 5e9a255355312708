package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tasklane/tasklane/internal/shared/constants"
	"github.com/tasklane/tasklane/internal/shared/logger"
	"github.com/tasklane/tasklane/internal/shared/utils"
)

// PermissionEnforcer decides whether a subject may act on a resource.
type PermissionEnforcer interface {
	Enforce(subject, resource, action string) (bool, error)
}

// AdminPermissionMiddleware guards the plan administration API with casbin
// policies. Both the session role and the user id are tried as subjects so
// that per-user grants work alongside role policies.
type AdminPermissionMiddleware struct {
	enforcer PermissionEnforcer
	logger   logger.Interface
}

func NewAdminPermissionMiddleware(enforcer PermissionEnforcer, logger logger.Interface) *AdminPermissionMiddleware {
	return &AdminPermissionMiddleware{
		enforcer: enforcer,
		logger:   logger,
	}
}

func (m *AdminPermissionMiddleware) Require(resource, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := UserIDFromContext(c)
		if !ok {
			utils.ErrorResponse(c, http.StatusUnauthorized, "authentication required")
			c.Abort()
			return
		}

		subjects := []string{strconv.FormatUint(uint64(userID), 10)}
		if role := c.GetString(constants.ContextKeyUserRole); role != "" {
			subjects = append([]string{role}, subjects...)
		}

		for _, subject := range subjects {
			allowed, err := m.enforcer.Enforce(subject, resource, action)
			if err != nil {
				m.logger.Errorw("permission check failed", "error", err, "user_id", userID, "resource", resource, "action", action)
				utils.ErrorResponse(c, http.StatusInternalServerError, "permission check failed")
				c.Abort()
				return
			}
			if allowed {
				c.Next()
				return
			}
		}

		m.logger.Warnw("permission denied", "user_id", userID, "resource", resource, "action", action)
		utils.ErrorResponse(c, http.StatusForbidden, "insufficient permissions")
		c.Abort()
	}
}
