package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tasklane/tasklane/internal/infrastructure/auth"
	"github.com/tasklane/tasklane/internal/shared/constants"
	"github.com/tasklane/tasklane/internal/shared/logger"
	"github.com/tasklane/tasklane/internal/shared/utils"
)

// TokenVerifier checks a session token.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

type AuthMiddleware struct {
	verifier   TokenVerifier
	cookieName string
	logger     logger.Interface
}

func NewAuthMiddleware(verifier TokenVerifier, cookieName string, logger logger.Interface) *AuthMiddleware {
	return &AuthMiddleware{
		verifier:   verifier,
		cookieName: cookieName,
		logger:     logger,
	}
}

// RequireAuth rejects requests without a valid session token.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.authenticate(c) {
			utils.ErrorResponse(c, http.StatusUnauthorized, "authentication required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// OptionalAuth identifies the user when a valid token is present and lets
// the request through either way. Entitlement guards further down the chain
// answer unauthenticated requests themselves.
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		m.authenticate(c)
		c.Next()
	}
}

func (m *AuthMiddleware) authenticate(c *gin.Context) bool {
	token := m.extractToken(c)
	if token == "" {
		return false
	}

	claims, err := m.verifier.Verify(token)
	if err != nil {
		m.logger.Warnw("failed to verify token", "error", err)
		return false
	}

	userID, err := claims.UserID()
	if err != nil {
		m.logger.Warnw("token carries no usable user id", "error", err)
		return false
	}

	c.Set(constants.ContextKeyUserID, userID)
	c.Set(constants.ContextKeyUserRole, claims.Role.String())
	return true
}

// extractToken prefers the Authorization header and falls back to the
// session cookie.
func (m *AuthMiddleware) extractToken(c *gin.Context) string {
	if header := c.GetHeader(constants.HeaderAuthorization); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if m.cookieName == "" {
		return ""
	}
	return utils.GetTokenFromCookie(c, m.cookieName)
}

// UserIDFromContext returns the authenticated user id set by AuthMiddleware.
func UserIDFromContext(c *gin.Context) (uint, bool) {
	v, exists := c.Get(constants.ContextKeyUserID)
	if !exists {
		return 0, false
	}
	id, ok := v.(uint)
	if !ok || id == 0 {
		return 0, false
	}
	return id, true
}
