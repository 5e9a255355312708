package middleware

import (
	"github.com/gin-gonic/gin"

	appentitlement "github.com/tasklane/tasklane/internal/application/entitlement"
	"github.com/tasklane/tasklane/internal/shared/constants"
	"github.com/tasklane/tasklane/internal/shared/utils"
)

// Render writes a success response, first passing payload through the
// response filter when FilterResponseByPlan is on the route.
func Render(c *gin.Context, status int, payload any) {
	utils.SuccessResponse(c, status, "", FilterPayload(c, payload))
}

// FilterPayload applies the route's field visibility filter to payload, or
// returns it unchanged when the route is not filtered.
func FilterPayload(c *gin.Context, payload any) any {
	entity := c.GetString(constants.ContextKeyFilterEntity)
	if entity == "" {
		return payload
	}
	v, exists := c.Get(contextKeyFilter)
	if !exists {
		return payload
	}
	filter, ok := v.(*appentitlement.ResponseFilter)
	if !ok || filter == nil {
		return payload
	}
	policy, _ := PolicyFromContext(c)
	return filter.Apply(policy, entity, payload)
}
