package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tasklane/tasklane/internal/domain/entitlement"
	"github.com/tasklane/tasklane/internal/interfaces/http/middleware"
	"github.com/tasklane/tasklane/internal/shared/errors"
	"github.com/tasklane/tasklane/internal/shared/logger"
	"github.com/tasklane/tasklane/internal/shared/utils"
)

type entitlementService interface {
	GetUserPlanConfig(ctx context.Context, userID uint) (*entitlement.EffectivePolicy, error)
	CheckLimit(ctx context.Context, userID uint, limitName string) (entitlement.LimitCheck, error)
	IsFieldVisible(ctx context.Context, userID uint, entity, field string) (bool, error)
	PageAllowed(policy *entitlement.EffectivePolicy, page string, required entitlement.AccessLevel) bool
}

// MeHandler lets the signed-in user inspect their own entitlements, mostly
// so the frontend can hide controls the API would refuse anyway.
type MeHandler struct {
	service entitlementService
	logger  logger.Interface
}

func NewMeHandler(service entitlementService, logger logger.Interface) *MeHandler {
	return &MeHandler{service: service, logger: logger}
}

type MyPlanResponse struct {
	Subscribed  bool                  `json:"subscribed"`
	PlanID      uint                  `json:"plan_id,omitempty"`
	OverrideID  uint                  `json:"override_id,omitempty"`
	HasOverride bool                  `json:"has_override"`
	Policy      *entitlement.Document `json:"policy,omitempty"`
	ResolvedAt  *time.Time            `json:"resolved_at,omitempty"`
}

type MyLimitResponse struct {
	Name string `json:"name"`
	entitlement.LimitCheck
}

type MyFieldResponse struct {
	Entity  string `json:"entity"`
	Field   string `json:"field"`
	Visible bool   `json:"visible"`
}

type MyPageResponse struct {
	Page     string                  `json:"page"`
	Access   entitlement.AccessLevel `json:"access"`
	Required entitlement.AccessLevel `json:"required"`
	Allowed  bool                    `json:"allowed"`
}

type pageAccessQuery struct {
	Required string `form:"required" validate:"omitempty,access_level"`
}

// GetMyPlan handles GET /me/plan
// @Summary Get my effective policy
// @Security Bearer
// @Tags me
// @Produce json
// @Success 200 {object} utils.APIResponse{data=MyPlanResponse}
// @Failure 401 {object} utils.APIResponse "Unauthorized"
// @Router /me/plan [get]
func (h *MeHandler) GetMyPlan(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	policy, err := h.service.GetUserPlanConfig(c.Request.Context(), userID)
	if err != nil {
		h.logger.Errorw("failed to resolve plan for user", "user_id", userID, "error", err)
		utils.ErrorResponseWithError(c, err)
		return
	}

	resp := MyPlanResponse{}
	if policy != nil {
		resp = MyPlanResponse{
			Subscribed:  true,
			PlanID:      policy.PlanID,
			OverrideID:  policy.OverrideID,
			HasOverride: policy.HasOverride(),
			Policy:      &policy.Document,
			ResolvedAt:  &policy.ResolvedAt,
		}
	}

	utils.SuccessResponse(c, http.StatusOK, "", resp)
}

// GetMyLimit handles GET /me/limits/:name
// @Summary Get my usage against a limit
// @Security Bearer
// @Tags me
// @Produce json
// @Param name path string true "Limit name"
// @Success 200 {object} utils.APIResponse{data=MyLimitResponse}
// @Failure 401 {object} utils.APIResponse "Unauthorized"
// @Router /me/limits/{name} [get]
func (h *MeHandler) GetMyLimit(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	name := c.Param("name")
	check, err := h.service.CheckLimit(c.Request.Context(), userID, name)
	if err != nil {
		h.logger.Errorw("failed to check limit", "user_id", userID, "limit", name, "error", err)
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", MyLimitResponse{Name: name, LimitCheck: check})
}

// GetMyFieldVisibility handles GET /me/fields/:entity/:field
// @Summary Check my field visibility
// @Security Bearer
// @Tags me
// @Produce json
// @Param entity path string true "Entity name"
// @Param field path string true "Field name"
// @Success 200 {object} utils.APIResponse{data=MyFieldResponse}
// @Failure 401 {object} utils.APIResponse "Unauthorized"
// @Router /me/fields/{entity}/{field} [get]
func (h *MeHandler) GetMyFieldVisibility(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	entity, field := c.Param("entity"), c.Param("field")
	visible, err := h.service.IsFieldVisible(c.Request.Context(), userID, entity, field)
	if err != nil {
		h.logger.Errorw("failed to check field visibility", "user_id", userID, "entity", entity, "field", field, "error", err)
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", MyFieldResponse{Entity: entity, Field: field, Visible: visible})
}

// GetMyPageAccess handles GET /me/pages/:page?required=view|edit
// @Summary Check my page access
// @Security Bearer
// @Tags me
// @Produce json
// @Param page path string true "Page ID"
// @Param required query string false "Required level" Enums(view, edit) default(view)
// @Success 200 {object} utils.APIResponse{data=MyPageResponse}
// @Failure 400 {object} utils.APIResponse "Invalid access level"
// @Failure 401 {object} utils.APIResponse "Unauthorized"
// @Router /me/pages/{page} [get]
func (h *MeHandler) GetMyPageAccess(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	var query pageAccessQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		utils.ErrorResponseWithError(c, errors.NewValidationError("Invalid query parameters", err.Error()))
		return
	}
	if err := utils.ValidateStruct(query); err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	required := entitlement.AccessView
	if query.Required != "" {
		required = entitlement.AccessLevel(query.Required)
	}

	policy, err := h.service.GetUserPlanConfig(c.Request.Context(), userID)
	if err != nil {
		h.logger.Errorw("failed to resolve plan for user", "user_id", userID, "error", err)
		utils.ErrorResponseWithError(c, err)
		return
	}

	page := c.Param("page")
	utils.SuccessResponse(c, http.StatusOK, "", MyPageResponse{
		Page:     page,
		Access:   policy.PageAccess(page),
		Required: required,
		Allowed:  h.service.PageAllowed(policy, page, required),
	})
}

func (h *MeHandler) userID(c *gin.Context) (uint, bool) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "authentication required")
		return 0, false
	}
	return userID, true
}
