package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tasklane/tasklane/internal/application/plan/usecases"
	"github.com/tasklane/tasklane/internal/shared/logger"
	"github.com/tasklane/tasklane/internal/shared/utils"
)

// OverrideHandler manages per-user plan overrides for administrators.
type OverrideHandler struct {
	upsertUC upsertOverrideUseCase
	manageUC manageOverrideUseCase
	logger   logger.Interface
}

func NewOverrideHandler(upsertUC upsertOverrideUseCase, manageUC manageOverrideUseCase, logger logger.Interface) *OverrideHandler {
	return &OverrideHandler{
		upsertUC: upsertUC,
		manageUC: manageUC,
		logger:   logger,
	}
}

// UpsertOverrideRequest replaces a user's override. PlanID may be omitted
// when the user has an active subscription.
type UpsertOverrideRequest struct {
	PlanID   *uint           `json:"plan_id" validate:"omitempty,gt=0"`
	Features json.RawMessage `json:"features" validate:"required"`
	Note     *string         `json:"note" validate:"omitempty,max=500"`
	IsActive *bool           `json:"is_active"`
}

type UpdateOverrideStatusRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

// GetOverride handles GET /admin/users/:user_id/override
// @Summary Get user override
// @Security Bearer
// @Tags overrides
// @Produce json
// @Param user_id path int true "User ID"
// @Success 200 {object} utils.APIResponse{data=dto.OverrideDTO}
// @Failure 404 {object} utils.APIResponse "Override not found"
// @Router /admin/users/{user_id}/override [get]
func (h *OverrideHandler) GetOverride(c *gin.Context) {
	userID, err := utils.ParseUintParam(c, "user_id", "user")
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	result, err := h.manageUC.Get(c.Request.Context(), userID)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", result)
}

// UpsertOverride handles PUT /admin/users/:user_id/override
// @Summary Create or replace user override
// @Description Layer a features document over the user's plan. plan_id defaults to the user's subscribed plan.
// @Security Bearer
// @Tags overrides
// @Accept json
// @Produce json
// @Param user_id path int true "User ID"
// @Param request body UpsertOverrideRequest true "Override data"
// @Success 200 {object} utils.APIResponse{data=dto.OverrideDTO}
// @Failure 400 {object} utils.APIResponse "Invalid request or features document"
// @Failure 404 {object} utils.APIResponse "Plan not found"
// @Router /admin/users/{user_id}/override [put]
func (h *OverrideHandler) UpsertOverride(c *gin.Context) {
	userID, err := utils.ParseUintParam(c, "user_id", "user")
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	var req UpsertOverrideRequest
	if err := bindJSON(c, &req); err != nil {
		h.logger.Warnw("invalid request body for upsert override", "user_id", userID, "error", err)
		utils.ErrorResponseWithError(c, err)
		return
	}

	result, err := h.upsertUC.Execute(c.Request.Context(), usecases.UpsertOverrideCommand{
		UserID:   userID,
		PlanID:   req.PlanID,
		Features: req.Features,
		Note:     req.Note,
		IsActive: req.IsActive,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Override saved successfully", result)
}

// UpdateOverrideStatus handles PATCH /admin/users/:user_id/override/status
// @Summary Activate or deactivate user override
// @Security Bearer
// @Tags overrides
// @Accept json
// @Produce json
// @Param user_id path int true "User ID"
// @Param request body UpdateOverrideStatusRequest true "New status"
// @Success 200 {object} utils.APIResponse{data=dto.OverrideDTO}
// @Failure 404 {object} utils.APIResponse "Override not found"
// @Router /admin/users/{user_id}/override/status [patch]
func (h *OverrideHandler) UpdateOverrideStatus(c *gin.Context) {
	userID, err := utils.ParseUintParam(c, "user_id", "user")
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	var req UpdateOverrideStatusRequest
	if err := bindJSON(c, &req); err != nil {
		h.logger.Warnw("invalid request body for override status", "user_id", userID, "error", err)
		utils.ErrorResponseWithError(c, err)
		return
	}

	result, err := h.manageUC.SetStatus(c.Request.Context(), userID, *req.IsActive)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", result)
}

// DeleteOverride handles DELETE /admin/users/:user_id/override
// @Summary Delete user override
// @Security Bearer
// @Tags overrides
// @Param user_id path int true "User ID"
// @Success 204 "Override deleted"
// @Failure 404 {object} utils.APIResponse "Override not found"
// @Router /admin/users/{user_id}/override [delete]
func (h *OverrideHandler) DeleteOverride(c *gin.Context) {
	userID, err := utils.ParseUintParam(c, "user_id", "user")
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	if err := h.manageUC.Delete(c.Request.Context(), userID); err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.NoContentResponse(c)
}
