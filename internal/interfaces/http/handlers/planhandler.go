package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/tasklane/tasklane/internal/application/plan/usecases"
	"github.com/tasklane/tasklane/internal/shared/constants"
	"github.com/tasklane/tasklane/internal/shared/errors"
	"github.com/tasklane/tasklane/internal/shared/logger"
	"github.com/tasklane/tasklane/internal/shared/utils"
)

const (
	planStatusActive   = "active"
	planStatusInactive = "inactive"
)

type PlanHandler struct {
	createPlanUC     createPlanUseCase
	updatePlanUC     updatePlanUseCase
	getPlanUC        getPlanUseCase
	listPlansUC      listPlansUseCase
	getPublicPlansUC getPublicPlansUseCase
	setPlanStatusUC  setPlanStatusUseCase
	logger           logger.Interface
}

func NewPlanHandler(
	createPlanUC createPlanUseCase,
	updatePlanUC updatePlanUseCase,
	getPlanUC getPlanUseCase,
	listPlansUC listPlansUseCase,
	getPublicPlansUC getPublicPlansUseCase,
	setPlanStatusUC setPlanStatusUseCase,
	logger logger.Interface,
) *PlanHandler {
	return &PlanHandler{
		createPlanUC:     createPlanUC,
		updatePlanUC:     updatePlanUC,
		getPlanUC:        getPlanUC,
		listPlansUC:      listPlansUC,
		getPublicPlansUC: getPublicPlansUC,
		setPlanStatusUC:  setPlanStatusUC,
		logger:           logger,
	}
}

type CreatePlanRequest struct {
	Name         string          `json:"name" validate:"required,max=100"`
	Slug         string          `json:"slug" validate:"required,max=64,slug"`
	Description  string          `json:"description" validate:"max=10000"`
	MonthlyPrice decimal.Decimal `json:"monthly_price"`
	YearlyPrice  decimal.Decimal `json:"yearly_price"`
	Currency     string          `json:"currency" validate:"omitempty,len=3"`
	IsFree       bool            `json:"is_free"`
	Features     json.RawMessage `json:"features"`
	SortOrder    int             `json:"sort_order"`
}

// UpdatePlanRequest carries optional changes; omitted fields are kept.
type UpdatePlanRequest struct {
	Name         *string          `json:"name" validate:"omitempty,min=1,max=100"`
	Description  *string          `json:"description" validate:"omitempty,max=10000"`
	MonthlyPrice *decimal.Decimal `json:"monthly_price"`
	YearlyPrice  *decimal.Decimal `json:"yearly_price"`
	Currency     *string          `json:"currency" validate:"omitempty,len=3"`
	IsFree       *bool            `json:"is_free"`
	Features     json.RawMessage  `json:"features"`
	SortOrder    *int             `json:"sort_order"`
}

type UpdatePlanStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active inactive"`
}

// CreatePlan handles POST /admin/plans
// @Summary Create plan
// @Description Create a subscription plan. The features document is validated before it is stored.
// @Security Bearer
// @Tags plans
// @Accept json
// @Produce json
// @Param request body CreatePlanRequest true "Plan data"
// @Success 201 {object} utils.APIResponse{data=dto.PlanDTO} "Plan created"
// @Failure 400 {object} utils.APIResponse "Invalid request or features document"
// @Failure 401 {object} utils.APIResponse "Unauthorized"
// @Failure 403 {object} utils.APIResponse "Forbidden"
// @Failure 409 {object} utils.APIResponse "Slug already exists"
// @Router /admin/plans [post]
func (h *PlanHandler) CreatePlan(c *gin.Context) {
	var req CreatePlanRequest
	if err := bindJSON(c, &req); err != nil {
		h.logger.Warnw("invalid request body for create plan", "error", err)
		utils.ErrorResponseWithError(c, err)
		return
	}

	currency := req.Currency
	if currency == "" {
		currency = constants.DefaultCurrency
	}

	result, err := h.createPlanUC.Execute(c.Request.Context(), usecases.CreatePlanCommand{
		Name:         req.Name,
		Slug:         req.Slug,
		Description:  req.Description,
		MonthlyPrice: req.MonthlyPrice,
		YearlyPrice:  req.YearlyPrice,
		Currency:     currency,
		IsFree:       req.IsFree,
		Features:     req.Features,
		SortOrder:    req.SortOrder,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.CreatedResponse(c, result, "Plan created successfully")
}

// UpdatePlan handles PUT /admin/plans/:id
// @Summary Update plan
// @Description Update plan details, pricing or features. Cached policies of its subscribers are dropped.
// @Security Bearer
// @Tags plans
// @Accept json
// @Produce json
// @Param id path int true "Plan ID"
// @Param request body UpdatePlanRequest true "Fields to change"
// @Success 200 {object} utils.APIResponse{data=dto.PlanDTO} "Plan updated"
// @Failure 400 {object} utils.APIResponse "Invalid request or features document"
// @Failure 404 {object} utils.APIResponse "Plan not found"
// @Router /admin/plans/{id} [put]
func (h *PlanHandler) UpdatePlan(c *gin.Context) {
	planID, err := utils.ParseUintParam(c, "id", "plan")
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	var req UpdatePlanRequest
	if err := bindJSON(c, &req); err != nil {
		h.logger.Warnw("invalid request body for update plan",
			"plan_id", planID,
			"error", err)
		utils.ErrorResponseWithError(c, err)
		return
	}

	result, err := h.updatePlanUC.Execute(c.Request.Context(), usecases.UpdatePlanCommand{
		PlanID:       planID,
		Name:         req.Name,
		Description:  req.Description,
		MonthlyPrice: req.MonthlyPrice,
		YearlyPrice:  req.YearlyPrice,
		Currency:     req.Currency,
		IsFree:       req.IsFree,
		Features:     req.Features,
		SortOrder:    req.SortOrder,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Plan updated successfully", result)
}

// GetPlan handles GET /admin/plans/:id
// @Summary Get plan
// @Security Bearer
// @Tags plans
// @Produce json
// @Param id path int true "Plan ID"
// @Success 200 {object} utils.APIResponse{data=dto.PlanDTO}
// @Failure 404 {object} utils.APIResponse "Plan not found"
// @Router /admin/plans/{id} [get]
func (h *PlanHandler) GetPlan(c *gin.Context) {
	planID, err := utils.ParseUintParam(c, "id", "plan")
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	result, err := h.getPlanUC.Execute(c.Request.Context(), planID)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", result)
}

// ListPlans handles GET /admin/plans
// @Summary List plans
// @Security Bearer
// @Tags plans
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(20)
// @Param status query string false "Filter by status" Enums(active, inactive)
// @Param is_free query bool false "Filter by free flag"
// @Success 200 {object} utils.APIResponse{data=utils.ListResponse}
// @Failure 400 {object} utils.APIResponse "Invalid query parameter"
// @Router /admin/plans [get]
func (h *PlanHandler) ListPlans(c *gin.Context) {
	query, err := parseListPlansQuery(c)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	result, err := h.listPlansUC.Execute(c.Request.Context(), *query)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.ListSuccessResponse(c, result.Plans, result.Total, result.Page, result.PageSize)
}

// GetPublicPlans handles GET /plans/public
// @Summary List public plans
// @Description Active plans with sanitized HTML descriptions, for pricing pages.
// @Tags plans
// @Produce json
// @Success 200 {object} utils.APIResponse{data=[]dto.PublicPlanDTO}
// @Failure 429 {object} utils.APIResponse "Rate limit exceeded"
// @Router /plans/public [get]
func (h *PlanHandler) GetPublicPlans(c *gin.Context) {
	result, err := h.getPublicPlansUC.Execute(c.Request.Context())
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", result)
}

// UpdatePlanStatus handles PATCH /admin/plans/:id/status
// @Summary Activate or deactivate plan
// @Security Bearer
// @Tags plans
// @Accept json
// @Produce json
// @Param id path int true "Plan ID"
// @Param request body UpdatePlanStatusRequest true "New status"
// @Success 200 {object} utils.APIResponse{data=dto.PlanDTO}
// @Failure 404 {object} utils.APIResponse "Plan not found"
// @Router /admin/plans/{id}/status [patch]
func (h *PlanHandler) UpdatePlanStatus(c *gin.Context) {
	planID, err := utils.ParseUintParam(c, "id", "plan")
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	var req UpdatePlanStatusRequest
	if err := bindJSON(c, &req); err != nil {
		h.logger.Warnw("invalid request body for update plan status", "error", err)
		utils.ErrorResponseWithError(c, err)
		return
	}

	result, err := h.setPlanStatusUC.Execute(c.Request.Context(), planID, req.Status == planStatusActive)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	message := "Plan activated successfully"
	if req.Status == planStatusInactive {
		message = "Plan deactivated successfully"
	}
	utils.SuccessResponse(c, http.StatusOK, message, result)
}

func parseListPlansQuery(c *gin.Context) (*usecases.ListPlansQuery, error) {
	query := &usecases.ListPlansQuery{
		Page:     constants.DefaultPage,
		PageSize: constants.DefaultPageSize,
	}

	if pageStr := c.Query("page"); pageStr != "" {
		page, err := strconv.Atoi(pageStr)
		if err != nil || page < 1 {
			return nil, errors.NewValidationError("Invalid page parameter")
		}
		query.Page = page
	}

	if pageSizeStr := c.Query("page_size"); pageSizeStr != "" {
		pageSize, err := strconv.Atoi(pageSizeStr)
		if err != nil || pageSize < 1 {
			return nil, errors.NewValidationError("Invalid page_size parameter")
		}
		if pageSize > constants.MaxPageSize {
			pageSize = constants.MaxPageSize
		}
		query.PageSize = pageSize
	}

	if status := c.Query("status"); status != "" {
		switch status {
		case planStatusActive:
			query.IsActive = boolPtr(true)
		case planStatusInactive:
			query.IsActive = boolPtr(false)
		default:
			return nil, errors.NewValidationError("Invalid status parameter")
		}
	}

	if isFreeStr := c.Query("is_free"); isFreeStr != "" {
		isFree, err := strconv.ParseBool(isFreeStr)
		if err != nil {
			return nil, errors.NewValidationError("Invalid is_free parameter")
		}
		query.IsFree = &isFree
	}

	return query, nil
}

func boolPtr(b bool) *bool {
	return &b
}

// bindJSON decodes the body and runs struct validation. Both failures are
// reported as validation errors.
func bindJSON(c *gin.Context, req any) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return errors.NewValidationError("Invalid request body", err.Error())
	}
	return utils.ValidateStruct(req)
}
