package usecases

import (
	"context"

	"github.com/tasklane/tasklane/internal/application/plan/dto"
	"github.com/tasklane/tasklane/internal/domain/plan"
	"github.com/tasklane/tasklane/internal/shared/errors"
	"github.com/tasklane/tasklane/internal/shared/logger"
	"github.com/tasklane/tasklane/internal/shared/utils"
)

type GetPlanUseCase struct {
	planRepo plan.PlanRepository
	logger   logger.Interface
}

func NewGetPlanUseCase(planRepo plan.PlanRepository, logger logger.Interface) *GetPlanUseCase {
	return &GetPlanUseCase{planRepo: planRepo, logger: logger}
}

func (uc *GetPlanUseCase) Execute(ctx context.Context, planID uint) (*dto.PlanDTO, error) {
	p, err := loadPlan(ctx, uc.planRepo, uc.logger, planID)
	if err != nil {
		return nil, err
	}
	return dto.ToPlanDTO(p), nil
}

type ListPlansQuery struct {
	IsActive *bool
	IsFree   *bool
	Page     int
	PageSize int
}

type ListPlansResult struct {
	Plans    []*dto.PlanDTO
	Total    int64
	Page     int
	PageSize int
}

type ListPlansUseCase struct {
	planRepo plan.PlanRepository
	logger   logger.Interface
}

func NewListPlansUseCase(planRepo plan.PlanRepository, logger logger.Interface) *ListPlansUseCase {
	return &ListPlansUseCase{planRepo: planRepo, logger: logger}
}

func (uc *ListPlansUseCase) Execute(ctx context.Context, query ListPlansQuery) (*ListPlansResult, error) {
	page := utils.ValidatePagination(query.Page, query.PageSize)

	plans, total, err := uc.planRepo.List(ctx, plan.PlanFilter{
		IsActive: query.IsActive,
		IsFree:   query.IsFree,
		Page:     page.Page,
		PageSize: page.PageSize,
	})
	if err != nil {
		uc.logger.Errorw("failed to list plans", "error", err)
		return nil, errors.NewInternalError("failed to list plans")
	}

	return &ListPlansResult{
		Plans:    dto.ToPlanDTOs(plans),
		Total:    total,
		Page:     page.Page,
		PageSize: page.PageSize,
	}, nil
}
