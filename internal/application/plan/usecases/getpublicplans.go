package usecases

import (
	"context"

	"github.com/tasklane/tasklane/internal/application/plan/dto"
	"github.com/tasklane/tasklane/internal/domain/plan"
	"github.com/tasklane/tasklane/internal/shared/errors"
	"github.com/tasklane/tasklane/internal/shared/logger"
	"github.com/tasklane/tasklane/internal/shared/services/markdown"
)

type GetPublicPlansUseCase struct {
	planRepo plan.PlanRepository
	renderer markdown.Renderer
	logger   logger.Interface
}

func NewGetPublicPlansUseCase(planRepo plan.PlanRepository, renderer markdown.Renderer, logger logger.Interface) *GetPublicPlansUseCase {
	return &GetPublicPlansUseCase{
		planRepo: planRepo,
		renderer: renderer,
		logger:   logger,
	}
}

func (uc *GetPublicPlansUseCase) Execute(ctx context.Context) ([]*dto.PublicPlanDTO, error) {
	plans, err := uc.planRepo.GetActive(ctx)
	if err != nil {
		uc.logger.Errorw("failed to get active plans", "error", err)
		return nil, errors.NewInternalError("failed to get plans")
	}

	result := make([]*dto.PublicPlanDTO, 0, len(plans))
	for _, p := range plans {
		html, err := uc.renderer.Render(p.Description())
		if err != nil {
			// Graceful degradation: the plan is still listed without a description
			uc.logger.Warnw("failed to render plan description", "plan_id", p.ID(), "error", err)
			html = ""
		}
		full := dto.ToPlanDTO(p)
		result = append(result, &dto.PublicPlanDTO{
			ID:              full.ID,
			Name:            full.Name,
			Slug:            full.Slug,
			DescriptionHTML: html,
			MonthlyPrice:    full.MonthlyPrice,
			YearlyPrice:     full.YearlyPrice,
			Currency:        full.Currency,
			IsFree:          full.IsFree,
			Features:        full.Features,
		})
	}
	return result, nil
}
