package usecases

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/tasklane/tasklane/internal/application/plan/dto"
	"github.com/tasklane/tasklane/internal/domain/plan"
	"github.com/tasklane/tasklane/internal/shared/constants"
	"github.com/tasklane/tasklane/internal/shared/errors"
	"github.com/tasklane/tasklane/internal/shared/logger"
)

type CreatePlanCommand struct {
	Name         string
	Slug         string
	Description  string
	MonthlyPrice decimal.Decimal
	YearlyPrice  decimal.Decimal
	Currency     string
	IsFree       bool
	Features     json.RawMessage
	SortOrder    int
}

type CreatePlanUseCase struct {
	planRepo plan.PlanRepository
	logger   logger.Interface
}

func NewCreatePlanUseCase(planRepo plan.PlanRepository, logger logger.Interface) *CreatePlanUseCase {
	return &CreatePlanUseCase{
		planRepo: planRepo,
		logger:   logger,
	}
}

func (uc *CreatePlanUseCase) Execute(ctx context.Context, cmd CreatePlanCommand) (*dto.PlanDTO, error) {
	exists, err := uc.planRepo.ExistsBySlug(ctx, cmd.Slug)
	if err != nil {
		uc.logger.Errorw("failed to check slug existence", "error", err, "slug", cmd.Slug)
		return nil, errors.NewInternalError("failed to create plan")
	}
	if exists {
		return nil, errors.NewConflictError("plan slug already exists", cmd.Slug)
	}

	currency := cmd.Currency
	if currency == "" {
		currency = constants.DefaultCurrency
	}

	p, err := plan.NewPlan(cmd.Name, cmd.Slug, cmd.Description, plan.Pricing{
		Monthly:  cmd.MonthlyPrice,
		Yearly:   cmd.YearlyPrice,
		Currency: currency,
		Free:     cmd.IsFree,
	})
	if err != nil {
		return nil, errors.NewValidationError(err.Error())
	}

	if len(cmd.Features) > 0 {
		if err := p.SetFeatures(cmd.Features); err != nil {
			return nil, errors.NewValidationError("invalid features document", err.Error())
		}
	}
	if cmd.SortOrder != 0 {
		p.SetSortOrder(cmd.SortOrder)
	}

	if err := uc.planRepo.Create(ctx, p); err != nil {
		if errors.IsDuplicateError(err) {
			return nil, errors.NewConflictError("plan slug already exists", cmd.Slug)
		}
		uc.logger.Errorw("failed to persist plan", "error", err, "slug", cmd.Slug)
		return nil, errors.NewInternalError("failed to create plan")
	}

	uc.logger.Infow("plan created", "plan_id", p.ID(), "slug", p.Slug())
	return dto.ToPlanDTO(p), nil
}
