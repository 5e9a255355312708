package usecases

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/shopspring/decimal"

	"github.com/tasklane/tasklane/internal/application/plan/dto"
	"github.com/tasklane/tasklane/internal/domain/plan"
	"github.com/tasklane/tasklane/internal/shared/errors"
	"github.com/tasklane/tasklane/internal/shared/logger"
)

// UpdatePlanCommand carries optional changes; nil fields are left as is.
type UpdatePlanCommand struct {
	PlanID       uint
	Name         *string
	Description  *string
	MonthlyPrice *decimal.Decimal
	YearlyPrice  *decimal.Decimal
	Currency     *string
	IsFree       *bool
	Features     json.RawMessage
	SortOrder    *int
}

type UpdatePlanUseCase struct {
	planRepo     plan.PlanRepository
	overrideRepo plan.PlanOverrideRepository
	notifier     *ChangeNotifier
	logger       logger.Interface
}

func NewUpdatePlanUseCase(
	planRepo plan.PlanRepository,
	overrideRepo plan.PlanOverrideRepository,
	notifier *ChangeNotifier,
	logger logger.Interface,
) *UpdatePlanUseCase {
	return &UpdatePlanUseCase{
		planRepo:     planRepo,
		overrideRepo: overrideRepo,
		notifier:     notifier,
		logger:       logger,
	}
}

func (uc *UpdatePlanUseCase) Execute(ctx context.Context, cmd UpdatePlanCommand) (*dto.PlanDTO, error) {
	p, err := loadPlan(ctx, uc.planRepo, uc.logger, cmd.PlanID)
	if err != nil {
		return nil, err
	}

	if cmd.Name != nil || cmd.Description != nil {
		name, description := p.Name(), p.Description()
		if cmd.Name != nil {
			name = *cmd.Name
		}
		if cmd.Description != nil {
			description = *cmd.Description
		}
		if err := p.UpdateDetails(name, description); err != nil {
			return nil, errors.NewValidationError(err.Error())
		}
	}

	if cmd.MonthlyPrice != nil || cmd.YearlyPrice != nil || cmd.Currency != nil || cmd.IsFree != nil {
		pricing := p.Pricing()
		if cmd.MonthlyPrice != nil {
			pricing.Monthly = *cmd.MonthlyPrice
		}
		if cmd.YearlyPrice != nil {
			pricing.Yearly = *cmd.YearlyPrice
		}
		if cmd.Currency != nil {
			pricing.Currency = *cmd.Currency
		}
		if cmd.IsFree != nil {
			pricing.Free = *cmd.IsFree
		}
		if err := p.UpdatePricing(pricing); err != nil {
			return nil, errors.NewValidationError(err.Error())
		}
	}

	featuresChanged := len(cmd.Features) > 0
	if featuresChanged {
		if err := p.SetFeatures(cmd.Features); err != nil {
			return nil, errors.NewValidationError("invalid features document", err.Error())
		}
	}

	if cmd.SortOrder != nil {
		p.SetSortOrder(*cmd.SortOrder)
	}

	if err := uc.planRepo.Update(ctx, p); err != nil {
		return nil, persistError(uc.logger, "failed to update plan", err, p.ID())
	}

	if featuresChanged {
		uc.notifier.PlanChanged(ctx, p.ID(), overrideUsers(ctx, uc.overrideRepo, uc.logger, p.ID())...)
	}

	uc.logger.Infow("plan updated", "plan_id", p.ID(), "features_changed", featuresChanged)
	return dto.ToPlanDTO(p), nil
}

func loadPlan(ctx context.Context, repo plan.PlanRepository, log logger.Interface, planID uint) (*plan.Plan, error) {
	p, err := repo.GetByID(ctx, planID)
	if err != nil {
		if stderrors.Is(err, plan.ErrPlanNotFound) {
			return nil, errors.NewNotFoundError("plan not found")
		}
		log.Errorw("failed to get plan", "plan_id", planID, "error", err)
		return nil, errors.NewInternalError("failed to get plan")
	}
	return p, nil
}

func overrideUsers(ctx context.Context, repo plan.PlanOverrideRepository, log logger.Interface, planID uint) []uint {
	if repo == nil {
		return nil
	}
	ids, err := repo.UserIDsByPlanID(ctx, planID)
	if err != nil {
		log.Warnw("failed to list override users for plan", "plan_id", planID, "error", err)
		return nil
	}
	return ids
}

func persistError(log logger.Interface, msg string, err error, planID uint) error {
	if stderrors.Is(err, plan.ErrPlanNotFound) {
		return errors.NewNotFoundError("plan not found")
	}
	if errors.IsDuplicateError(err) {
		return errors.NewConflictError("plan slug already exists")
	}
	log.Errorw(msg, "plan_id", planID, "error", err)
	return errors.NewInternalError(msg)
}
