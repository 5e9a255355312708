package usecases

import (
	"context"
	"time"

	"github.com/tasklane/tasklane/internal/application/plan/dto"
	"github.com/tasklane/tasklane/internal/domain/plan"
	"github.com/tasklane/tasklane/internal/shared/logger"
)

// SetPlanStatusUseCase activates or soft-deactivates a plan. Deactivation
// only hides the plan from new subscriptions; existing subscribers keep it.
type SetPlanStatusUseCase struct {
	planRepo plan.PlanRepository
	subRepo  plan.SubscriptionRepository
	notifier *ChangeNotifier
	logger   logger.Interface
}

func NewSetPlanStatusUseCase(
	planRepo plan.PlanRepository,
	subRepo plan.SubscriptionRepository,
	notifier *ChangeNotifier,
	logger logger.Interface,
) *SetPlanStatusUseCase {
	return &SetPlanStatusUseCase{
		planRepo: planRepo,
		subRepo:  subRepo,
		notifier: notifier,
		logger:   logger,
	}
}

func (uc *SetPlanStatusUseCase) Execute(ctx context.Context, planID uint, active bool) (*dto.PlanDTO, error) {
	p, err := loadPlan(ctx, uc.planRepo, uc.logger, planID)
	if err != nil {
		return nil, err
	}
	if p.IsActive() == active {
		return dto.ToPlanDTO(p), nil
	}

	if active {
		p.Activate()
	} else {
		p.Deactivate()
		if n, err := uc.subRepo.CountActiveByPlanID(ctx, planID, time.Now()); err == nil && n > 0 {
			uc.logger.Infow("deactivating plan with active subscribers", "plan_id", planID, "subscribers", n)
		}
	}

	if err := uc.planRepo.Update(ctx, p); err != nil {
		return nil, persistError(uc.logger, "failed to update plan status", err, planID)
	}

	uc.notifier.PlanChanged(ctx, planID)
	uc.logger.Infow("plan status changed", "plan_id", planID, "active", active)
	return dto.ToPlanDTO(p), nil
}
