package usecases

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/tasklane/tasklane/internal/application/plan/dto"
	"github.com/tasklane/tasklane/internal/domain/plan"
	"github.com/tasklane/tasklane/internal/shared/errors"
	"github.com/tasklane/tasklane/internal/shared/logger"
)

// UpsertOverrideCommand creates or replaces a user's override. PlanID
// defaults to the user's subscribed plan when the override is new.
type UpsertOverrideCommand struct {
	UserID   uint
	PlanID   *uint
	Features json.RawMessage
	Note     *string
	IsActive *bool
}

type UpsertOverrideUseCase struct {
	planRepo     plan.PlanRepository
	overrideRepo plan.PlanOverrideRepository
	subRepo      plan.SubscriptionRepository
	notifier     *ChangeNotifier
	logger       logger.Interface
}

func NewUpsertOverrideUseCase(
	planRepo plan.PlanRepository,
	overrideRepo plan.PlanOverrideRepository,
	subRepo plan.SubscriptionRepository,
	notifier *ChangeNotifier,
	logger logger.Interface,
) *UpsertOverrideUseCase {
	return &UpsertOverrideUseCase{
		planRepo:     planRepo,
		overrideRepo: overrideRepo,
		subRepo:      subRepo,
		notifier:     notifier,
		logger:       logger,
	}
}

func (uc *UpsertOverrideUseCase) Execute(ctx context.Context, cmd UpsertOverrideCommand) (*dto.OverrideDTO, error) {
	if cmd.UserID == 0 {
		return nil, errors.NewValidationError("user ID is required")
	}

	existing, err := uc.overrideRepo.GetByUserID(ctx, cmd.UserID)
	if err != nil && !stderrors.Is(err, plan.ErrOverrideNotFound) {
		uc.logger.Errorw("failed to get override", "user_id", cmd.UserID, "error", err)
		return nil, errors.NewInternalError("failed to save override")
	}

	planID, err := uc.basePlanID(ctx, cmd, existing)
	if err != nil {
		return nil, err
	}
	if _, err := loadPlan(ctx, uc.planRepo, uc.logger, planID); err != nil {
		if errors.IsNotFoundError(err) {
			return nil, errors.NewValidationError("base plan does not exist")
		}
		return nil, err
	}

	override := existing
	if override == nil {
		note := ""
		if cmd.Note != nil {
			note = *cmd.Note
		}
		override, err = plan.NewPlanOverride(cmd.UserID, planID, cmd.Features, note)
		if err != nil {
			return nil, errors.NewValidationError("invalid override", err.Error())
		}
	} else {
		if err := override.Rebase(planID); err != nil {
			return nil, errors.NewValidationError(err.Error())
		}
		if len(cmd.Features) > 0 {
			if err := override.SetFeatures(cmd.Features); err != nil {
				return nil, errors.NewValidationError("invalid features document", err.Error())
			}
		}
		if cmd.Note != nil {
			override.SetNote(*cmd.Note)
		}
	}

	if cmd.IsActive != nil {
		if *cmd.IsActive {
			override.Activate()
		} else {
			override.Deactivate()
		}
	}

	if err := uc.overrideRepo.Save(ctx, override); err != nil {
		uc.logger.Errorw("failed to persist override", "user_id", cmd.UserID, "error", err)
		return nil, errors.NewInternalError("failed to save override")
	}

	uc.notifier.OverrideChanged(ctx, cmd.UserID)
	uc.logger.Infow("plan override saved",
		"user_id", cmd.UserID,
		"override_id", override.ID(),
		"plan_id", override.PlanID(),
		"active", override.IsActive(),
	)
	return dto.ToOverrideDTO(override), nil
}

func (uc *UpsertOverrideUseCase) basePlanID(ctx context.Context, cmd UpsertOverrideCommand, existing *plan.PlanOverride) (uint, error) {
	if cmd.PlanID != nil && *cmd.PlanID != 0 {
		return *cmd.PlanID, nil
	}
	if existing != nil {
		return existing.PlanID(), nil
	}

	sub, err := uc.subRepo.GetActiveByUserID(ctx, cmd.UserID, time.Now())
	if err != nil {
		if stderrors.Is(err, plan.ErrSubscriptionNotFound) {
			return 0, errors.NewValidationError("plan_id is required for users without an active subscription")
		}
		uc.logger.Errorw("failed to get active subscription", "user_id", cmd.UserID, "error", err)
		return 0, errors.NewInternalError("failed to save override")
	}
	return sub.PlanID, nil
}
