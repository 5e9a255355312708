package usecases

import (
	"context"
	stderrors "errors"

	"github.com/tasklane/tasklane/internal/application/plan/dto"
	"github.com/tasklane/tasklane/internal/domain/plan"
	"github.com/tasklane/tasklane/internal/shared/errors"
	"github.com/tasklane/tasklane/internal/shared/logger"
)

// ManageOverrideUseCase covers reading, toggling and deleting a user's
// override.
type ManageOverrideUseCase struct {
	overrideRepo plan.PlanOverrideRepository
	notifier     *ChangeNotifier
	logger       logger.Interface
}

func NewManageOverrideUseCase(
	overrideRepo plan.PlanOverrideRepository,
	notifier *ChangeNotifier,
	logger logger.Interface,
) *ManageOverrideUseCase {
	return &ManageOverrideUseCase{
		overrideRepo: overrideRepo,
		notifier:     notifier,
		logger:       logger,
	}
}

func (uc *ManageOverrideUseCase) Get(ctx context.Context, userID uint) (*dto.OverrideDTO, error) {
	override, err := uc.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return dto.ToOverrideDTO(override), nil
}

func (uc *ManageOverrideUseCase) SetStatus(ctx context.Context, userID uint, active bool) (*dto.OverrideDTO, error) {
	override, err := uc.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if override.IsActive() == active {
		return dto.ToOverrideDTO(override), nil
	}

	if active {
		override.Activate()
	} else {
		override.Deactivate()
	}
	if err := uc.overrideRepo.Save(ctx, override); err != nil {
		uc.logger.Errorw("failed to update override status", "user_id", userID, "error", err)
		return nil, errors.NewInternalError("failed to update override")
	}

	uc.notifier.OverrideChanged(ctx, userID)
	uc.logger.Infow("plan override status changed", "user_id", userID, "active", active)
	return dto.ToOverrideDTO(override), nil
}

func (uc *ManageOverrideUseCase) Delete(ctx context.Context, userID uint) error {
	if err := uc.overrideRepo.DeleteByUserID(ctx, userID); err != nil {
		if stderrors.Is(err, plan.ErrOverrideNotFound) {
			return errors.NewNotFoundError("plan override not found")
		}
		uc.logger.Errorw("failed to delete override", "user_id", userID, "error", err)
		return errors.NewInternalError("failed to delete override")
	}

	uc.notifier.OverrideChanged(ctx, userID)
	uc.logger.Infow("plan override deleted", "user_id", userID)
	return nil
}

func (uc *ManageOverrideUseCase) load(ctx context.Context, userID uint) (*plan.PlanOverride, error) {
	override, err := uc.overrideRepo.GetByUserID(ctx, userID)
	if err != nil {
		if stderrors.Is(err, plan.ErrOverrideNotFound) {
			return nil, errors.NewNotFoundError("plan override not found")
		}
		uc.logger.Errorw("failed to get override", "user_id", userID, "error", err)
		return nil, errors.NewInternalError("failed to get override")
	}
	return override, nil
}
