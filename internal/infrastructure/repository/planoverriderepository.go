package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/tasklane/tasklane/internal/domain/plan"
	"github.com/tasklane/tasklane/internal/infrastructure/persistence/mappers"
	"github.com/tasklane/tasklane/internal/infrastructure/persistence/models"
	"github.com/tasklane/tasklane/internal/shared/db"
	"github.com/tasklane/tasklane/internal/shared/logger"
)

type PlanOverrideRepositoryImpl struct {
	db     *gorm.DB
	mapper mappers.PlanOverrideMapper
	logger logger.Interface
}

func NewPlanOverrideRepository(db *gorm.DB, logger logger.Interface) plan.PlanOverrideRepository {
	return &PlanOverrideRepositoryImpl{
		db:     db,
		mapper: mappers.NewPlanOverrideMapper(),
		logger: logger,
	}
}

func (r *PlanOverrideRepositoryImpl) Save(ctx context.Context, override *plan.PlanOverride) error {
	model := r.mapper.ToModel(override)
	tx := db.GetTxFromContext(ctx, r.db)

	if override.ID() == 0 {
		if err := tx.Create(model).Error; err != nil {
			r.logger.Errorw("failed to create plan override", "error", err, "user_id", override.UserID())
			return fmt.Errorf("failed to create plan override: %w", err)
		}
		return override.SetID(model.ID)
	}

	result := tx.Model(&models.PlanOverrideModel{}).
		Where("id = ?", override.ID()).
		Updates(map[string]interface{}{
			"plan_id":    model.PlanID,
			"features":   model.Features,
			"is_active":  model.IsActive,
			"note":       model.Note,
			"version":    model.Version,
			"updated_at": model.UpdatedAt,
		})
	if result.Error != nil {
		r.logger.Errorw("failed to update plan override", "error", result.Error, "override_id", override.ID())
		return fmt.Errorf("failed to update plan override: %w", result.Error)
	}
	return nil
}

func (r *PlanOverrideRepositoryImpl) GetByUserID(ctx context.Context, userID uint) (*plan.PlanOverride, error) {
	var model models.PlanOverrideModel
	if err := db.GetTxFromContext(ctx, r.db).Where("user_id = ?", userID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, plan.ErrOverrideNotFound
		}
		r.logger.Errorw("failed to get plan override", "error", err, "user_id", userID)
		return nil, fmt.Errorf("failed to get plan override: %w", err)
	}
	return r.mapper.ToEntity(&model)
}

func (r *PlanOverrideRepositoryImpl) DeleteByUserID(ctx context.Context, userID uint) error {
	result := db.GetTxFromContext(ctx, r.db).Where("user_id = ?", userID).Delete(&models.PlanOverrideModel{})
	if result.Error != nil {
		r.logger.Errorw("failed to delete plan override", "error", result.Error, "user_id", userID)
		return fmt.Errorf("failed to delete plan override: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return plan.ErrOverrideNotFound
	}
	r.logger.Infow("plan override deleted", "user_id", userID)
	return nil
}

func (r *PlanOverrideRepositoryImpl) UserIDsByPlanID(ctx context.Context, planID uint) ([]uint, error) {
	var userIDs []uint
	err := db.GetTxFromContext(ctx, r.db).Model(&models.PlanOverrideModel{}).
		Where("plan_id = ?", planID).
		Pluck("user_id", &userIDs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list override users for plan: %w", err)
	}
	return userIDs, nil
}
