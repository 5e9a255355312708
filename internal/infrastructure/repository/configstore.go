package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/tasklane/tasklane/internal/domain/entitlement"
	"github.com/tasklane/tasklane/internal/domain/plan"
	"github.com/tasklane/tasklane/internal/infrastructure/persistence/models"
	"github.com/tasklane/tasklane/internal/shared/biztime"
	"github.com/tasklane/tasklane/internal/shared/db"
	"github.com/tasklane/tasklane/internal/shared/logger"
)

// ConfigStore reads the plan configuration consulted during resolution.
// Documents are returned as stored so that malformed ones reach the
// resolver intact.
type ConfigStore struct {
	db     *gorm.DB
	logger logger.Interface
	now    func() time.Time
}

func NewConfigStore(db *gorm.DB, logger logger.Interface) *ConfigStore {
	return &ConfigStore{db: db, logger: logger, now: biztime.NowUTC}
}

var _ entitlement.ConfigurationStore = (*ConfigStore)(nil)

func (s *ConfigStore) ActivePlanForUser(ctx context.Context, userID uint) (uint, error) {
	var model models.SubscriptionModel
	err := db.GetTxFromContext(ctx, s.db).
		Scopes(activeAt(s.now())).
		Where("user_id = ?", userID).
		Order("id DESC").
		Select("plan_id").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, entitlement.ErrNotSubscribed
		}
		return 0, fmt.Errorf("failed to get active plan for user: %w", err)
	}
	return model.PlanID, nil
}

// PlanFeatures returns the features document of a plan. Inactive plans are
// still readable: deactivation only blocks new assignments.
func (s *ConfigStore) PlanFeatures(ctx context.Context, planID uint) ([]byte, error) {
	var model models.PlanModel
	err := db.GetTxFromContext(ctx, s.db).
		Select("id", "features").
		First(&model, planID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("plan %d: %w", planID, plan.ErrPlanNotFound)
		}
		return nil, fmt.Errorf("failed to get plan features: %w", err)
	}
	return []byte(model.Features), nil
}

func (s *ConfigStore) ActiveOverride(ctx context.Context, userID uint) (*entitlement.OverrideRecord, error) {
	var model models.PlanOverrideModel
	err := db.GetTxFromContext(ctx, s.db).
		Where("user_id = ? AND is_active = ?", userID, true).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active override: %w", err)
	}
	return &entitlement.OverrideRecord{
		ID:       model.ID,
		PlanID:   model.PlanID,
		Features: []byte(model.Features),
	}, nil
}
