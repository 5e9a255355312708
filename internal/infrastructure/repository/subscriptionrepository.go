package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/tasklane/tasklane/internal/domain/plan"
	"github.com/tasklane/tasklane/internal/infrastructure/persistence/mappers"
	"github.com/tasklane/tasklane/internal/infrastructure/persistence/models"
	"github.com/tasklane/tasklane/internal/shared/db"
	"github.com/tasklane/tasklane/internal/shared/logger"
)

var activeSubscriptionStatuses = []string{
	string(plan.SubscriptionActive),
	string(plan.SubscriptionTrialing),
}

type SubscriptionRepositoryImpl struct {
	db     *gorm.DB
	logger logger.Interface
}

func NewSubscriptionRepository(db *gorm.DB, logger logger.Interface) plan.SubscriptionRepository {
	return &SubscriptionRepositoryImpl{db: db, logger: logger}
}

func activeAt(now time.Time) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Where("status IN ?", activeSubscriptionStatuses).
			Where("period_end IS NULL OR period_end > ?", now)
	}
}

func (r *SubscriptionRepositoryImpl) GetActiveByUserID(ctx context.Context, userID uint, now time.Time) (*plan.Subscription, error) {
	var model models.SubscriptionModel
	err := db.GetTxFromContext(ctx, r.db).
		Scopes(activeAt(now)).
		Where("user_id = ?", userID).
		Order("id DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, plan.ErrSubscriptionNotFound
		}
		r.logger.Errorw("failed to get active subscription", "error", err, "user_id", userID)
		return nil, fmt.Errorf("failed to get active subscription: %w", err)
	}
	return mappers.SubscriptionToEntity(&model), nil
}

func (r *SubscriptionRepositoryImpl) Save(ctx context.Context, sub *plan.Subscription) error {
	if !sub.Status.IsValid() {
		return fmt.Errorf("invalid subscription status: %s", sub.Status)
	}
	model := mappers.SubscriptionToModel(sub)
	if err := db.GetTxFromContext(ctx, r.db).Save(model).Error; err != nil {
		r.logger.Errorw("failed to save subscription", "error", err, "user_id", sub.UserID)
		return fmt.Errorf("failed to save subscription: %w", err)
	}
	sub.ID = model.ID
	sub.CreatedAt = model.CreatedAt
	sub.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *SubscriptionRepositoryImpl) CountActiveByPlanID(ctx context.Context, planID uint, now time.Time) (int64, error) {
	var count int64
	err := db.GetTxFromContext(ctx, r.db).Model(&models.SubscriptionModel{}).
		Scopes(activeAt(now)).
		Where("plan_id = ?", planID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count active subscriptions: %w", err)
	}
	return count, nil
}
