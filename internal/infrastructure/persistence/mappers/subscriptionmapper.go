package mappers

import (
	"github.com/tasklane/tasklane/internal/domain/plan"
	"github.com/tasklane/tasklane/internal/infrastructure/persistence/models"
)

func SubscriptionToEntity(model *models.SubscriptionModel) *plan.Subscription {
	if model == nil {
		return nil
	}
	return &plan.Subscription{
		ID:        model.ID,
		UserID:    model.UserID,
		PlanID:    model.PlanID,
		Status:    plan.SubscriptionStatus(model.Status),
		PeriodEnd: model.PeriodEnd,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

func SubscriptionToModel(entity *plan.Subscription) *models.SubscriptionModel {
	if entity == nil {
		return nil
	}
	return &models.SubscriptionModel{
		ID:        entity.ID,
		UserID:    entity.UserID,
		PlanID:    entity.PlanID,
		Status:    string(entity.Status),
		PeriodEnd: entity.PeriodEnd,
		CreatedAt: entity.CreatedAt,
		UpdatedAt: entity.UpdatedAt,
	}
}
