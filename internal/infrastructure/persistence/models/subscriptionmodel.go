package models

import (
	"time"

	"github.com/tasklane/tasklane/internal/shared/constants"
)

// SubscriptionModel is written by billing. This service only reads it to
// find a user's plan, apart from development seeding.
type SubscriptionModel struct {
	ID        uint   `gorm:"primarykey"`
	UserID    uint   `gorm:"not null;index:idx_subscriptions_user_status"`
	PlanID    uint   `gorm:"not null;index"`
	Status    string `gorm:"not null;size:20;index:idx_subscriptions_user_status"`
	PeriodEnd *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (SubscriptionModel) TableName() string {
	return constants.TableSubscriptions
}
