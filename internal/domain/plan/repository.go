package plan

import (
	"context"
	"time"
)

type PlanRepository interface {
	Create(ctx context.Context, plan *Plan) error
	GetByID(ctx context.Context, id uint) (*Plan, error)
	GetBySlug(ctx context.Context, slug string) (*Plan, error)
	Update(ctx context.Context, plan *Plan) error

	List(ctx context.Context, filter PlanFilter) ([]*Plan, int64, error)
	GetActive(ctx context.Context) ([]*Plan, error)
	ExistsBySlug(ctx context.Context, slug string) (bool, error)
}

type PlanFilter struct {
	IsActive *bool
	IsFree   *bool
	Page     int
	PageSize int
}

type PlanOverrideRepository interface {
	// Save inserts the override or updates the user's existing one.
	Save(ctx context.Context, override *PlanOverride) error
	GetByUserID(ctx context.Context, userID uint) (*PlanOverride, error)
	DeleteByUserID(ctx context.Context, userID uint) error
	// UserIDsByPlanID lists users whose override is based on planID.
	UserIDsByPlanID(ctx context.Context, planID uint) ([]uint, error)
}

type SubscriptionRepository interface {
	// GetActiveByUserID returns the user's most recent subscription that is
	// active at now, or ErrSubscriptionNotFound.
	GetActiveByUserID(ctx context.Context, userID uint, now time.Time) (*Subscription, error)
	Save(ctx context.Context, sub *Subscription) error
	CountActiveByPlanID(ctx context.Context, planID uint, now time.Time) (int64, error)
}
