package plan

import "errors"

var (
	ErrPlanNotFound         = errors.New("plan not found")
	ErrPlanInactive         = errors.New("plan inactive")
	ErrPlanSlugExists       = errors.New("plan slug already exists")
	ErrPlanInUse            = errors.New("plan is referenced by active subscriptions")
	ErrOverrideNotFound     = errors.New("plan override not found")
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrInvalidPrice         = errors.New("invalid price")
	ErrInvalidFeatures      = errors.New("invalid features document")
)
