package plan

import "time"

type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionTrialing SubscriptionStatus = "trialing"
	SubscriptionCanceled SubscriptionStatus = "canceled"
	SubscriptionExpired  SubscriptionStatus = "expired"
)

func (s SubscriptionStatus) IsValid() bool {
	switch s {
	case SubscriptionActive, SubscriptionTrialing, SubscriptionCanceled, SubscriptionExpired:
		return true
	default:
		return false
	}
}

// Subscription is a read model of billing data: which plan a user is on.
// Billing owns the records; plan resolution only reads them.
type Subscription struct {
	ID        uint
	UserID    uint
	PlanID    uint
	Status    SubscriptionStatus
	PeriodEnd *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsActiveAt reports whether the subscription grants its plan at t. Active
// and trialing subscriptions count until their period ends; an unset period
// end never expires.
func (s *Subscription) IsActiveAt(t time.Time) bool {
	if s == nil {
		return false
	}
	if s.Status != SubscriptionActive && s.Status != SubscriptionTrialing {
		return false
	}
	return s.PeriodEnd == nil || s.PeriodEnd.After(t)
}
