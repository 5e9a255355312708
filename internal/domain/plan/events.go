package plan

import "context"

type ChangeType string

const (
	ChangePlanUpdated     ChangeType = "plan_changed"
	ChangeOverrideUpdated ChangeType = "override_changed"
)

// ChangeEvent announces a plan or override write so that every instance can
// drop policies resolved from the old state.
type ChangeEvent struct {
	Type   ChangeType `json:"type"`
	PlanID uint       `json:"plan_id,omitempty"`
	UserID uint       `json:"user_id,omitempty"`
	// Timestamp is unix seconds.
	Timestamp int64 `json:"timestamp"`
}

type ChangeEventHandler func(ctx context.Context, event ChangeEvent)

type ChangePublisher interface {
	Publish(ctx context.Context, event ChangeEvent) error
}

type ChangeSubscriber interface {
	// Subscribe blocks, delivering events to handler until ctx is done.
	Subscribe(ctx context.Context, handler ChangeEventHandler) error
}
