package usecases

import (
	"context"
	"time"

	"github.com/tasklane/tasklane/internal/domain/plan"
	"github.com/tasklane/tasklane/internal/shared/logger"
)

// TransactionRunner runs fn in one database transaction. Repositories pick
// the transaction up from ctx.
type TransactionRunner interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// PolicyInvalidator drops cached entitlement resolutions.
type PolicyInvalidator interface {
	InvalidateUser(ctx context.Context, userIDs ...uint) error
	InvalidatePlan(ctx context.Context, planID uint) error
}

// ChangeNotifier invalidates local cache entries after a committed write and
// announces the change to other instances. Failures are logged only: the
// write already succeeded and cache TTLs bound the staleness.
type ChangeNotifier struct {
	invalidator PolicyInvalidator
	publisher   plan.ChangePublisher
	logger      logger.Interface
}

// NewChangeNotifier creates a notifier. publisher may be nil on single
// instance deployments.
func NewChangeNotifier(invalidator PolicyInvalidator, publisher plan.ChangePublisher, logger logger.Interface) *ChangeNotifier {
	return &ChangeNotifier{
		invalidator: invalidator,
		publisher:   publisher,
		logger:      logger,
	}
}

func (n *ChangeNotifier) PlanChanged(ctx context.Context, planID uint, affectedUsers ...uint) {
	if err := n.invalidator.InvalidatePlan(ctx, planID); err != nil {
		n.logger.Warnw("failed to invalidate policies for plan", "plan_id", planID, "error", err)
	}
	// Overrides rebased onto this plan resolve against it too.
	if len(affectedUsers) > 0 {
		if err := n.invalidator.InvalidateUser(ctx, affectedUsers...); err != nil {
			n.logger.Warnw("failed to invalidate policies for override users", "plan_id", planID, "error", err)
		}
	}
	n.publish(ctx, plan.ChangeEvent{Type: plan.ChangePlanUpdated, PlanID: planID})
}

func (n *ChangeNotifier) OverrideChanged(ctx context.Context, userID uint) {
	if err := n.invalidator.InvalidateUser(ctx, userID); err != nil {
		n.logger.Warnw("failed to invalidate policy for user", "user_id", userID, "error", err)
	}
	n.publish(ctx, plan.ChangeEvent{Type: plan.ChangeOverrideUpdated, UserID: userID})
}

func (n *ChangeNotifier) publish(ctx context.Context, event plan.ChangeEvent) {
	if n.publisher == nil {
		return
	}
	event.Timestamp = time.Now().Unix()
	if err := n.publisher.Publish(ctx, event); err != nil {
		n.logger.Warnw("failed to publish plan change event",
			"type", event.Type,
			"plan_id", event.PlanID,
			"user_id", event.UserID,
			"error", err,
		)
	}
}

// HandleChangeEvent applies a change announced by another instance to the
// local cache.
func (n *ChangeNotifier) HandleChangeEvent(ctx context.Context, event plan.ChangeEvent) {
	var err error
	switch event.Type {
	case plan.ChangePlanUpdated:
		err = n.invalidator.InvalidatePlan(ctx, event.PlanID)
	case plan.ChangeOverrideUpdated:
		err = n.invalidator.InvalidateUser(ctx, event.UserID)
	default:
		n.logger.Warnw("ignoring unknown plan change event", "type", event.Type)
		return
	}
	if err != nil {
		n.logger.Warnw("failed to apply plan change event", "type", event.Type, "error", err)
	}
}
