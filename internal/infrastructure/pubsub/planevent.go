package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/tasklane/tasklane/internal/domain/plan"
	"github.com/tasklane/tasklane/internal/shared/logger"
)

const planChangeChannel = "tasklane:plan:change"

// RedisPlanEventBus implements both plan.ChangePublisher and
// plan.ChangeSubscriber using Redis Pub/Sub for cross-instance cache
// invalidation.
type RedisPlanEventBus struct {
	client *redis.Client
	logger logger.Interface
}

func NewRedisPlanEventBus(client *redis.Client, logger logger.Interface) *RedisPlanEventBus {
	return &RedisPlanEventBus{
		client: client,
		logger: logger,
	}
}

var (
	_ plan.ChangePublisher  = (*RedisPlanEventBus)(nil)
	_ plan.ChangeSubscriber = (*RedisPlanEventBus)(nil)
)

// Publish announces a plan or override change to every instance.
func (b *RedisPlanEventBus) Publish(ctx context.Context, event plan.ChangeEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.client.Publish(ctx, planChangeChannel, data).Err(); err != nil {
		b.logger.Errorw("failed to publish plan change event",
			"type", event.Type,
			"plan_id", event.PlanID,
			"user_id", event.UserID,
			"error", err,
		)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debugw("plan change event published",
		"type", event.Type,
		"plan_id", event.PlanID,
		"user_id", event.UserID,
	)
	return nil
}

// Subscribe delivers plan change events to handler until ctx is done.
func (b *RedisPlanEventBus) Subscribe(ctx context.Context, handler plan.ChangeEventHandler) error {
	pubsub := b.client.Subscribe(ctx, planChangeChannel)
	defer pubsub.Close()

	// Wait for subscription confirmation
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to channel: %w", err)
	}

	b.logger.Infow("subscribed to plan change events", "channel", planChangeChannel)

	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			b.logger.Infow("plan event subscriber stopped", "reason", ctx.Err())
			return ctx.Err()

		case msg, ok := <-ch:
			if !ok {
				b.logger.Warnw("plan event channel closed")
				return nil
			}

			var event plan.ChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				b.logger.Warnw("failed to unmarshal plan change event",
					"payload", msg.Payload,
					"error", err,
				)
				continue
			}

			// Invalidation is quick; handling inline keeps events ordered.
			handler(ctx, event)
		}
	}
}
