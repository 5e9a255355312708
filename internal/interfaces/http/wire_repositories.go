package http

import (
	"fmt"

	"github.com/tasklane/tasklane/internal/domain/plan"
	"github.com/tasklane/tasklane/internal/infrastructure/repository"
)

type repositories struct {
	planRepo         plan.PlanRepository
	overrideRepo     plan.PlanOverrideRepository
	subscriptionRepo plan.SubscriptionRepository
	configStore      *repository.ConfigStore
	usageCounter     *repository.TableUsageCounter
}

func (c *Container) initRepositories() error {
	usageCounter, err := repository.NewTableUsageCounter(c.db, c.cfg.Entitlement.UsageTables, c.log)
	if err != nil {
		return fmt.Errorf("failed to configure usage tables: %w", err)
	}

	c.repos = &repositories{
		planRepo:         repository.NewPlanRepository(c.db, c.log),
		overrideRepo:     repository.NewPlanOverrideRepository(c.db, c.log),
		subscriptionRepo: repository.NewSubscriptionRepository(c.db, c.log),
		configStore:      repository.NewConfigStore(c.db, c.log),
		usageCounter:     usageCounter,
	}
	return nil
}
