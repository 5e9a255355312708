package http

import (
	"fmt"
	"time"

	"github.com/tasklane/tasklane/internal/infrastructure/scheduler"
)

const minCacheSweepInterval = 10 * time.Second

// ============================================================
// Section 5: Scheduled jobs
// ============================================================

func (c *Container) initScheduler() error {
	interval := c.cfg.Auth.RBACReloadInterval()
	if c.memoryCache == nil && interval <= 0 {
		return nil
	}

	manager, err := scheduler.NewSchedulerManager(c.log.Named("scheduler"))
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	if c.memoryCache != nil {
		sweep := max(c.cfg.Entitlement.CacheTTL(), minCacheSweepInterval)
		if err := manager.RegisterCacheSweep(c.memoryCache, sweep); err != nil {
			return fmt.Errorf("failed to register policy cache sweep: %w", err)
		}
	}
	if interval > 0 {
		if err := manager.RegisterPolicyReload(c.enforcer, interval); err != nil {
			return fmt.Errorf("failed to register rbac policy reload: %w", err)
		}
	}

	manager.Start()
	c.scheduler = manager
	return nil
}
