package http

import (
	"context"
	"fmt"

	appentitlement "github.com/tasklane/tasklane/internal/application/entitlement"
	"github.com/tasklane/tasklane/internal/application/plan/usecases"
	"github.com/tasklane/tasklane/internal/domain/entitlement"
	"github.com/tasklane/tasklane/internal/domain/plan"
	"github.com/tasklane/tasklane/internal/infrastructure/cache"
	"github.com/tasklane/tasklane/internal/infrastructure/pubsub"
	sharedConfig "github.com/tasklane/tasklane/internal/shared/config"
	"github.com/tasklane/tasklane/internal/shared/goroutine"
)

// ============================================================
// Section 2: Entitlement engine
// ============================================================

func (c *Container) initEntitlement() error {
	cfg := c.cfg.Entitlement
	log := c.log.Named("entitlement")

	policyCache, err := c.newPolicyCache(cfg.CacheDriver)
	if err != nil {
		return err
	}

	catalog := entitlement.FieldCatalog(cfg.FieldCatalog)
	c.resolver = appentitlement.NewResolver(c.repos.configStore, policyCache, appentitlement.ResolverConfig{
		Catalog:     catalog,
		TTL:         cfg.CacheTTL(),
		NegativeTTL: cfg.NegativeTTL(),
	}, log)
	c.service = appentitlement.NewService(c.resolver, c.repos.usageCounter, appentitlement.PublicAllowList{
		Pages:    cfg.PublicPages,
		Features: cfg.PublicFeatures,
	}, log)
	c.filter = appentitlement.NewResponseFilter(catalog, log)

	var publisher plan.ChangePublisher
	if c.redis != nil {
		c.planEventBus = pubsub.NewRedisPlanEventBus(c.redis, log)
		publisher = c.planEventBus
	} else {
		log.Warnw("redis not configured, plan changes are not shared between instances")
	}
	c.notifier = usecases.NewChangeNotifier(c.resolver, publisher, log)

	c.startBackground()
	return nil
}

func (c *Container) newPolicyCache(driver string) (entitlement.PolicyCache, error) {
	switch driver {
	case sharedConfig.CacheDriverNone:
		return nil, nil
	case sharedConfig.CacheDriverMemory, "":
		c.memoryCache = cache.NewMemoryPolicyCache()
		return c.memoryCache, nil
	case sharedConfig.CacheDriverRedis:
		if c.redis == nil {
			return nil, fmt.Errorf("entitlement cache driver %q requires a redis connection", driver)
		}
		return cache.NewRedisPolicyCache(c.redis, c.log.Named("policy-cache")), nil
	default:
		return nil, fmt.Errorf("unknown entitlement cache driver %q", driver)
	}
}

// startBackground launches the plan change subscriber. It stops when Shutdown
// cancels its context.
func (c *Container) startBackground() {
	ctx, cancel := context.WithCancel(context.Background())
	c.bgCancelMu.Lock()
	c.bgCancel = cancel
	c.bgCancelMu.Unlock()

	if c.planEventBus != nil {
		c.bgDone = append(c.bgDone, goroutine.SafeLoop(ctx, c.log, "plan-change-subscriber", func(ctx context.Context) error {
			return c.planEventBus.Subscribe(ctx, c.notifier.HandleChangeEvent)
		}))
	}
}

func (c *Container) stopBackground() {
	c.bgCancelMu.Lock()
	cancel := c.bgCancel
	c.bgCancel = nil
	jobs := c.scheduler
	c.scheduler = nil
	c.bgCancelMu.Unlock()

	if jobs != nil {
		_ = jobs.Stop()
	}
	if cancel == nil {
		return
	}
	cancel()
	for _, done := range c.bgDone {
		<-done
	}
}
