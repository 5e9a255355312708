package http

import (
	"context"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	appentitlement "github.com/tasklane/tasklane/internal/application/entitlement"
	"github.com/tasklane/tasklane/internal/application/plan/usecases"
	"github.com/tasklane/tasklane/internal/infrastructure/auth"
	"github.com/tasklane/tasklane/internal/infrastructure/cache"
	"github.com/tasklane/tasklane/internal/infrastructure/config"
	"github.com/tasklane/tasklane/internal/infrastructure/permission"
	"github.com/tasklane/tasklane/internal/infrastructure/pubsub"
	"github.com/tasklane/tasklane/internal/infrastructure/ratelimit"
	"github.com/tasklane/tasklane/internal/infrastructure/scheduler"
	"github.com/tasklane/tasklane/internal/interfaces/http/middleware"
	"github.com/tasklane/tasklane/internal/interfaces/http/routes"
	"github.com/tasklane/tasklane/internal/shared/logger"
)

// Container holds all infrastructure components, repositories, use cases,
// handlers and background loops. It wires everything together and stops the
// background loops on Shutdown.
type Container struct {
	// Core infrastructure
	engine *gin.Engine
	db     *gorm.DB
	cfg    *config.Config
	log    logger.Interface
	redis  *redis.Client

	repos *repositories
	ucs   *allUseCases
	hdlrs *allHandlers

	// Entitlement engine
	resolver    *appentitlement.Resolver
	service     *appentitlement.Service
	filter      *appentitlement.ResponseFilter
	notifier    *usecases.ChangeNotifier
	memoryCache *cache.MemoryPolicyCache

	// Middlewares
	authMiddleware        *middleware.AuthMiddleware
	adminPermission       *middleware.AdminPermissionMiddleware
	entitlementMiddleware *middleware.EntitlementMiddleware

	jwtSvc      *auth.JWTService
	enforcer    *permission.Enforcer
	rateLimiter ratelimit.RateLimiter

	// Cross-instance invalidation
	planEventBus *pubsub.RedisPlanEventBus
	scheduler    *scheduler.SchedulerManager

	apiRegistrars []routes.APIRegistrar

	bgCancel   context.CancelFunc
	bgCancelMu sync.Mutex
	bgDone     []<-chan struct{}
}

// NewContainer wires the application. redisClient may be nil unless the
// entitlement cache driver is redis; without it plan change events are not
// shared between instances.
func NewContainer(
	db *gorm.DB,
	redisClient *redis.Client,
	cfg *config.Config,
	log logger.Interface,
	apiRegistrars ...routes.APIRegistrar,
) (*Container, error) {
	c := &Container{
		engine:        gin.New(),
		db:            db,
		cfg:           cfg,
		log:           log,
		redis:         redisClient,
		apiRegistrars: apiRegistrars,
	}

	// Section 1: Repositories and configuration store
	if err := c.initRepositories(); err != nil {
		return nil, err
	}

	// Section 2: Entitlement engine - cache, resolver, service, filter
	if err := c.initEntitlement(); err != nil {
		return nil, err
	}

	// Section 3: Plan administration use cases
	c.initUseCases()

	// Section 4: Auth, RBAC, handlers and middlewares
	if err := c.initHandlers(); err != nil {
		return nil, err
	}

	// Section 5: Cache sweep and RBAC policy reload
	if err := c.initScheduler(); err != nil {
		c.stopBackground()
		return nil, err
	}

	return c, nil
}

// Service returns the entitlement service for callers outside the HTTP layer.
func (c *Container) Service() *appentitlement.Service {
	return c.service
}

// JWTService returns the session token service.
func (c *Container) JWTService() *auth.JWTService {
	return c.jwtSvc
}
