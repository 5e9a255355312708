package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tasklane/tasklane/internal/application/plan/usecases"
	"github.com/tasklane/tasklane/internal/domain/entitlement"
	"github.com/tasklane/tasklane/internal/infrastructure/config"
	"github.com/tasklane/tasklane/internal/infrastructure/migration"
	"github.com/tasklane/tasklane/internal/infrastructure/persistence/models"
	"github.com/tasklane/tasklane/internal/interfaces/http/middleware"
	"github.com/tasklane/tasklane/internal/interfaces/http/routes"
	"github.com/tasklane/tasklane/internal/shared/authorization"
	sharedConfig "github.com/tasklane/tasklane/internal/shared/config"
	"github.com/tasklane/tasklane/internal/shared/constants"
	"github.com/tasklane/tasklane/internal/shared/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const (
	adminUserID  uint = 1
	memberUserID uint = 42
)

type testClient struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	BillingRate int    `json:"billing_rate"`
}

func setupContainerDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, gdb.AutoMigrate(migration.AutoMigrateModels()...))
	require.NoError(t, gdb.Exec(`CREATE TABLE clients (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		deleted_at DATETIME
	)`).Error)
	return gdb
}

func testConfig(cacheDriver string) *config.Config {
	return &config.Config{
		Auth: sharedConfig.AuthConfig{
			JWT:    sharedConfig.JWTConfig{Secret: "test-secret", AccessExpMinutes: 5},
			Cookie: sharedConfig.CookieConfig{AccessTokenName: "access_token"},
		},
		Entitlement: sharedConfig.EntitlementConfig{
			CacheDriver:     cacheDriver,
			CacheTTLSeconds: 60,
			PublicPages:     []string{"dashboard"},
			FieldCatalog:    map[string][]string{"client": {"billing_rate"}},
			UsageTables: map[string]sharedConfig.UsageTableConfig{
				"max_clients": {Table: "clients", SoftDelete: true},
			},
		},
	}
}

// clientRoutes stands in for an entity module mounted on /api.
func clientRoutes(db *gorm.DB) routes.APIRegistrar {
	return func(api *gin.RouterGroup, guards *middleware.EntitlementMiddleware) {
		api.GET("/clients",
			guards.RequirePageAccess("clients", entitlement.AccessView),
			guards.FilterResponseByPlan("client"),
			func(c *gin.Context) {
				middleware.Render(c, http.StatusOK, []testClient{{ID: 1, Name: "Acme", BillingRate: 150}})
			},
		)
		api.POST("/clients",
			guards.CheckFeatureLimit("max_clients"),
			func(c *gin.Context) {
				userID, _ := middleware.UserIDFromContext(c)
				if err := db.Exec("INSERT INTO clients (user_id, name) VALUES (?, ?)", userID, "Acme").Error; err != nil {
					c.AbortWithStatus(http.StatusInternalServerError)
					return
				}
				c.Status(http.StatusCreated)
			},
		)
	}
}

type testApp struct {
	t         *testing.T
	db        *gorm.DB
	container *Container
	engine    *gin.Engine
}

func newTestApp(t *testing.T, cacheDriver string, withRedis bool) *testApp {
	t.Helper()
	return newTestAppWithConfig(t, testConfig(cacheDriver), withRedis)
}

func newTestAppWithConfig(t *testing.T, cfg *config.Config, withRedis bool) *testApp {
	t.Helper()
	gdb := setupContainerDB(t)

	var rdb *redis.Client
	if withRedis {
		mr := miniredis.RunT(t)
		rdb = redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = rdb.Close() })
	}

	c, err := NewContainer(gdb, rdb, cfg, logger.NewNopLogger(), clientRoutes(gdb))
	require.NoError(t, err)
	t.Cleanup(c.Shutdown)
	c.SetupRoutes()

	return &testApp{t: t, db: gdb, container: c, engine: c.GetEngine()}
}

func (a *testApp) token(userID uint, role authorization.UserRole) string {
	issued, err := a.container.JWTService().Generate(userID, role)
	require.NoError(a.t, err)
	return issued.AccessToken
}

func (a *testApp) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(constants.HeaderAuthorization, "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func (a *testApp) subscribe(userID, planID uint) {
	require.NoError(a.t, a.db.Create(&models.SubscriptionModel{
		UserID: userID,
		PlanID: planID,
		Status: "active",
	}).Error)
}

func (a *testApp) createPlan(adminToken string, features map[string]any) uint {
	w := a.do(http.MethodPost, "/admin/plans", adminToken, map[string]any{
		"name":          "Starter",
		"slug":          "starter",
		"monthly_price": "9.00",
		"features":      features,
	})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Data struct {
			ID uint `json:"id"`
		} `json:"data"`
	}
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotZero(a.t, resp.Data.ID)
	return resp.Data.ID
}

func TestContainer_EntitlementFlow(t *testing.T) {
	for _, tc := range []struct {
		name      string
		driver    string
		withRedis bool
	}{
		{"memory cache", sharedConfig.CacheDriverMemory, false},
		{"redis cache", sharedConfig.CacheDriverRedis, true},
		{"no cache", sharedConfig.CacheDriverNone, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			app := newTestApp(t, tc.driver, tc.withRedis)
			admin := app.token(adminUserID, authorization.RoleAdmin)
			member := app.token(memberUserID, authorization.RoleUser)

			planID := app.createPlan(admin, map[string]any{
				"page_access":    map[string]any{"clients": "view"},
				"visible_fields": map[string]any{"client": []string{"name"}},
				"limits":         map[string]any{"max_clients": 1},
			})

			// Not subscribed yet
			w := app.do(http.MethodGet, "/api/clients", member, nil)
			assert.Equal(t, http.StatusForbidden, w.Code)

			app.subscribe(memberUserID, planID)
			// Drops the negative cache entry left by the request above.
			require.NoError(t, app.container.resolver.InvalidateUser(t.Context(), memberUserID))

			w = app.do(http.MethodGet, "/api/clients", member, nil)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), `"name":"Acme"`)
			assert.NotContains(t, w.Body.String(), "billing_rate")
			assert.NotEmpty(t, w.Header().Get(constants.HeaderPlanID))

			w = app.do(http.MethodPost, "/api/clients", member, nil)
			assert.Equal(t, http.StatusCreated, w.Code)

			w = app.do(http.MethodPost, "/api/clients", member, nil)
			require.Equal(t, http.StatusForbidden, w.Code)
			var denial map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &denial))
			assert.Equal(t, "max_clients", denial["feature"])
			assert.EqualValues(t, 1, denial["current"])
			assert.EqualValues(t, 1, denial["limit"])
			assert.Equal(t, true, denial["upgrade"])

			// An override raises the limit and takes effect immediately.
			w = app.do(http.MethodPut, "/admin/users/42/override", admin, map[string]any{
				"features": map[string]any{"limits": map[string]any{"max_clients": 5}},
			})
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			w = app.do(http.MethodPost, "/api/clients", member, nil)
			assert.Equal(t, http.StatusCreated, w.Code)
			assert.NotEmpty(t, w.Header().Get(constants.HeaderPlanOverride))

			// Deactivating the override restores the plan limit.
			w = app.do(http.MethodPatch, "/admin/users/42/override/status", admin, map[string]any{"is_active": false})
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			w = app.do(http.MethodPost, "/api/clients", member, nil)
			assert.Equal(t, http.StatusForbidden, w.Code)

			w = app.do(http.MethodGet, "/me/limits/max_clients", member, nil)
			require.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Body.String(), `"current":2`)
		})
	}
}

func TestContainer_Unauthenticated(t *testing.T) {
	app := newTestApp(t, sharedConfig.CacheDriverMemory, false)

	w := app.do(http.MethodGet, "/api/clients", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"authentication required"}`, w.Body.String())

	w = app.do(http.MethodGet, "/me/plan", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestContainer_AdminRoutesRequireRole(t *testing.T) {
	app := newTestApp(t, sharedConfig.CacheDriverMemory, false)

	member := app.token(memberUserID, authorization.RoleUser)
	w := app.do(http.MethodGet, "/admin/plans", member, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	support := app.token(7, authorization.RoleSupport)
	w = app.do(http.MethodGet, "/admin/plans", support, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = app.do(http.MethodPost, "/admin/plans", support, map[string]any{"name": "X", "slug": "x"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestContainer_PublicEndpoints(t *testing.T) {
	app := newTestApp(t, sharedConfig.CacheDriverMemory, false)
	admin := app.token(adminUserID, authorization.RoleAdmin)
	app.createPlan(admin, map[string]any{})

	w := app.do(http.MethodGet, "/plans/public", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"slug":"starter"`)

	w = app.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"ok"`)

	w = app.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestContainer_SwaggerDocument(t *testing.T) {
	app := newTestApp(t, sharedConfig.CacheDriverMemory, false)

	w := app.do(http.MethodGet, "/swagger/doc.json", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `"title": "Tasklane API"`)
	assert.Contains(t, body, `"/admin/users/{user_id}/override"`)
	assert.Contains(t, body, `"/me/pages/{page}"`)

	w = app.do(http.MethodGet, "/swagger/index.html", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNewContainer_RedisDriverRequiresClient(t *testing.T) {
	_, err := NewContainer(setupContainerDB(t), nil, testConfig(sharedConfig.CacheDriverRedis), logger.NewNopLogger())
	assert.Error(t, err)
}

func TestContainer_SeedPlansInvalidatesCachedPolicies(t *testing.T) {
	app := newTestApp(t, sharedConfig.CacheDriverMemory, false)
	member := app.token(memberUserID, authorization.RoleUser)

	seed := func(limit string) {
		file, err := usecases.ParseSeedFile([]byte(`
plans:
  - name: Starter
    slug: starter
    features:
      page_access:
        clients: edit
      limits:
        max_clients: ` + limit))
		require.NoError(t, err)
		_, err = app.container.SeedPlans(t.Context(), file)
		require.NoError(t, err)
	}

	seed("0")
	var planID uint
	require.NoError(t, app.db.Model(&models.PlanModel{}).Where("slug = ?", "starter").Pluck("id", &planID).Error)
	app.subscribe(memberUserID, planID)

	w := app.do(http.MethodPost, "/api/clients", member, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	seed("10")
	w = app.do(http.MethodPost, "/api/clients", member, nil)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestContainer_SeedInactivePlanStaysPrivate(t *testing.T) {
	app := newTestApp(t, sharedConfig.CacheDriverMemory, false)
	file, err := usecases.ParseSeedFile([]byte(`
plans:
  - name: Legacy
    slug: legacy
    inactive: true
  - name: Starter
    slug: starter
`))
	require.NoError(t, err)
	_, err = app.container.SeedPlans(t.Context(), file)
	require.NoError(t, err)

	var active bool
	require.NoError(t, app.db.Model(&models.PlanModel{}).Where("slug = ?", "legacy").Pluck("is_active", &active).Error)
	assert.False(t, active)

	w := app.do(http.MethodGet, "/plans/public", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"slug":"starter"`)
	assert.NotContains(t, w.Body.String(), `"slug":"legacy"`)
}

func TestContainer_RateLimits(t *testing.T) {
	cfg := testConfig(sharedConfig.CacheDriverRedis)
	cfg.Server.RateLimit = sharedConfig.RateLimitConfig{Enabled: true, PublicPerMinute: 2, UserPerMinute: 100}
	app := newTestAppWithConfig(t, cfg, true)
	admin := app.token(adminUserID, authorization.RoleAdmin)
	member := app.token(memberUserID, authorization.RoleUser)

	planID := app.createPlan(admin, map[string]any{
		"page_access": map[string]any{"clients": "view"},
		"limits":      map[string]any{"api_requests_per_minute": 1},
	})
	app.subscribe(memberUserID, planID)

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, app.do(http.MethodGet, "/plans/public", "", nil).Code)
	}
	w := app.do(http.MethodGet, "/plans/public", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get(constants.HeaderRetryAfter))

	w = app.do(http.MethodGet, "/api/clients", member, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = app.do(http.MethodGet, "/api/clients", member, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), constants.LimitAPIRequestsPerMinute)

	// Admin traffic has its own budget.
	assert.Equal(t, http.StatusOK, app.do(http.MethodGet, "/admin/plans", admin, nil).Code)
}
