package repository

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tasklane/tasklane/internal/domain/entitlement"
	"github.com/tasklane/tasklane/internal/domain/plan"
	"github.com/tasklane/tasklane/internal/infrastructure/persistence/models"
	"github.com/tasklane/tasklane/internal/shared/config"
	"github.com/tasklane/tasklane/internal/shared/db"
	"github.com/tasklane/tasklane/internal/shared/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	// Every pooled connection would otherwise open its own empty database.
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = gdb.AutoMigrate(&models.PlanModel{}, &models.PlanOverrideModel{}, &models.SubscriptionModel{})
	require.NoError(t, err)

	return gdb
}

func createTestPlan(t *testing.T, repo plan.PlanRepository, slug, features string) *plan.Plan {
	p, err := plan.NewPlan(slug, slug, "", plan.Pricing{
		Monthly:  decimal.RequireFromString("9.99"),
		Yearly:   decimal.RequireFromString("99.00"),
		Currency: "USD",
	})
	require.NoError(t, err)
	require.NoError(t, p.SetFeatures([]byte(features)))
	require.NoError(t, repo.Create(context.Background(), p))
	return p
}

func TestPlanRepository_CreateAndGet(t *testing.T) {
	gdb := setupTestDB(t)
	repo := NewPlanRepository(gdb, logger.NewNopLogger())
	ctx := context.Background()

	p := createTestPlan(t, repo, "pro", `{"features":{"gantt_chart":true}}`)
	assert.NotZero(t, p.ID())

	t.Run("by id", func(t *testing.T) {
		found, err := repo.GetByID(ctx, p.ID())
		require.NoError(t, err)
		assert.Equal(t, "pro", found.Slug())
		assert.True(t, found.Pricing().Monthly.Equal(decimal.RequireFromString("9.99")))
		assert.JSONEq(t, `{"features":{"gantt_chart":true}}`, string(found.Features()))
	})

	t.Run("by slug", func(t *testing.T) {
		found, err := repo.GetBySlug(ctx, "pro")
		require.NoError(t, err)
		assert.Equal(t, p.ID(), found.ID())
	})

	t.Run("missing plan", func(t *testing.T) {
		_, err := repo.GetByID(ctx, 9999)
		assert.ErrorIs(t, err, plan.ErrPlanNotFound)

		_, err = repo.GetBySlug(ctx, "missing")
		assert.ErrorIs(t, err, plan.ErrPlanNotFound)
	})

	t.Run("slug exists", func(t *testing.T) {
		exists, err := repo.ExistsBySlug(ctx, "pro")
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = repo.ExistsBySlug(ctx, "enterprise")
		require.NoError(t, err)
		assert.False(t, exists)
	})
}

func TestPlanRepository_UpdateKeepsZeroValues(t *testing.T) {
	gdb := setupTestDB(t)
	repo := NewPlanRepository(gdb, logger.NewNopLogger())
	ctx := context.Background()

	p := createTestPlan(t, repo, "team", `{}`)
	p.Deactivate()
	require.NoError(t, p.SetFeatures([]byte(`{"limits":{"max_projects":5}}`)))
	require.NoError(t, repo.Update(ctx, p))

	found, err := repo.GetByID(ctx, p.ID())
	require.NoError(t, err)
	assert.False(t, found.IsActive())
	assert.JSONEq(t, `{"limits":{"max_projects":5}}`, string(found.Features()))
	assert.Equal(t, p.Version(), found.Version())
}

func TestPlanRepository_ListAndActive(t *testing.T) {
	gdb := setupTestDB(t)
	repo := NewPlanRepository(gdb, logger.NewNopLogger())
	ctx := context.Background()

	free := createTestPlan(t, repo, "free", `{}`)
	pro := createTestPlan(t, repo, "pro", `{}`)
	legacy := createTestPlan(t, repo, "legacy", `{}`)

	pro.SetSortOrder(2)
	free.SetSortOrder(1)
	legacy.SetSortOrder(3)
	legacy.Deactivate()
	for _, p := range []*plan.Plan{free, pro, legacy} {
		require.NoError(t, repo.Update(ctx, p))
	}

	all, total, err := repo.List(ctx, plan.PlanFilter{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, all, 3)
	assert.Equal(t, "free", all[0].Slug())
	assert.Equal(t, "legacy", all[2].Slug())

	active := true
	onlyActive, total, err := repo.List(ctx, plan.PlanFilter{IsActive: &active, Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, onlyActive, 2)

	paged, total, err := repo.List(ctx, plan.PlanFilter{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, paged, 1)
	assert.Equal(t, "legacy", paged[0].Slug())

	public, err := repo.GetActive(ctx)
	require.NoError(t, err)
	require.Len(t, public, 2)
	assert.Equal(t, "free", public[0].Slug())
	assert.Equal(t, "pro", public[1].Slug())
}

func TestPlanOverrideRepository(t *testing.T) {
	gdb := setupTestDB(t)
	plans := NewPlanRepository(gdb, logger.NewNopLogger())
	repo := NewPlanOverrideRepository(gdb, logger.NewNopLogger())
	ctx := context.Background()

	p := createTestPlan(t, plans, "pro", `{}`)

	o, err := plan.NewPlanOverride(42, p.ID(), []byte(`{"limits":{"max_projects":100}}`), "sales deal")
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, o))
	assert.NotZero(t, o.ID())

	found, err := repo.GetByUserID(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, p.ID(), found.PlanID())
	assert.Equal(t, "sales deal", found.Note())
	assert.True(t, found.IsActive())

	found.Deactivate()
	require.NoError(t, repo.Save(ctx, found))

	reloaded, err := repo.GetByUserID(ctx, 42)
	require.NoError(t, err)
	assert.False(t, reloaded.IsActive())

	userIDs, err := repo.UserIDsByPlanID(ctx, p.ID())
	require.NoError(t, err)
	assert.Equal(t, []uint{42}, userIDs)

	require.NoError(t, repo.DeleteByUserID(ctx, 42))
	_, err = repo.GetByUserID(ctx, 42)
	assert.ErrorIs(t, err, plan.ErrOverrideNotFound)
	assert.ErrorIs(t, repo.DeleteByUserID(ctx, 42), plan.ErrOverrideNotFound)
}

func TestPlanOverrideRepository_CreateInactive(t *testing.T) {
	gdb := setupTestDB(t)
	log := logger.NewNopLogger()
	plans := NewPlanRepository(gdb, log)
	repo := NewPlanOverrideRepository(gdb, log)
	store := NewConfigStore(gdb, log)
	ctx := context.Background()

	p := createTestPlan(t, plans, "pro", `{}`)
	o, err := plan.NewPlanOverride(42, p.ID(), []byte(`{"collaborators":true}`), "")
	require.NoError(t, err)
	o.Deactivate()
	require.NoError(t, repo.Save(ctx, o))

	found, err := repo.GetByUserID(ctx, 42)
	require.NoError(t, err)
	assert.False(t, found.IsActive())

	record, err := store.ActiveOverride(ctx, 42)
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestPlanRepository_CreateInactive(t *testing.T) {
	gdb := setupTestDB(t)
	repo := NewPlanRepository(gdb, logger.NewNopLogger())
	ctx := context.Background()

	p, err := plan.NewPlan("Legacy", "legacy", "", plan.Pricing{Currency: "USD", Free: true})
	require.NoError(t, err)
	p.Deactivate()
	require.NoError(t, repo.Create(ctx, p))

	found, err := repo.GetByID(ctx, p.ID())
	require.NoError(t, err)
	assert.False(t, found.IsActive())

	active, err := repo.GetActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestSubscriptionRepository_ActiveWindow(t *testing.T) {
	gdb := setupTestDB(t)
	repo := NewSubscriptionRepository(gdb, logger.NewNopLogger())
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(24 * time.Hour)

	require.NoError(t, repo.Save(ctx, &plan.Subscription{UserID: 1, PlanID: 10, Status: plan.SubscriptionActive}))
	require.NoError(t, repo.Save(ctx, &plan.Subscription{UserID: 2, PlanID: 10, Status: plan.SubscriptionTrialing, PeriodEnd: &future}))
	require.NoError(t, repo.Save(ctx, &plan.Subscription{UserID: 3, PlanID: 10, Status: plan.SubscriptionActive, PeriodEnd: &past}))
	require.NoError(t, repo.Save(ctx, &plan.Subscription{UserID: 4, PlanID: 10, Status: plan.SubscriptionCanceled}))

	sub, err := repo.GetActiveByUserID(ctx, 1, now)
	require.NoError(t, err)
	assert.EqualValues(t, 10, sub.PlanID)

	_, err = repo.GetActiveByUserID(ctx, 2, now)
	assert.NoError(t, err)

	_, err = repo.GetActiveByUserID(ctx, 3, now)
	assert.ErrorIs(t, err, plan.ErrSubscriptionNotFound)

	_, err = repo.GetActiveByUserID(ctx, 4, now)
	assert.ErrorIs(t, err, plan.ErrSubscriptionNotFound)

	count, err := repo.CountActiveByPlanID(ctx, 10, now)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	err = repo.Save(ctx, &plan.Subscription{UserID: 5, PlanID: 10, Status: "paused"})
	assert.Error(t, err)
}

func TestConfigStore(t *testing.T) {
	gdb := setupTestDB(t)
	log := logger.NewNopLogger()
	plans := NewPlanRepository(gdb, log)
	subs := NewSubscriptionRepository(gdb, log)
	overrides := NewPlanOverrideRepository(gdb, log)
	store := NewConfigStore(gdb, log)
	ctx := context.Background()

	base := createTestPlan(t, plans, "pro", `{"features":{"gantt_chart":true}}`)
	require.NoError(t, subs.Save(ctx, &plan.Subscription{UserID: 7, PlanID: base.ID(), Status: plan.SubscriptionActive}))

	t.Run("active plan", func(t *testing.T) {
		planID, err := store.ActivePlanForUser(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, base.ID(), planID)
	})

	t.Run("not subscribed", func(t *testing.T) {
		_, err := store.ActivePlanForUser(ctx, 8)
		assert.ErrorIs(t, err, entitlement.ErrNotSubscribed)
	})

	t.Run("plan features", func(t *testing.T) {
		raw, err := store.PlanFeatures(ctx, base.ID())
		require.NoError(t, err)
		assert.JSONEq(t, `{"features":{"gantt_chart":true}}`, string(raw))

		_, err = store.PlanFeatures(ctx, 9999)
		assert.ErrorIs(t, err, plan.ErrPlanNotFound)
	})

	t.Run("malformed features are returned as stored", func(t *testing.T) {
		require.NoError(t, gdb.Model(&models.PlanModel{}).
			Where("id = ?", base.ID()).
			Update("features", `{"features":{"gantt_chart":"yes"}}`).Error)

		raw, err := store.PlanFeatures(ctx, base.ID())
		require.NoError(t, err)
		assert.Contains(t, string(raw), `"yes"`)
	})

	t.Run("override lifecycle", func(t *testing.T) {
		record, err := store.ActiveOverride(ctx, 7)
		require.NoError(t, err)
		assert.Nil(t, record)

		o, err := plan.NewPlanOverride(7, base.ID(), []byte(`{"limits":{"max_projects":100}}`), "")
		require.NoError(t, err)
		require.NoError(t, overrides.Save(ctx, o))

		record, err = store.ActiveOverride(ctx, 7)
		require.NoError(t, err)
		require.NotNil(t, record)
		assert.Equal(t, o.ID(), record.ID)
		assert.Equal(t, base.ID(), record.PlanID)
		assert.JSONEq(t, `{"limits":{"max_projects":100}}`, string(record.Features))

		o.Deactivate()
		require.NoError(t, overrides.Save(ctx, o))
		record, err = store.ActiveOverride(ctx, 7)
		require.NoError(t, err)
		assert.Nil(t, record)
	})
}

type projectRow struct {
	ID        uint `gorm:"primarykey"`
	OwnerID   uint
	DeletedAt gorm.DeletedAt
}

func (projectRow) TableName() string { return "projects" }

func TestTableUsageCounter(t *testing.T) {
	gdb := setupTestDB(t)
	require.NoError(t, gdb.AutoMigrate(&projectRow{}))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, gdb.Create(&projectRow{OwnerID: 1}).Error)
	}
	require.NoError(t, gdb.Create(&projectRow{OwnerID: 2}).Error)
	require.NoError(t, gdb.Where("owner_id = ?", 1).Limit(1).Delete(&projectRow{}).Error)

	counter, err := NewTableUsageCounter(gdb, map[string]config.UsageTableConfig{
		"max_projects":     {Table: "projects", OwnerColumn: "owner_id", SoftDelete: true},
		"max_project_rows":  {Table: "projects", OwnerColumn: "owner_id"},
	}, logger.NewNopLogger())
	require.NoError(t, err)

	count, err := counter.CurrentUsage(ctx, 1, "max_projects")
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	count, err = counter.CurrentUsage(ctx, 1, "max_project_rows")
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)

	count, err = counter.CurrentUsage(ctx, 3, "max_projects")
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = counter.CurrentUsage(ctx, 1, "max_members")
	assert.Error(t, err)

	t.Run("counts inside a transaction", func(t *testing.T) {
		tm := db.NewTransactionManager(gdb)
		err := tm.RunInTransaction(ctx, func(txCtx context.Context) error {
			n, err := counter.CurrentUsage(txCtx, 2, "max_projects")
			require.NoError(t, err)
			assert.EqualValues(t, 1, n)
			return nil
		})
		require.NoError(t, err)
	})
}

func TestNewTableUsageCounter_RejectsUnsafeIdentifiers(t *testing.T) {
	gdb := setupTestDB(t)

	_, err := NewTableUsageCounter(gdb, map[string]config.UsageTableConfig{
		"max_projects": {Table: "projects; DROP TABLE plans"},
	}, logger.NewNopLogger())
	assert.Error(t, err)

	_, err = NewTableUsageCounter(gdb, map[string]config.UsageTableConfig{
		"max_projects": {Table: "projects", OwnerColumn: "owner id"},
	}, logger.NewNopLogger())
	assert.Error(t, err)
}
