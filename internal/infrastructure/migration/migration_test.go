package migration

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tasklane/tasklane/internal/shared/constants"
	"github.com/tasklane/tasklane/internal/shared/logger"
)

func TestNewManager_StrategyByEnvironment(t *testing.T) {
	log := logger.NewNopLogger()

	assert.Equal(t, "goose", NewManager(constants.EnvProduction, log).Strategy().GetName())
	assert.Equal(t, "goose", NewManager("TEST", log).Strategy().GetName())
	assert.Equal(t, "gorm_auto_migrate", NewManager(constants.EnvDevelopment, log).Strategy().GetName())
	assert.Equal(t, "gorm_auto_migrate", NewManager("staging", log).Strategy().GetName())
}

func TestGormAutoMigrate_CreatesTables(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	m := NewManager(constants.EnvDevelopment, logger.NewNopLogger())
	require.NoError(t, m.Migrate(db))

	for _, table := range []string{constants.TablePlans, constants.TablePlanOverrides, constants.TableSubscriptions} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
}

func TestEmbeddedScripts_AreGooseAnnotated(t *testing.T) {
	entries, err := fs.ReadDir(embeddedScripts, scriptsDir)
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	for _, e := range entries {
		data, err := fs.ReadFile(embeddedScripts, scriptsDir+"/"+e.Name())
		require.NoError(t, err)
		content := string(data)
		assert.True(t, strings.Contains(content, "-- +goose Up"), e.Name())
		assert.True(t, strings.Contains(content, "-- +goose Down"), e.Name())
	}
}
