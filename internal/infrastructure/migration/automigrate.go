package migration

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/tasklane/tasklane/internal/infrastructure/persistence/models"
	"github.com/tasklane/tasklane/internal/shared/logger"
)

func AutoMigrateModels() []interface{} {
	return []interface{}{
		&models.PlanModel{},
		&models.PlanOverrideModel{},
		&models.SubscriptionModel{},
	}
}

// GormAutoMigrateStrategy derives the schema from the persistence models.
// Used in development and tests, where the scripts' MySQL DDL may not apply.
type GormAutoMigrateStrategy struct {
	logger logger.Interface
}

func NewGormAutoMigrateStrategy(log logger.Interface) *GormAutoMigrateStrategy {
	return &GormAutoMigrateStrategy{logger: log.With("component", "migration.automigrate")}
}

func (s *GormAutoMigrateStrategy) Migrate(db *gorm.DB) error {
	modelList := AutoMigrateModels()
	if err := db.AutoMigrate(modelList...); err != nil {
		return fmt.Errorf("failed to auto-migrate models: %w", err)
	}
	s.logger.Infow("auto-migration completed", "models", len(modelList))
	return nil
}

func (s *GormAutoMigrateStrategy) GetName() string {
	return "gorm_auto_migrate"
}
