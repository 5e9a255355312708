package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/tasklane/tasklane/internal/shared/constants"
)

// PlanOverrideModel is the persistence model of a per-user plan override.
// The unique index on user_id enforces at most one override per user.
type PlanOverrideModel struct {
	ID        uint `gorm:"primarykey"`
	UserID    uint `gorm:"uniqueIndex;not null"`
	PlanID    uint `gorm:"not null;index"`
	Features  datatypes.JSON
	IsActive  bool   `gorm:"not null"`
	Note      string `gorm:"size:500"`
	Version   int    `gorm:"not null;default:1"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (PlanOverrideModel) TableName() string {
	return constants.TablePlanOverrides
}
