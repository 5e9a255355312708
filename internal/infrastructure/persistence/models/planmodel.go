package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tasklane/tasklane/internal/shared/constants"
)

// PlanModel represents the database persistence model for subscription plans
// This is the anti-corruption layer between domain and database
type PlanModel struct {
	ID           uint            `gorm:"primarykey"`
	Name         string          `gorm:"not null;size:100"`
	Slug         string          `gorm:"uniqueIndex;not null;size:100"`
	Description  string          `gorm:"type:text"`
	MonthlyPrice decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	YearlyPrice  decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Currency     string          `gorm:"not null;size:3"`
	IsActive     bool            `gorm:"not null;index"`
	IsFree       bool            `gorm:"not null;default:false"`
	// Features is kept as written, even when it no longer parses, so that
	// resolution can fail open on it.
	Features  datatypes.JSON
	SortOrder int `gorm:"default:0"`
	Version   int `gorm:"not null;default:1"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName specifies the table name for GORM
func (PlanModel) TableName() string {
	return constants.TablePlans
}

// BeforeCreate hook for GORM
func (p *PlanModel) BeforeCreate(tx *gorm.DB) error {
	if p.Currency == "" {
		p.Currency = constants.DefaultCurrency
	}
	if len(p.Features) == 0 {
		p.Features = datatypes.JSON("{}")
	}
	return nil
}
