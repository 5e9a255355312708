package mappers

import (
	"fmt"

	"gorm.io/datatypes"

	"github.com/tasklane/tasklane/internal/domain/plan"
	"github.com/tasklane/tasklane/internal/infrastructure/persistence/models"
)

type PlanOverrideMapper interface {
	ToEntity(model *models.PlanOverrideModel) (*plan.PlanOverride, error)
	ToModel(entity *plan.PlanOverride) *models.PlanOverrideModel
}

type planOverrideMapper struct{}

func NewPlanOverrideMapper() PlanOverrideMapper {
	return &planOverrideMapper{}
}

func (m *planOverrideMapper) ToEntity(model *models.PlanOverrideModel) (*plan.PlanOverride, error) {
	if model == nil {
		return nil, nil
	}
	entity, err := plan.ReconstructPlanOverride(
		model.ID,
		model.UserID,
		model.PlanID,
		[]byte(model.Features),
		model.IsActive,
		model.Note,
		model.Version,
		model.CreatedAt,
		model.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct plan override entity: %w", err)
	}
	return entity, nil
}

func (m *planOverrideMapper) ToModel(entity *plan.PlanOverride) *models.PlanOverrideModel {
	if entity == nil {
		return nil
	}
	return &models.PlanOverrideModel{
		ID:        entity.ID(),
		UserID:    entity.UserID(),
		PlanID:    entity.PlanID(),
		Features:  datatypes.JSON(entity.Features()),
		IsActive:  entity.IsActive(),
		Note:      entity.Note(),
		Version:   entity.Version(),
		CreatedAt: entity.CreatedAt(),
		UpdatedAt: entity.UpdatedAt(),
	}
}
