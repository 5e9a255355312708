package mappers

import (
	"fmt"

	"gorm.io/datatypes"

	"github.com/tasklane/tasklane/internal/domain/plan"
	"github.com/tasklane/tasklane/internal/infrastructure/persistence/models"
)

// PlanMapper handles the conversion between domain entities and persistence models
type PlanMapper interface {
	ToEntity(model *models.PlanModel) (*plan.Plan, error)
	ToModel(entity *plan.Plan) *models.PlanModel
	ToEntities(models []*models.PlanModel) ([]*plan.Plan, error)
}

type planMapper struct{}

func NewPlanMapper() PlanMapper {
	return &planMapper{}
}

func (m *planMapper) ToEntity(model *models.PlanModel) (*plan.Plan, error) {
	if model == nil {
		return nil, nil
	}

	entity, err := plan.ReconstructPlan(
		model.ID,
		model.Name,
		model.Slug,
		model.Description,
		plan.Pricing{
			Monthly:  model.MonthlyPrice,
			Yearly:   model.YearlyPrice,
			Currency: model.Currency,
			Free:     model.IsFree,
		},
		model.IsActive,
		[]byte(model.Features),
		model.SortOrder,
		model.Version,
		model.CreatedAt,
		model.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct plan entity: %w", err)
	}
	return entity, nil
}

func (m *planMapper) ToModel(entity *plan.Plan) *models.PlanModel {
	if entity == nil {
		return nil
	}
	pricing := entity.Pricing()
	return &models.PlanModel{
		ID:           entity.ID(),
		Name:         entity.Name(),
		Slug:         entity.Slug(),
		Description:  entity.Description(),
		MonthlyPrice: pricing.Monthly,
		YearlyPrice:  pricing.Yearly,
		Currency:     pricing.Currency,
		IsActive:     entity.IsActive(),
		IsFree:       pricing.Free,
		Features:     datatypes.JSON(entity.Features()),
		SortOrder:    entity.SortOrder(),
		Version:      entity.Version(),
		CreatedAt:    entity.CreatedAt(),
		UpdatedAt:    entity.UpdatedAt(),
	}
}

func (m *planMapper) ToEntities(models []*models.PlanModel) ([]*plan.Plan, error) {
	entities := make([]*plan.Plan, 0, len(models))
	for i, model := range models {
		entity, err := m.ToEntity(model)
		if err != nil {
			return nil, fmt.Errorf("failed to map model at index %d (ID %d): %w", i, model.ID, err)
		}
		if entity != nil {
			entities = append(entities, entity)
		}
	}
	return entities, nil
}
