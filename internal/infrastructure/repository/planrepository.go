package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/tasklane/tasklane/internal/domain/plan"
	"github.com/tasklane/tasklane/internal/infrastructure/persistence/mappers"
	"github.com/tasklane/tasklane/internal/infrastructure/persistence/models"
	"github.com/tasklane/tasklane/internal/shared/db"
	"github.com/tasklane/tasklane/internal/shared/logger"
	"github.com/tasklane/tasklane/internal/shared/utils"
)

type PlanRepositoryImpl struct {
	db     *gorm.DB
	mapper mappers.PlanMapper
	logger logger.Interface
}

func NewPlanRepository(db *gorm.DB, logger logger.Interface) plan.PlanRepository {
	return &PlanRepositoryImpl{
		db:     db,
		mapper: mappers.NewPlanMapper(),
		logger: logger,
	}
}

func (r *PlanRepositoryImpl) Create(ctx context.Context, p *plan.Plan) error {
	model := r.mapper.ToModel(p)

	if err := db.GetTxFromContext(ctx, r.db).Create(model).Error; err != nil {
		r.logger.Errorw("failed to create plan", "error", err, "slug", p.Slug())
		return fmt.Errorf("failed to create plan: %w", err)
	}

	if err := p.SetID(model.ID); err != nil {
		return err
	}

	r.logger.Infow("plan created successfully", "plan_id", model.ID, "slug", p.Slug())
	return nil
}

func (r *PlanRepositoryImpl) GetByID(ctx context.Context, id uint) (*plan.Plan, error) {
	var model models.PlanModel
	if err := db.GetTxFromContext(ctx, r.db).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, plan.ErrPlanNotFound
		}
		r.logger.Errorw("failed to get plan by ID", "error", err, "plan_id", id)
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	return r.mapper.ToEntity(&model)
}

func (r *PlanRepositoryImpl) GetBySlug(ctx context.Context, slug string) (*plan.Plan, error) {
	var model models.PlanModel
	if err := db.GetTxFromContext(ctx, r.db).Where("slug = ?", slug).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, plan.ErrPlanNotFound
		}
		r.logger.Errorw("failed to get plan by slug", "error", err, "slug", slug)
		return nil, fmt.Errorf("failed to get plan by slug: %w", err)
	}
	return r.mapper.ToEntity(&model)
}

func (r *PlanRepositoryImpl) Update(ctx context.Context, p *plan.Plan) error {
	model := r.mapper.ToModel(p)

	// A map keeps zero values such as is_active=false in the update.
	result := db.GetTxFromContext(ctx, r.db).Model(&models.PlanModel{}).
		Where("id = ?", p.ID()).
		Updates(map[string]interface{}{
			"name":          model.Name,
			"description":   model.Description,
			"monthly_price": model.MonthlyPrice,
			"yearly_price":  model.YearlyPrice,
			"currency":      model.Currency,
			"is_active":     model.IsActive,
			"is_free":       model.IsFree,
			"features":      model.Features,
			"sort_order":    model.SortOrder,
			"version":       model.Version,
			"updated_at":    model.UpdatedAt,
		})
	if result.Error != nil {
		r.logger.Errorw("failed to update plan", "error", result.Error, "plan_id", p.ID())
		return fmt.Errorf("failed to update plan: %w", result.Error)
	}

	// Note: RowsAffected may be 0 when updated values are identical to existing values.

	r.logger.Infow("plan updated successfully", "plan_id", p.ID(), "version", p.Version())
	return nil
}

func (r *PlanRepositoryImpl) List(ctx context.Context, filter plan.PlanFilter) ([]*plan.Plan, int64, error) {
	query := db.GetTxFromContext(ctx, r.db).Model(&models.PlanModel{})

	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if filter.IsFree != nil {
		query = query.Where("is_free = ?", *filter.IsFree)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		r.logger.Errorw("failed to count plans", "error", err)
		return nil, 0, fmt.Errorf("failed to count plans: %w", err)
	}

	page := utils.ValidatePagination(filter.Page, filter.PageSize)

	var planModels []*models.PlanModel
	if err := query.Order("sort_order ASC, id ASC").
		Offset(page.Offset()).
		Limit(page.PageSize).
		Find(&planModels).Error; err != nil {
		r.logger.Errorw("failed to list plans", "error", err)
		return nil, 0, fmt.Errorf("failed to list plans: %w", err)
	}

	plans, err := r.mapper.ToEntities(planModels)
	if err != nil {
		return nil, 0, err
	}
	return plans, total, nil
}

func (r *PlanRepositoryImpl) GetActive(ctx context.Context) ([]*plan.Plan, error) {
	var planModels []*models.PlanModel
	err := db.GetTxFromContext(ctx, r.db).
		Where("is_active = ?", true).
		Order("sort_order ASC, id ASC").
		Find(&planModels).Error
	if err != nil {
		r.logger.Errorw("failed to get active plans", "error", err)
		return nil, fmt.Errorf("failed to get active plans: %w", err)
	}
	return r.mapper.ToEntities(planModels)
}

func (r *PlanRepositoryImpl) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := db.GetTxFromContext(ctx, r.db).Model(&models.PlanModel{}).
		Where("slug = ?", slug).
		Count(&count).Error
	if err != nil {
		r.logger.Errorw("failed to check plan slug existence", "error", err, "slug", slug)
		return false, fmt.Errorf("failed to check plan slug existence: %w", err)
	}
	return count > 0, nil
}
