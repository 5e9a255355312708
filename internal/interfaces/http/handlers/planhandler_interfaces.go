package handlers

import (
	"context"

	"github.com/tasklane/tasklane/internal/application/plan/dto"
	"github.com/tasklane/tasklane/internal/application/plan/usecases"
)

// Use case interfaces for PlanHandler

type createPlanUseCase interface {
	Execute(ctx context.Context, cmd usecases.CreatePlanCommand) (*dto.PlanDTO, error)
}

type updatePlanUseCase interface {
	Execute(ctx context.Context, cmd usecases.UpdatePlanCommand) (*dto.PlanDTO, error)
}

type getPlanUseCase interface {
	Execute(ctx context.Context, planID uint) (*dto.PlanDTO, error)
}

type listPlansUseCase interface {
	Execute(ctx context.Context, query usecases.ListPlansQuery) (*usecases.ListPlansResult, error)
}

type getPublicPlansUseCase interface {
	Execute(ctx context.Context) ([]*dto.PublicPlanDTO, error)
}

type setPlanStatusUseCase interface {
	Execute(ctx context.Context, planID uint, active bool) (*dto.PlanDTO, error)
}

// Use case interfaces for OverrideHandler

type upsertOverrideUseCase interface {
	Execute(ctx context.Context, cmd usecases.UpsertOverrideCommand) (*dto.OverrideDTO, error)
}

type manageOverrideUseCase interface {
	Get(ctx context.Context, userID uint) (*dto.OverrideDTO, error)
	SetStatus(ctx context.Context, userID uint, active bool) (*dto.OverrideDTO, error)
	Delete(ctx context.Context, userID uint) error
}
