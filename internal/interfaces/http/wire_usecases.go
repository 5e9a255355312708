package http

import (
	"context"

	"github.com/tasklane/tasklane/internal/application/plan/usecases"
	"github.com/tasklane/tasklane/internal/shared/db"
	"github.com/tasklane/tasklane/internal/shared/services/markdown"
)

type allUseCases struct {
	createPlanUC     *usecases.CreatePlanUseCase
	updatePlanUC     *usecases.UpdatePlanUseCase
	getPlanUC        *usecases.GetPlanUseCase
	listPlansUC      *usecases.ListPlansUseCase
	getPublicPlansUC *usecases.GetPublicPlansUseCase
	setPlanStatusUC  *usecases.SetPlanStatusUseCase
	upsertOverrideUC *usecases.UpsertOverrideUseCase
	manageOverrideUC *usecases.ManageOverrideUseCase
	seedPlansUC      *usecases.SeedPlansUseCase
}

// ============================================================
// Section 3: Plan administration
// ============================================================

func (c *Container) initUseCases() {
	log := c.log.Named("plan")
	repos := c.repos

	c.ucs = &allUseCases{
		createPlanUC:     usecases.NewCreatePlanUseCase(repos.planRepo, log),
		updatePlanUC:     usecases.NewUpdatePlanUseCase(repos.planRepo, repos.overrideRepo, c.notifier, log),
		getPlanUC:        usecases.NewGetPlanUseCase(repos.planRepo, log),
		listPlansUC:      usecases.NewListPlansUseCase(repos.planRepo, log),
		getPublicPlansUC: usecases.NewGetPublicPlansUseCase(repos.planRepo, markdown.NewRenderer(), log),
		setPlanStatusUC:  usecases.NewSetPlanStatusUseCase(repos.planRepo, repos.subscriptionRepo, c.notifier, log),
		upsertOverrideUC: usecases.NewUpsertOverrideUseCase(repos.planRepo, repos.overrideRepo, repos.subscriptionRepo, c.notifier, log),
		manageOverrideUC: usecases.NewManageOverrideUseCase(repos.overrideRepo, c.notifier, log),
		seedPlansUC:      usecases.NewSeedPlansUseCase(repos.planRepo, db.NewTransactionManager(c.db), c.notifier, log),
	}
}

// SeedPlans upserts the plans of a seed file. Changed plans are invalidated
// and announced to the other instances like any admin edit.
func (c *Container) SeedPlans(ctx context.Context, file *usecases.SeedFile) (*usecases.SeedResult, error) {
	return c.ucs.seedPlansUC.Execute(ctx, file)
}
