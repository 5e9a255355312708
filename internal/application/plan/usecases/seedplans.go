package usecases

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/tasklane/tasklane/internal/domain/plan"
	"github.com/tasklane/tasklane/internal/shared/constants"
	"github.com/tasklane/tasklane/internal/shared/logger"
)

// SeedFile is the YAML layout of a plan seed file.
type SeedFile struct {
	Plans []SeedPlan `yaml:"plans"`
}

type SeedPlan struct {
	Name         string         `yaml:"name"`
	Slug         string         `yaml:"slug"`
	Description  string         `yaml:"description"`
	MonthlyPrice string         `yaml:"monthly_price"`
	YearlyPrice  string         `yaml:"yearly_price"`
	Currency     string         `yaml:"currency"`
	IsFree       bool           `yaml:"is_free"`
	Inactive     bool           `yaml:"inactive"`
	SortOrder    int            `yaml:"sort_order"`
	Features     map[string]any `yaml:"features"`
}

func (s SeedPlan) pricing() (plan.Pricing, error) {
	pricing := plan.Pricing{Currency: s.Currency, Free: s.IsFree}
	if pricing.Currency == "" {
		pricing.Currency = constants.DefaultCurrency
	}
	var err error
	if pricing.Monthly, err = parsePrice(s.MonthlyPrice); err != nil {
		return plan.Pricing{}, fmt.Errorf("monthly_price: %w", err)
	}
	if pricing.Yearly, err = parsePrice(s.YearlyPrice); err != nil {
		return plan.Pricing{}, fmt.Errorf("yearly_price: %w", err)
	}
	return pricing, nil
}

func parsePrice(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

// ParseSeedFile decodes a YAML seed document.
func ParseSeedFile(data []byte) (*SeedFile, error) {
	var file SeedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	return &file, nil
}

// LoadSeedFile reads and decodes a YAML seed file from disk.
func LoadSeedFile(path string) (*SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return ParseSeedFile(data)
}

type SeedResult struct {
	Created int
	Updated int
}

// SeedPlansUseCase upserts plans by slug. A seed file is applied all or
// nothing.
type SeedPlansUseCase struct {
	planRepo  plan.PlanRepository
	txManager TransactionRunner
	notifier  *ChangeNotifier
	logger    logger.Interface
}

func NewSeedPlansUseCase(planRepo plan.PlanRepository, txManager TransactionRunner, notifier *ChangeNotifier, logger logger.Interface) *SeedPlansUseCase {
	return &SeedPlansUseCase{
		planRepo:  planRepo,
		txManager: txManager,
		notifier:  notifier,
		logger:    logger,
	}
}

func (uc *SeedPlansUseCase) Execute(ctx context.Context, file *SeedFile) (*SeedResult, error) {
	var (
		result  SeedResult
		updated []uint
	)
	err := uc.txManager.RunInTransaction(ctx, func(txCtx context.Context) error {
		result, updated = SeedResult{}, nil
		for _, seed := range file.Plans {
			id, created, err := uc.upsert(txCtx, seed)
			if err != nil {
				return fmt.Errorf("plan %q: %w", seed.Slug, err)
			}
			if created {
				result.Created++
			} else {
				result.Updated++
				updated = append(updated, id)
			}
		}
		return nil
	})
	if err != nil {
		uc.logger.Errorw("plan seed rolled back", "error", err)
		return nil, err
	}

	for _, id := range updated {
		uc.notifier.PlanChanged(ctx, id)
	}
	uc.logger.Infow("plans seeded", "created", result.Created, "updated", result.Updated)
	return &result, nil
}

func (uc *SeedPlansUseCase) upsert(ctx context.Context, seed SeedPlan) (uint, bool, error) {
	pricing, err := seed.pricing()
	if err != nil {
		return 0, false, err
	}

	features := []byte("{}")
	if len(seed.Features) > 0 {
		if features, err = json.Marshal(seed.Features); err != nil {
			return 0, false, fmt.Errorf("features: %w", err)
		}
	}

	existing, err := uc.planRepo.GetBySlug(ctx, seed.Slug)
	if err != nil && !stderrors.Is(err, plan.ErrPlanNotFound) {
		return 0, false, err
	}

	if existing == nil {
		p, err := plan.NewPlan(seed.Name, seed.Slug, seed.Description, pricing)
		if err != nil {
			return 0, false, err
		}
		if err := applySeed(p, seed, features); err != nil {
			return 0, false, err
		}
		if err := uc.planRepo.Create(ctx, p); err != nil {
			return 0, false, err
		}
		return p.ID(), true, nil
	}

	if err := existing.UpdateDetails(seed.Name, seed.Description); err != nil {
		return 0, false, err
	}
	if err := existing.UpdatePricing(pricing); err != nil {
		return 0, false, err
	}
	if err := applySeed(existing, seed, features); err != nil {
		return 0, false, err
	}
	if err := uc.planRepo.Update(ctx, existing); err != nil {
		return 0, false, err
	}
	return existing.ID(), false, nil
}

func applySeed(p *plan.Plan, seed SeedPlan, features []byte) error {
	if err := p.SetFeatures(features); err != nil {
		return err
	}
	if p.SortOrder() != seed.SortOrder {
		p.SetSortOrder(seed.SortOrder)
	}
	if seed.Inactive {
		p.Deactivate()
	} else {
		p.Activate()
	}
	return nil
}
