package dto

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tasklane/tasklane/internal/domain/plan"
)

type PlanDTO struct {
	ID           uint            `json:"id"`
	Name         string          `json:"name"`
	Slug         string          `json:"slug"`
	Description  string          `json:"description"`
	MonthlyPrice decimal.Decimal `json:"monthly_price"`
	YearlyPrice  decimal.Decimal `json:"yearly_price"`
	Currency     string          `json:"currency"`
	IsActive     bool            `json:"is_active"`
	IsFree       bool            `json:"is_free"`
	Features     json.RawMessage `json:"features"`
	SortOrder    int             `json:"sort_order"`
	Version      int             `json:"version"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// PublicPlanDTO is the pricing-page view of a plan.
type PublicPlanDTO struct {
	ID              uint            `json:"id"`
	Name            string          `json:"name"`
	Slug            string          `json:"slug"`
	DescriptionHTML string          `json:"description_html"`
	MonthlyPrice    decimal.Decimal `json:"monthly_price"`
	YearlyPrice     decimal.Decimal `json:"yearly_price"`
	Currency        string          `json:"currency"`
	IsFree          bool            `json:"is_free"`
	Features        json.RawMessage `json:"features"`
}

type OverrideDTO struct {
	ID        uint            `json:"id"`
	UserID    uint            `json:"user_id"`
	PlanID    uint            `json:"plan_id"`
	Features  json.RawMessage `json:"features"`
	IsActive  bool            `json:"is_active"`
	Note      string          `json:"note,omitempty"`
	Version   int             `json:"version"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func ToPlanDTO(p *plan.Plan) *PlanDTO {
	if p == nil {
		return nil
	}
	pricing := p.Pricing()
	return &PlanDTO{
		ID:           p.ID(),
		Name:         p.Name(),
		Slug:         p.Slug(),
		Description:  p.Description(),
		MonthlyPrice: pricing.Monthly,
		YearlyPrice:  pricing.Yearly,
		Currency:     pricing.Currency,
		IsActive:     p.IsActive(),
		IsFree:       p.IsFree(),
		Features:     rawFeatures(p.Features()),
		SortOrder:    p.SortOrder(),
		Version:      p.Version(),
		CreatedAt:    p.CreatedAt(),
		UpdatedAt:    p.UpdatedAt(),
	}
}

func ToPlanDTOs(plans []*plan.Plan) []*PlanDTO {
	out := make([]*PlanDTO, 0, len(plans))
	for _, p := range plans {
		out = append(out, ToPlanDTO(p))
	}
	return out
}

func ToOverrideDTO(o *plan.PlanOverride) *OverrideDTO {
	if o == nil {
		return nil
	}
	return &OverrideDTO{
		ID:        o.ID(),
		UserID:    o.UserID(),
		PlanID:    o.PlanID(),
		Features:  rawFeatures(o.Features()),
		IsActive:  o.IsActive(),
		Note:      o.Note(),
		Version:   o.Version(),
		CreatedAt: o.CreatedAt(),
		UpdatedAt: o.UpdatedAt(),
	}
}

// rawFeatures returns stored features for embedding in a response. A stored
// document that is not valid JSON is reported as an empty object.
func rawFeatures(features []byte) json.RawMessage {
	if !json.Valid(features) {
		return json.RawMessage("{}")
	}
	return json.RawMessage(features)
}
