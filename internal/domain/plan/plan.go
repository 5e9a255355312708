// Package plan holds administrator-managed subscription tiers and per-user
// overrides. It stores features documents but leaves their meaning to the
// entitlement package.
package plan

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tasklane/tasklane/internal/domain/entitlement"
)

var validCurrencies = map[string]bool{
	"USD": true,
	"EUR": true,
	"GBP": true,
	"CAD": true,
	"AUD": true,
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

type Plan struct {
	id           uint
	name         string
	slug         string
	description  string
	monthlyPrice decimal.Decimal
	yearlyPrice  decimal.Decimal
	currency     string
	isActive     bool
	isFree       bool
	features     []byte
	sortOrder    int
	version      int
	createdAt    time.Time
	updatedAt    time.Time
}

// Pricing groups the monetary attributes of a plan.
type Pricing struct {
	Monthly  decimal.Decimal
	Yearly   decimal.Decimal
	Currency string
	Free     bool
}

func (p Pricing) validate() error {
	if !validCurrencies[p.Currency] {
		return fmt.Errorf("invalid currency code: %s", p.Currency)
	}
	if p.Monthly.IsNegative() || p.Yearly.IsNegative() {
		return fmt.Errorf("%w: prices cannot be negative", ErrInvalidPrice)
	}
	if p.Free && (!p.Monthly.IsZero() || !p.Yearly.IsZero()) {
		return fmt.Errorf("%w: a free plan must have zero prices", ErrInvalidPrice)
	}
	return nil
}

func NewPlan(name, slug, description string, pricing Pricing) (*Plan, error) {
	name = strings.TrimSpace(name)
	if err := validateIdentity(name, slug); err != nil {
		return nil, err
	}
	if err := pricing.validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	return &Plan{
		name:         name,
		slug:         slug,
		description:  description,
		monthlyPrice: pricing.Monthly,
		yearlyPrice:  pricing.Yearly,
		currency:     pricing.Currency,
		isActive:     true,
		isFree:       pricing.Free,
		features:     []byte("{}"),
		version:      1,
		createdAt:    now,
		updatedAt:    now,
	}, nil
}

// ReconstructPlan rebuilds a plan from storage. Stored features are kept
// verbatim, even when malformed, so resolution can fail open on them.
func ReconstructPlan(id uint, name, slug, description string, pricing Pricing,
	isActive bool, features []byte, sortOrder, version int,
	createdAt, updatedAt time.Time) (*Plan, error) {

	if id == 0 {
		return nil, fmt.Errorf("plan ID cannot be zero")
	}
	if len(features) == 0 {
		features = []byte("{}")
	}

	return &Plan{
		id:           id,
		name:         name,
		slug:         slug,
		description:  description,
		monthlyPrice: pricing.Monthly,
		yearlyPrice:  pricing.Yearly,
		currency:     pricing.Currency,
		isActive:     isActive,
		isFree:       pricing.Free,
		features:     features,
		sortOrder:    sortOrder,
		version:      version,
		createdAt:    createdAt,
		updatedAt:    updatedAt,
	}, nil
}

func validateIdentity(name, slug string) error {
	if name == "" {
		return fmt.Errorf("plan name is required")
	}
	if len(name) > 100 {
		return fmt.Errorf("plan name too long (max 100 characters)")
	}
	if slug == "" {
		return fmt.Errorf("plan slug is required")
	}
	if len(slug) > 100 {
		return fmt.Errorf("plan slug too long (max 100 characters)")
	}
	if !slugPattern.MatchString(slug) {
		return fmt.Errorf("invalid plan slug: %s", slug)
	}
	return nil
}

func (p *Plan) ID() uint {
	return p.id
}

func (p *Plan) SetID(id uint) error {
	if p.id != 0 {
		return fmt.Errorf("plan ID is already set")
	}
	if id == 0 {
		return fmt.Errorf("plan ID cannot be zero")
	}
	p.id = id
	return nil
}

func (p *Plan) Name() string {
	return p.name
}

func (p *Plan) Slug() string {
	return p.slug
}

func (p *Plan) Description() string {
	return p.description
}

func (p *Plan) Pricing() Pricing {
	return Pricing{
		Monthly:  p.monthlyPrice,
		Yearly:   p.yearlyPrice,
		Currency: p.currency,
		Free:     p.isFree,
	}
}

func (p *Plan) IsActive() bool {
	return p.isActive
}

func (p *Plan) IsFree() bool {
	return p.isFree
}

// Features returns the raw features document.
func (p *Plan) Features() []byte {
	return p.features
}

func (p *Plan) SortOrder() int {
	return p.sortOrder
}

// Version returns the aggregate version for optimistic locking
func (p *Plan) Version() int {
	return p.version
}

func (p *Plan) CreatedAt() time.Time {
	return p.createdAt
}

func (p *Plan) UpdatedAt() time.Time {
	return p.updatedAt
}

func (p *Plan) touch() {
	p.updatedAt = time.Now()
	p.version++
}

func (p *Plan) UpdateDetails(name, description string) error {
	name = strings.TrimSpace(name)
	if err := validateIdentity(name, p.slug); err != nil {
		return err
	}
	p.name = name
	p.description = description
	p.touch()
	return nil
}

func (p *Plan) UpdatePricing(pricing Pricing) error {
	if err := pricing.validate(); err != nil {
		return err
	}
	p.monthlyPrice = pricing.Monthly
	p.yearlyPrice = pricing.Yearly
	p.currency = pricing.Currency
	p.isFree = pricing.Free
	p.touch()
	return nil
}

// SetFeatures replaces the features document. Unlike reads, writes reject
// any document that does not parse cleanly.
func (p *Plan) SetFeatures(raw []byte) error {
	normalized, err := normalizeFeatures(raw)
	if err != nil {
		return err
	}
	p.features = normalized
	p.touch()
	return nil
}

func (p *Plan) SetSortOrder(order int) {
	p.sortOrder = order
	p.touch()
}

func (p *Plan) Activate() {
	if p.isActive {
		return
	}
	p.isActive = true
	p.touch()
}

// Deactivate hides the plan from new subscriptions. Plans are never deleted
// while referenced.
func (p *Plan) Deactivate() {
	if !p.isActive {
		return
	}
	p.isActive = false
	p.touch()
}

// Document parses the stored features. The document is always usable; the
// error reports anything that was dropped.
func (p *Plan) Document() (entitlement.Document, error) {
	return entitlement.ParseDocument(p.features)
}

func normalizeFeatures(raw []byte) ([]byte, error) {
	doc, err := entitlement.ParseDocument(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFeatures, err)
	}
	data, err := doc.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFeatures, err)
	}
	return data, nil
}
