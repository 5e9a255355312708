package plan

import (
	"fmt"
	"time"

	"github.com/tasklane/tasklane/internal/domain/entitlement"
)

// PlanOverride is an administrator-authored exception for one user, layered
// on top of a base plan. At most one exists per user.
type PlanOverride struct {
	id        uint
	userID    uint
	planID    uint
	features  []byte
	isActive  bool
	note      string
	version   int
	createdAt time.Time
	updatedAt time.Time
}

func NewPlanOverride(userID, planID uint, features []byte, note string) (*PlanOverride, error) {
	if userID == 0 {
		return nil, fmt.Errorf("user ID is required")
	}
	if planID == 0 {
		return nil, fmt.Errorf("base plan ID is required")
	}
	normalized, err := normalizeFeatures(features)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	return &PlanOverride{
		userID:    userID,
		planID:    planID,
		features:  normalized,
		isActive:  true,
		note:      note,
		version:   1,
		createdAt: now,
		updatedAt: now,
	}, nil
}

func ReconstructPlanOverride(id, userID, planID uint, features []byte, isActive bool,
	note string, version int, createdAt, updatedAt time.Time) (*PlanOverride, error) {

	if id == 0 {
		return nil, fmt.Errorf("override ID cannot be zero")
	}
	if len(features) == 0 {
		features = []byte("{}")
	}

	return &PlanOverride{
		id:        id,
		userID:    userID,
		planID:    planID,
		features:  features,
		isActive:  isActive,
		note:      note,
		version:   version,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}, nil
}

func (o *PlanOverride) ID() uint {
	return o.id
}

func (o *PlanOverride) SetID(id uint) error {
	if o.id != 0 {
		return fmt.Errorf("override ID is already set")
	}
	if id == 0 {
		return fmt.Errorf("override ID cannot be zero")
	}
	o.id = id
	return nil
}

func (o *PlanOverride) UserID() uint {
	return o.userID
}

func (o *PlanOverride) PlanID() uint {
	return o.planID
}

func (o *PlanOverride) Features() []byte {
	return o.features
}

func (o *PlanOverride) IsActive() bool {
	return o.isActive
}

func (o *PlanOverride) Note() string {
	return o.note
}

func (o *PlanOverride) Version() int {
	return o.version
}

func (o *PlanOverride) CreatedAt() time.Time {
	return o.createdAt
}

func (o *PlanOverride) UpdatedAt() time.Time {
	return o.updatedAt
}

// IsEffective reports whether the override takes part in resolution. An
// inactive override is treated as absent.
func (o *PlanOverride) IsEffective() bool {
	return o != nil && o.isActive
}

func (o *PlanOverride) touch() {
	o.updatedAt = time.Now()
	o.version++
}

func (o *PlanOverride) SetFeatures(raw []byte) error {
	normalized, err := normalizeFeatures(raw)
	if err != nil {
		return err
	}
	o.features = normalized
	o.touch()
	return nil
}

func (o *PlanOverride) SetNote(note string) {
	o.note = note
	o.touch()
}

// Rebase points the override at a different base plan.
func (o *PlanOverride) Rebase(planID uint) error {
	if planID == 0 {
		return fmt.Errorf("base plan ID is required")
	}
	if planID == o.planID {
		return nil
	}
	o.planID = planID
	o.touch()
	return nil
}

func (o *PlanOverride) Activate() {
	if o.isActive {
		return
	}
	o.isActive = true
	o.touch()
}

func (o *PlanOverride) Deactivate() {
	if !o.isActive {
		return
	}
	o.isActive = false
	o.touch()
}

func (o *PlanOverride) Document() (entitlement.Document, error) {
	return entitlement.ParseDocument(o.features)
}
