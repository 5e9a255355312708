package entitlement

import "slices"

// The queries below are pure. A nil policy stands for a user without an
// active subscription and denies everything; public allow-lists are applied
// by callers.

// IsFeatureEnabled is true unless the feature is explicitly false.
func (p *EffectivePolicy) IsFeatureEnabled(feature string) bool {
	if p == nil {
		return false
	}
	value, ok := p.Document.Features[feature]
	if !ok {
		return true
	}
	return !value.IsExplicitlyDisabled()
}

// PageAccess returns the configured level for a page, AccessNone when absent.
func (p *EffectivePolicy) PageAccess(page string) AccessLevel {
	if p == nil {
		return AccessNone
	}
	level, ok := p.Document.PageAccess[page]
	if !ok {
		return AccessNone
	}
	return level
}

// HasPermission is false unless the permission is explicitly granted.
func (p *EffectivePolicy) HasPermission(permission string) bool {
	if p == nil {
		return false
	}
	return p.Document.Permissions[permission]
}

// IsFieldVisible is true when the entity has no field list, otherwise the
// field must be listed.
func (p *EffectivePolicy) IsFieldVisible(entity, field string) bool {
	if p == nil {
		return false
	}
	fields, ok := p.Document.VisibleFields[entity]
	if !ok {
		return true
	}
	return slices.Contains(fields, field)
}

// IsFieldGoverned reports whether the field is subject to visibility policy
// at all. Ungoverned fields are never stripped from responses.
func (p *EffectivePolicy) IsFieldGoverned(entity, field string) bool {
	if p == nil {
		return false
	}
	fields, ok := p.GovernedFields[entity]
	if !ok {
		return false
	}
	_, found := slices.BinarySearch(fields, field)
	return found
}

// LimitCheck is the outcome of comparing usage against a limit.
type LimitCheck struct {
	Allowed   bool  `json:"allowed"`
	Current   int64 `json:"current"`
	Limit     int64 `json:"limit"`
	Unlimited bool  `json:"unlimited"`
}

// Limit returns the configured ceiling for name. The limits map is consulted
// first, then a numeric feature of the same name. ok is false when neither is
// set.
func (p *EffectivePolicy) Limit(name string) (int64, bool) {
	if p == nil {
		return 0, false
	}
	if limit, ok := p.Document.Limits[name]; ok {
		return limit, true
	}
	if value, ok := p.Document.Features[name]; ok {
		if n, isNumber := value.Number(); isNumber {
			limit, _ := limitFromNumber(n)
			return limit, true
		}
	}
	return 0, false
}

// CheckLimit allows when the limit is unset or -1, otherwise iff current is
// below the limit. A nil policy never allows.
func (p *EffectivePolicy) CheckLimit(name string, current int64) LimitCheck {
	if p == nil {
		return LimitCheck{Allowed: false, Current: current}
	}
	limit, ok := p.Limit(name)
	if !ok || limit == UnlimitedValue {
		return LimitCheck{Allowed: true, Current: current, Limit: UnlimitedValue, Unlimited: true}
	}
	return LimitCheck{Allowed: current < limit, Current: current, Limit: limit}
}

// FeatureSnapshot returns boolean and numeric features for client-side
// upgrade prompts. Features of other kinds are left out.
func (p *EffectivePolicy) FeatureSnapshot() map[string]any {
	if p == nil {
		return map[string]any{}
	}
	snapshot := make(map[string]any, len(p.Document.Features))
	for key, value := range p.Document.Features {
		if b, ok := value.Bool(); ok {
			snapshot[key] = b
			continue
		}
		if n, ok := value.Number(); ok {
			snapshot[key] = n
		}
	}
	return snapshot
}
