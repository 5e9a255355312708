package entitlement

import (
	"slices"
	"sort"
	"time"
)

// Merge layers an override document onto a base document and returns a new
// document; neither input is modified.
//
// Feature flags, page access, permissions and limits merge per key with the
// override winning. Visible fields merge per entity, and an entity listed in
// the override replaces the base list for that entity entirely.
func Merge(base, override Document) Document {
	return Document{
		Features:      mergeMap(base.Features, override.Features),
		PageAccess:    mergeMap(base.PageAccess, override.PageAccess),
		VisibleFields: mergeFieldLists(base.VisibleFields, override.VisibleFields),
		Permissions:   mergeMap(base.Permissions, override.Permissions),
		Limits:        mergeMap(base.Limits, override.Limits),
	}
}

func mergeMap[V any](base, override map[string]V) map[string]V {
	if base == nil && override == nil {
		return nil
	}
	out := make(map[string]V, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

func mergeFieldLists(base, override map[string][]string) map[string][]string {
	if base == nil && override == nil {
		return nil
	}
	out := make(map[string][]string, len(base)+len(override))
	// An empty list hides every governed field and must stay non-nil so it
	// survives a JSON round trip.
	for entity, fields := range base {
		out[entity] = append([]string{}, fields...)
	}
	for entity, fields := range override {
		out[entity] = append([]string{}, fields...)
	}
	return out
}

// FieldCatalog lists, per entity, the fields that are subject to
// visibility policy regardless of whether a document mentions them.
type FieldCatalog map[string][]string

// Governs reports whether the catalogue lists field for entity.
func (c FieldCatalog) Governs(entity, field string) bool {
	return slices.Contains(c[entity], field)
}

// EffectivePolicy is the merged policy for one user. It is derived on every
// resolution and never persisted.
type EffectivePolicy struct {
	UserID     uint     `json:"user_id"`
	PlanID     uint     `json:"plan_id"`
	OverrideID uint     `json:"override_id,omitempty"`
	Document   Document `json:"document"`
	// GovernedFields is the per-entity set of fields the response filter may
	// strip, sorted. Fields outside it always pass through.
	GovernedFields map[string][]string `json:"governed_fields,omitempty"`
	ResolvedAt     time.Time           `json:"resolved_at"`
}

// NewEffectivePolicy merges base and override for a user. Pass a zero
// overrideID and an empty override document when the user has no active
// override.
func NewEffectivePolicy(userID, planID, overrideID uint, base, override Document, catalog FieldCatalog, now time.Time) *EffectivePolicy {
	return &EffectivePolicy{
		UserID:         userID,
		PlanID:         planID,
		OverrideID:     overrideID,
		Document:       Merge(base, override),
		GovernedFields: governedFields(catalog, base.VisibleFields, override.VisibleFields),
		ResolvedAt:     now,
	}
}

// HasOverride reports whether an active override contributed to the policy.
func (p *EffectivePolicy) HasOverride() bool {
	return p != nil && p.OverrideID != 0
}

func governedFields(catalog FieldCatalog, lists ...map[string][]string) map[string][]string {
	sets := make(map[string]map[string]struct{})
	add := func(entity string, fields []string) {
		set, ok := sets[entity]
		if !ok {
			set = make(map[string]struct{}, len(fields))
			sets[entity] = set
		}
		for _, f := range fields {
			set[f] = struct{}{}
		}
	}

	for entity, fields := range catalog {
		add(entity, fields)
	}
	for _, list := range lists {
		for entity, fields := range list {
			add(entity, fields)
		}
	}

	if len(sets) == 0 {
		return nil
	}
	out := make(map[string][]string, len(sets))
	for entity, set := range sets {
		fields := make([]string, 0, len(set))
		for f := range set {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		out[entity] = fields
	}
	return out
}
