package entitlement

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPolicy(t *testing.T, base, override string, catalog FieldCatalog) *EffectivePolicy {
	t.Helper()
	var overrideDoc Document
	var overrideID uint
	if override != "" {
		overrideDoc = mustParse(t, override)
		overrideID = 7
	}
	return NewEffectivePolicy(42, 3, overrideID, mustParse(t, base), overrideDoc, catalog, time.Now())
}

func TestMerge_OverrideWinsPerKey(t *testing.T) {
	merged := Merge(
		mustParse(t, `{"a": true, "b": false}`),
		mustParse(t, `{"b": true}`),
	)

	a, _ := merged.Features["a"].Bool()
	b, _ := merged.Features["b"].Bool()
	assert.True(t, a)
	assert.True(t, b)
	assert.Len(t, merged.Features, 2)
}

func TestMerge_MapsFallThroughToBase(t *testing.T) {
	merged := Merge(
		mustParse(t, `{
			"page_access": {"invoices": "view", "jobs": "edit"},
			"permissions": {"invoice.send": false, "invoice.create": true},
			"limits": {"max_clients": 5, "max_jobs": 10}
		}`),
		mustParse(t, `{
			"page_access": {"invoices": "edit"},
			"permissions": {"invoice.send": true},
			"limits": {"max_clients": 0}
		}`),
	)

	assert.Equal(t, map[string]AccessLevel{"invoices": AccessEdit, "jobs": AccessEdit}, merged.PageAccess)
	assert.Equal(t, map[string]bool{"invoice.send": true, "invoice.create": true}, merged.Permissions)
	assert.Equal(t, map[string]int64{"max_clients": 0, "max_jobs": 10}, merged.Limits)
}

func TestMerge_VisibleFieldsReplacePerEntity(t *testing.T) {
	merged := Merge(
		mustParse(t, `{"visible_fields": {"clients": ["name", "email", "phone"], "jobs": ["title"]}}`),
		mustParse(t, `{"visible_fields": {"clients": ["name"]}}`),
	)

	assert.Equal(t, []string{"name"}, merged.VisibleFields["clients"])
	assert.Equal(t, []string{"title"}, merged.VisibleFields["jobs"])
}

func TestMerge_EmptyOverrideListHidesEverything(t *testing.T) {
	merged := Merge(
		mustParse(t, `{"visible_fields": {"clients": ["name", "email"]}}`),
		mustParse(t, `{"visible_fields": {"clients": []}}`),
	)

	fields, ok := merged.VisibleFields["clients"]
	require.True(t, ok)
	assert.Empty(t, fields)
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	base := mustParse(t, `{"a": true, "limits": {"max_clients": 5}, "visible_fields": {"clients": ["name", "email"]}}`)
	override := mustParse(t, `{"a": false, "limits": {"max_clients": 1}, "visible_fields": {"clients": ["name"]}}`)

	merged := Merge(base, override)
	merged.Limits["max_clients"] = 99
	merged.VisibleFields["clients"][0] = "changed"

	a, _ := base.Features["a"].Bool()
	assert.True(t, a)
	assert.Equal(t, int64(5), base.Limits["max_clients"])
	assert.Equal(t, int64(1), override.Limits["max_clients"])
	assert.Equal(t, []string{"name", "email"}, base.VisibleFields["clients"])
	assert.Equal(t, []string{"name"}, override.VisibleFields["clients"])
}

func TestMerge_EmptyDocuments(t *testing.T) {
	merged := Merge(Document{}, Document{})
	assert.True(t, merged.IsEmpty())
	assert.Nil(t, merged.Features)
}

func TestIsFeatureEnabled_DefaultPermissive(t *testing.T) {
	policy := newPolicy(t, `{"other": true}`, `{"another": false}`, nil)

	for _, feature := range []string{"collaborators", "reports", "calendar", ""} {
		assert.True(t, policy.IsFeatureEnabled(feature), feature)
	}
	assert.False(t, policy.IsFeatureEnabled("another"))
}

func TestIsFeatureEnabled_OnlyLiteralFalseDisables(t *testing.T) {
	policy := newPolicy(t, `{"zero": 0, "text": "off", "empty": {}, "off": false}`, "", nil)

	assert.True(t, policy.IsFeatureEnabled("zero"))
	assert.True(t, policy.IsFeatureEnabled("text"))
	assert.True(t, policy.IsFeatureEnabled("empty"))
	assert.False(t, policy.IsFeatureEnabled("off"))
}

func TestHasPermission_DefaultDeny(t *testing.T) {
	policy := newPolicy(t, `{"permissions": {"invoice.create": true}}`, `{"permissions": {"invoice.delete": false}}`, nil)

	for _, permission := range []string{"invoice.send", "client.delete", ""} {
		assert.False(t, policy.HasPermission(permission), permission)
	}
	assert.True(t, policy.HasPermission("invoice.create"))
	assert.False(t, policy.HasPermission("invoice.delete"))
}

func TestPageAccess_AbsentIsNone(t *testing.T) {
	policy := newPolicy(t, `{"page_access": {"invoices": "view"}}`, "", nil)

	assert.Equal(t, AccessView, policy.PageAccess("invoices"))
	assert.Equal(t, AccessNone, policy.PageAccess("reports"))
}

func TestIsFieldVisible(t *testing.T) {
	policy := newPolicy(t,
		`{"visible_fields": {"clients": ["name", "email", "phone"]}}`,
		`{"visible_fields": {"clients": ["name"]}}`,
		nil)

	assert.True(t, policy.IsFieldVisible("clients", "name"))
	assert.False(t, policy.IsFieldVisible("clients", "email"))
	assert.False(t, policy.IsFieldVisible("clients", "phone"))
	assert.True(t, policy.IsFieldVisible("jobs", "anything"), "entity without list is visible")
}

func TestGovernedFields_UnionOfCatalogueAndDocuments(t *testing.T) {
	policy := newPolicy(t,
		`{"visible_fields": {"clients": ["name", "email", "phone"]}}`,
		`{"visible_fields": {"clients": ["name"]}}`,
		FieldCatalog{"clients": {"notes"}, "invoices": {"total"}})

	assert.Equal(t, []string{"email", "name", "notes", "phone"}, policy.GovernedFields["clients"])
	assert.Equal(t, []string{"total"}, policy.GovernedFields["invoices"])

	assert.True(t, policy.IsFieldGoverned("clients", "phone"))
	assert.False(t, policy.IsFieldGoverned("clients", "id"))
	assert.False(t, policy.IsFieldGoverned("jobs", "title"))
}

func TestCheckLimit(t *testing.T) {
	policy := newPolicy(t, `{"limits": {"max_clients": 3, "max_jobs": -1, "max_files": 0}, "max_users": 2}`, "", nil)

	tests := []struct {
		name    string
		limit   string
		current int64
		want    LimitCheck
	}{
		{"under limit", "max_clients", 2, LimitCheck{Allowed: true, Current: 2, Limit: 3}},
		{"at limit", "max_clients", 3, LimitCheck{Allowed: false, Current: 3, Limit: 3}},
		{"unlimited", "max_jobs", 1_000_000, LimitCheck{Allowed: true, Current: 1_000_000, Limit: -1, Unlimited: true}},
		{"absent", "max_projects", 500, LimitCheck{Allowed: true, Current: 500, Limit: -1, Unlimited: true}},
		{"zero quota", "max_files", 0, LimitCheck{Allowed: false, Current: 0, Limit: 0}},
		{"numeric feature", "max_users", 2, LimitCheck{Allowed: false, Current: 2, Limit: 2}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, policy.CheckLimit(tc.limit, tc.current))
		})
	}
}

func TestCheckLimit_ZeroNeverAllows(t *testing.T) {
	policy := newPolicy(t, `{"limits": {"max_files": 0}}`, "", nil)
	for _, usage := range []int64{0, 1, 100} {
		assert.False(t, policy.CheckLimit("max_files", usage).Allowed)
	}
}

func TestNilPolicy_DeniesEverything(t *testing.T) {
	var policy *EffectivePolicy

	assert.False(t, policy.IsFeatureEnabled("collaborators"))
	assert.Equal(t, AccessNone, policy.PageAccess("invoices"))
	assert.False(t, policy.HasPermission("invoice.send"))
	assert.False(t, policy.IsFieldVisible("clients", "name"))
	assert.False(t, policy.CheckLimit("max_clients", 0).Allowed)
	assert.False(t, policy.HasOverride())
	assert.Empty(t, policy.FeatureSnapshot())
}

func TestFeatureSnapshot(t *testing.T) {
	policy := newPolicy(t, `{"collaborators": false, "max_jobs": 5, "theme": "dark"}`, `{"collaborators": true}`, nil)

	assert.Equal(t, map[string]any{"collaborators": true, "max_jobs": float64(5)}, policy.FeatureSnapshot())
	assert.True(t, policy.HasOverride())
}

func TestEffectivePolicy_JSONRoundTrip(t *testing.T) {
	policy := newPolicy(t,
		`{"collaborators": false, "page_access": {"invoices": "view"}, "visible_fields": {"clients": ["name"]}}`,
		`{"collaborators": true}`,
		FieldCatalog{"clients": {"email"}})

	data, err := json.Marshal(policy)
	require.NoError(t, err)

	var back EffectivePolicy
	require.NoError(t, json.Unmarshal(data, &back))

	assert.Equal(t, policy.PlanID, back.PlanID)
	assert.Equal(t, policy.OverrideID, back.OverrideID)
	assert.Equal(t, policy.Document, back.Document)
	assert.Equal(t, policy.GovernedFields, back.GovernedFields)
	assert.True(t, policy.ResolvedAt.Equal(back.ResolvedAt))
}

func TestEffectivePolicy_JSONRoundTripKeepsEmptyFieldList(t *testing.T) {
	policy := newPolicy(t, `{"visible_fields": {"client": []}}`, "", FieldCatalog{"client": {"billing_rate"}})
	require.False(t, policy.IsFieldVisible("client", "billing_rate"))

	data, err := json.Marshal(policy)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"client":[]`)

	var back EffectivePolicy
	require.NoError(t, json.Unmarshal(data, &back))

	assert.False(t, back.IsFieldVisible("client", "billing_rate"))
	assert.Equal(t, policy.Document.VisibleFields, back.Document.VisibleFields)
}

func TestMerge_NilFieldListMarshalsAsEmpty(t *testing.T) {
	doc := Document{VisibleFields: map[string][]string{"client": nil}}

	data, err := json.Marshal(doc)
	require.NoError(t, err)

	assert.JSONEq(t, `{"visible_fields": {"client": []}}`, string(data))
}

func TestEffectivePolicy_BaseDisablesFeature(t *testing.T) {
	policy := newPolicy(t, `{"collaborators": false}`, "", nil)
	assert.False(t, policy.IsFeatureEnabled("collaborators"))
}

func TestMerge_OverrideReenablesFeature(t *testing.T) {
	policy := newPolicy(t, `{"collaborators": false}`, `{"collaborators": true}`, nil)
	assert.True(t, policy.IsFeatureEnabled("collaborators"))
}

func TestEffectivePolicy_ViewAccessDoesNotGrantEdit(t *testing.T) {
	policy := newPolicy(t, `{"page_access": {"invoices": "view"}}`, "", nil)

	assert.False(t, policy.PageAccess("invoices").Satisfies(AccessEdit))
	assert.True(t, policy.PageAccess("invoices").Satisfies(AccessView))
}
