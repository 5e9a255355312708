package entitlement

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tasklane/tasklane/internal/domain/entitlement"
	"github.com/tasklane/tasklane/internal/shared/logger"
)

type clientDTO struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	Notes string `json:"notes"`
}

func filterPolicy(t *testing.T, base, override string, catalog entitlement.FieldCatalog) *entitlement.EffectivePolicy {
	t.Helper()
	baseDoc, err := entitlement.ParseDocument([]byte(base))
	require.NoError(t, err)
	overrideDoc, err := entitlement.ParseDocument([]byte(override))
	require.NoError(t, err)
	return entitlement.NewEffectivePolicy(testUserID, 1, 0, baseDoc, overrideDoc, catalog, time.Now())
}

func TestResponseFilter_StripsOnlyGovernedFields(t *testing.T) {
	policy := filterPolicy(t,
		`{"visible_fields": {"clients": ["name", "email", "phone"]}}`,
		`{"visible_fields": {"clients": ["name"]}}`,
		nil)
	filter := NewResponseFilter(nil, logger.NewNopLogger())

	out := filter.ApplyJSON(policy, "clients",
		[]byte(`{"id": 1, "name": "Acme", "email": "a@acme.test", "phone": "555", "notes": "vip"}`))

	assert.JSONEq(t, `{"id": 1, "name": "Acme", "notes": "vip"}`, string(out))
}

func TestResponseFilter_ArraysStayArrays(t *testing.T) {
	policy := filterPolicy(t, `{"visible_fields": {"clients": ["name", "email"]}}`, `{"visible_fields": {"clients": ["name"]}}`, nil)
	filter := NewResponseFilter(nil, logger.NewNopLogger())

	out := filter.ApplyJSON(policy, "clients",
		[]byte(`[{"id": 1, "name": "A", "email": "a@x"}, {"id": 2, "name": "B", "email": "b@x"}, 3]`))

	assert.JSONEq(t, `[{"id": 1, "name": "A"}, {"id": 2, "name": "B"}, 3]`, string(out))
}

func TestResponseFilter_Idempotent(t *testing.T) {
	policy := filterPolicy(t, `{"visible_fields": {"clients": ["name", "email"]}}`, `{"visible_fields": {"clients": ["name"]}}`, nil)
	filter := NewResponseFilter(nil, logger.NewNopLogger())
	payload := []byte(`[{"id": 1, "name": "A", "email": "a@x", "extra": {"nested": true}}]`)

	once := filter.ApplyJSON(policy, "clients", payload)
	twice := filter.ApplyJSON(policy, "clients", once)

	assert.Equal(t, once, twice)
}

func TestResponseFilter_NeverTouchesUngovernedKeys(t *testing.T) {
	// The entity exists in the policy, but "address" is listed nowhere.
	policy := filterPolicy(t, `{"visible_fields": {"clients": ["name"]}}`, `{}`, nil)
	filter := NewResponseFilter(nil, logger.NewNopLogger())

	payload := []byte(`{"name": "A", "address": "Main St", "created_at": "2024-01-01"}`)
	out := filter.ApplyJSON(policy, "clients", payload)

	assert.Equal(t, payload, out, "nothing stripped returns the original bytes")
}

func TestResponseFilter_EntityWithoutPolicyPassesThrough(t *testing.T) {
	policy := filterPolicy(t, `{"visible_fields": {"clients": ["name"]}}`, `{}`, nil)
	filter := NewResponseFilter(nil, logger.NewNopLogger())

	payload := []byte(`{"title": "Roof repair", "budget": 1200}`)
	assert.Equal(t, payload, filter.ApplyJSON(policy, "jobs", payload))
}

func TestResponseFilter_CatalogueFieldsAreGoverned(t *testing.T) {
	catalog := entitlement.FieldCatalog{"clients": {"notes"}}
	policy := filterPolicy(t, `{"visible_fields": {"clients": ["name"]}}`, `{}`, catalog)
	filter := NewResponseFilter(catalog, logger.NewNopLogger())

	out := filter.ApplyJSON(policy, "clients", []byte(`{"name": "A", "notes": "vip", "id": 3}`))

	assert.JSONEq(t, `{"name": "A", "id": 3}`, string(out))
}

func TestResponseFilter_NonJSONFailsOpen(t *testing.T) {
	policy := filterPolicy(t, `{"visible_fields": {"clients": ["name"]}}`, `{}`, nil)
	filter := NewResponseFilter(nil, logger.NewNopLogger())

	for _, payload := range []string{`<html>oops</html>`, `"just a string"`, `{"a":1} trailing`, ``} {
		assert.Equal(t, []byte(payload), filter.ApplyJSON(policy, "clients", []byte(payload)), payload)
	}
}

func TestResponseFilter_ApplyStruct(t *testing.T) {
	policy := filterPolicy(t, `{"visible_fields": {"clients": ["name", "email"]}}`, `{"visible_fields": {"clients": ["name"]}}`, nil)
	filter := NewResponseFilter(nil, logger.NewNopLogger())

	out := filter.Apply(policy, "clients", []clientDTO{{ID: 1, Name: "A", Email: "a@x", Phone: "1"}})

	list, ok := out.([]any)
	require.True(t, ok, "slices stay slices")
	require.Len(t, list, 1)
	record, ok := list[0].(map[string]any)
	require.True(t, ok)
	assert.NotContains(t, record, "email")
	assert.Contains(t, record, "phone")
	assert.Equal(t, json.Number("1"), record["id"])
}

func TestResponseFilter_ApplyUnencodableFailsOpen(t *testing.T) {
	policy := filterPolicy(t, `{}`, `{}`, nil)
	filter := NewResponseFilter(nil, logger.NewNopLogger())

	payload := struct {
		Bad chan int `json:"bad"`
	}{Bad: make(chan int)}
	out := filter.Apply(policy, "clients", payload)

	assert.Equal(t, payload, out)
}

func TestResponseFilter_NilPolicyHidesCatalogue(t *testing.T) {
	filter := NewResponseFilter(entitlement.FieldCatalog{"clients": {"email"}}, logger.NewNopLogger())

	out := filter.ApplyJSON(nil, "clients", []byte(`{"name": "A", "email": "a@x"}`))

	assert.JSONEq(t, `{"name": "A"}`, string(out))
}
