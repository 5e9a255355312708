package entitlement

import (
	"bytes"
	"encoding/json"

	"github.com/tasklane/tasklane/internal/domain/entitlement"
	"github.com/tasklane/tasklane/internal/shared/logger"
)

// ResponseFilter strips fields a policy marks invisible from outbound
// payloads. Only governed fields are ever removed; everything else passes
// through untouched. Filtering never fails: on any error the original
// payload is returned and a warning is logged.
type ResponseFilter struct {
	catalog entitlement.FieldCatalog
	logger  logger.Interface
}

func NewResponseFilter(catalog entitlement.FieldCatalog, logger logger.Interface) *ResponseFilter {
	return &ResponseFilter{catalog: catalog, logger: logger}
}

// Apply returns a filtered copy of payload for entity. Generic JSON maps and
// slices are walked directly; any other value is round-tripped through JSON
// first so struct tags decide field names. Objects stay objects and arrays
// stay arrays.
func (f *ResponseFilter) Apply(policy *entitlement.EffectivePolicy, entity string, payload any) any {
	if payload == nil {
		return nil
	}

	var generic any
	switch v := payload.(type) {
	case map[string]any, []any:
		generic = v
	default:
		data, err := json.Marshal(payload)
		if err != nil {
			f.logger.Warnw("response filter could not encode payload, passing through",
				"entity", entity,
				"error", err,
			)
			return payload
		}
		decoded, ok := f.decode(entity, data)
		if !ok {
			return payload
		}
		generic = decoded
	}

	filtered, stripped := f.filterValue(policy, entity, generic)
	f.record(entity, stripped)
	return filtered
}

// ApplyJSON filters an encoded payload. Input that is not a JSON object or
// array is returned unchanged, as is input from which nothing was stripped.
func (f *ResponseFilter) ApplyJSON(policy *entitlement.EffectivePolicy, entity string, data []byte) []byte {
	decoded, ok := f.decode(entity, data)
	if !ok {
		return data
	}

	filtered, stripped := f.filterValue(policy, entity, decoded)
	if stripped == 0 {
		return data
	}

	out, err := json.Marshal(filtered)
	if err != nil {
		f.logger.Warnw("response filter could not re-encode payload, passing through",
			"entity", entity,
			"error", err,
		)
		return data
	}
	f.record(entity, stripped)
	return out
}

func (f *ResponseFilter) decode(entity string, data []byte) (any, bool) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		f.logger.Warnw("response filter received non-JSON payload, passing through",
			"entity", entity,
			"error", err,
		)
		return nil, false
	}
	if dec.More() {
		f.logger.Warnw("response filter received trailing data, passing through", "entity", entity)
		return nil, false
	}

	switch v.(type) {
	case map[string]any, []any:
		return v, true
	default:
		return nil, false
	}
}

func (f *ResponseFilter) filterValue(policy *entitlement.EffectivePolicy, entity string, v any) (any, int) {
	switch t := v.(type) {
	case map[string]any:
		return f.filterRecord(policy, entity, t)
	case []any:
		out := make([]any, len(t))
		total := 0
		for i, item := range t {
			filtered, stripped := f.filterValue(policy, entity, item)
			out[i] = filtered
			total += stripped
		}
		return out, total
	default:
		return v, 0
	}
}

func (f *ResponseFilter) filterRecord(policy *entitlement.EffectivePolicy, entity string, record map[string]any) (map[string]any, int) {
	out := make(map[string]any, len(record))
	stripped := 0
	for key, value := range record {
		if f.hidden(policy, entity, key) {
			stripped++
			continue
		}
		out[key] = value
	}
	return out, stripped
}

// hidden reports whether a field must be removed. Without a policy, every
// field of the static catalogue is hidden.
func (f *ResponseFilter) hidden(policy *entitlement.EffectivePolicy, entity, field string) bool {
	if policy == nil {
		return f.catalog.Governs(entity, field)
	}
	return policy.IsFieldGoverned(entity, field) && !policy.IsFieldVisible(entity, field)
}

func (f *ResponseFilter) record(entity string, stripped int) {
	if stripped > 0 {
		fieldsStrippedTotal.WithLabelValues(entity).Add(float64(stripped))
	}
}
