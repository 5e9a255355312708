// Package entitlement models plan feature documents, merges a plan with a
// per-client override into an effective policy, and answers entitlement
// questions against that policy.
package entitlement

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
)

// Reserved category keys of a features document. Every other top-level key
// is a feature flag.
const (
	KeyPageAccess    = "page_access"
	KeyVisibleFields = "visible_fields"
	KeyPermissions   = "permissions"
	KeyLimits        = "limits"
)

// UnlimitedValue marks a limit with no ceiling.
const UnlimitedValue int64 = -1

// AccessLevel is the granularity of page access.
type AccessLevel string

const (
	AccessNone AccessLevel = "none"
	AccessView AccessLevel = "view"
	AccessEdit AccessLevel = "edit"
)

func (l AccessLevel) IsValid() bool {
	switch l {
	case AccessNone, AccessView, AccessEdit:
		return true
	default:
		return false
	}
}

func (l AccessLevel) rank() int {
	switch l {
	case AccessView:
		return 1
	case AccessEdit:
		return 2
	default:
		return 0
	}
}

// Satisfies reports whether a resolved level grants the required one.
// "none" never satisfies anything; an unknown required level is treated as
// "edit".
func (l AccessLevel) Satisfies(required AccessLevel) bool {
	if l.rank() == 0 {
		return false
	}
	if !required.IsValid() || required == AccessNone {
		required = AccessEdit
	}
	return l.rank() >= required.rank()
}

func (l AccessLevel) String() string {
	return string(l)
}

type featureKind uint8

const (
	featureBool featureKind = iota + 1
	featureNumber
	featureRaw
)

// FeatureValue is the value of a top-level feature key: a boolean toggle, a
// number, or any other JSON value kept verbatim so unknown keys survive a
// round trip.
type FeatureValue struct {
	kind   featureKind
	flag   bool
	number float64
	raw    json.RawMessage
}

func BoolFeature(v bool) FeatureValue {
	return FeatureValue{kind: featureBool, flag: v}
}

func NumberFeature(v float64) FeatureValue {
	return FeatureValue{kind: featureNumber, number: v}
}

// Bool returns the flag and whether the value is a boolean.
func (v FeatureValue) Bool() (bool, bool) {
	return v.flag, v.kind == featureBool
}

// Number returns the numeric value and whether the value is a number.
func (v FeatureValue) Number() (float64, bool) {
	return v.number, v.kind == featureNumber
}

// IsExplicitlyDisabled is true only for a literal false.
func (v FeatureValue) IsExplicitlyDisabled() bool {
	return v.kind == featureBool && !v.flag
}

func (v FeatureValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case featureBool:
		return json.Marshal(v.flag)
	case featureNumber:
		return json.Marshal(v.number)
	case featureRaw:
		return v.raw, nil
	default:
		return []byte("null"), nil
	}
}

func (v *FeatureValue) UnmarshalJSON(data []byte) error {
	parsed, err := parseFeatureValue(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func parseFeatureValue(data json.RawMessage) (FeatureValue, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return FeatureValue{}, errors.New("empty feature value")
	}
	switch trimmed[0] {
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(trimmed, &b); err != nil {
			return FeatureValue{}, err
		}
		return BoolFeature(b), nil
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var n float64
		if err := json.Unmarshal(trimmed, &n); err != nil {
			return FeatureValue{}, err
		}
		return NumberFeature(n), nil
	default:
		raw := make(json.RawMessage, len(trimmed))
		copy(raw, trimmed)
		return FeatureValue{kind: featureRaw, raw: raw}, nil
	}
}

// Document is the normalized form of a plan or override features document.
// A nil map means the category was absent, which merges as "inherit".
type Document struct {
	Features      map[string]FeatureValue
	PageAccess    map[string]AccessLevel
	VisibleFields map[string][]string
	Permissions   map[string]bool
	Limits        map[string]int64
}

// IsEmpty reports whether the document carries no policy at all.
func (d Document) IsEmpty() bool {
	return len(d.Features) == 0 && len(d.PageAccess) == 0 && len(d.VisibleFields) == 0 &&
		len(d.Permissions) == 0 && len(d.Limits) == 0
}

// ParseDocument normalizes a raw features document. Empty input and JSON
// null yield an empty document. Anything that cannot be understood is
// dropped and reported through the returned error, which wraps
// ErrConfigurationMalformed; the returned document is always usable and
// holds every entry that did parse.
func ParseDocument(data []byte) (Document, error) {
	var doc Document

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return doc, nil
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &top); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrConfigurationMalformed, err)
	}

	var issues []error
	report := func(format string, args ...any) {
		issues = append(issues, fmt.Errorf(format, args...))
	}

	for key, raw := range top {
		switch key {
		case KeyPageAccess:
			var entries map[string]json.RawMessage
			if err := json.Unmarshal(raw, &entries); err != nil {
				report("%s: expected object", key)
				continue
			}
			doc.PageAccess = make(map[string]AccessLevel, len(entries))
			for page, value := range entries {
				if isNull(value) {
					continue
				}
				var level string
				if err := json.Unmarshal(value, &level); err != nil || !AccessLevel(level).IsValid() {
					report("%s.%s: invalid access level %s", key, page, string(value))
					continue
				}
				doc.PageAccess[page] = AccessLevel(level)
			}

		case KeyVisibleFields:
			var entries map[string]json.RawMessage
			if err := json.Unmarshal(raw, &entries); err != nil {
				report("%s: expected object", key)
				continue
			}
			doc.VisibleFields = make(map[string][]string, len(entries))
			for entity, value := range entries {
				if isNull(value) {
					continue
				}
				var fields []string
				if err := json.Unmarshal(value, &fields); err != nil {
					report("%s.%s: expected array of strings", key, entity)
					continue
				}
				doc.VisibleFields[entity] = dedupe(fields)
			}

		case KeyPermissions:
			var entries map[string]json.RawMessage
			if err := json.Unmarshal(raw, &entries); err != nil {
				report("%s: expected object", key)
				continue
			}
			doc.Permissions = make(map[string]bool, len(entries))
			for permission, value := range entries {
				if isNull(value) {
					continue
				}
				var allowed bool
				if err := json.Unmarshal(value, &allowed); err != nil {
					report("%s.%s: expected boolean", key, permission)
					continue
				}
				doc.Permissions[permission] = allowed
			}

		case KeyLimits:
			var entries map[string]json.RawMessage
			if err := json.Unmarshal(raw, &entries); err != nil {
				report("%s: expected object", key)
				continue
			}
			doc.Limits = make(map[string]int64, len(entries))
			for name, value := range entries {
				if isNull(value) {
					continue
				}
				var n float64
				if err := json.Unmarshal(value, &n); err != nil || math.IsNaN(n) {
					report("%s.%s: expected number", key, name)
					continue
				}
				limit, issue := limitFromNumber(n)
				if issue != "" {
					report("%s.%s: %s", key, name, issue)
				}
				doc.Limits[name] = limit
			}

		default:
			value, err := parseFeatureValue(raw)
			if err != nil {
				report("%s: %v", key, err)
				continue
			}
			if doc.Features == nil {
				doc.Features = make(map[string]FeatureValue)
			}
			doc.Features[key] = value
		}
	}

	if len(issues) > 0 {
		return doc, fmt.Errorf("%w: %w", ErrConfigurationMalformed, errors.Join(issues...))
	}
	return doc, nil
}

// MarshalJSON writes the document back in its stored shape. Empty
// categories are omitted.
func (d Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.Features)+4)
	for key, value := range d.Features {
		out[key] = value
	}
	if len(d.PageAccess) > 0 {
		out[KeyPageAccess] = d.PageAccess
	}
	if len(d.VisibleFields) > 0 {
		visible := make(map[string][]string, len(d.VisibleFields))
		for entity, fields := range d.VisibleFields {
			if fields == nil {
				fields = []string{}
			}
			visible[entity] = fields
		}
		out[KeyVisibleFields] = visible
	}
	if len(d.Permissions) > 0 {
		out[KeyPermissions] = d.Permissions
	}
	if len(d.Limits) > 0 {
		out[KeyLimits] = d.Limits
	}
	return json.Marshal(out)
}

// UnmarshalJSON is strict: it fails on anything ParseDocument would report.
func (d *Document) UnmarshalJSON(data []byte) error {
	doc, err := ParseDocument(data)
	if err != nil {
		return err
	}
	*d = doc
	return nil
}

// FeatureKeys returns feature keys in sorted order.
func (d Document) FeatureKeys() []string {
	keys := make([]string, 0, len(d.Features))
	for key := range d.Features {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// limitFromNumber converts a JSON number to a limit. Negative values and
// values beyond int64 become unlimited, fractions are truncated. issue is
// non-empty whenever the value was not a plain limit.
func limitFromNumber(n float64) (int64, string) {
	switch {
	case n == float64(UnlimitedValue):
		return UnlimitedValue, ""
	case n < 0:
		return UnlimitedValue, fmt.Sprintf("negative limit %v treated as unlimited", n)
	case n >= math.MaxInt64:
		return UnlimitedValue, fmt.Sprintf("limit %v out of range treated as unlimited", n)
	case n != math.Trunc(n):
		return int64(n), fmt.Sprintf("fractional limit %v truncated to %d", n, int64(n))
	}
	return int64(n), ""
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
