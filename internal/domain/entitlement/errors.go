package entitlement

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthenticated        = errors.New("authentication required")
	ErrNotSubscribed          = errors.New("no active subscription")
	ErrStoreUnavailable       = errors.New("configuration store unavailable")
	ErrConfigurationMalformed = errors.New("malformed features document")
)

// StoreError wraps an I/O failure of the configuration store or usage source.
// It matches ErrStoreUnavailable with errors.Is.
type StoreError struct {
	Op  string
	Err error
}

func NewStoreError(op string, err error) *StoreError {
	return &StoreError{Op: op, Err: err}
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrStoreUnavailable, e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return target == ErrStoreUnavailable
}

// DenialKind names the guard that produced a denial. Its string form is also
// the context key of the denial payload.
type DenialKind string

const (
	DenialFeature    DenialKind = "feature"
	DenialPage       DenialKind = "page"
	DenialPermission DenialKind = "permission"
	DenialLimit      DenialKind = "limit"
)

// DeniedError is a successful resolution that failed a specific check.
type DeniedError struct {
	Kind DenialKind
	Key  string
	// Required is set for page denials.
	Required AccessLevel
	// Current and Limit are set for limit denials.
	Current int64
	Limit   int64
	// NotSubscribed marks a denial caused by the absence of a subscription
	// rather than by the policy itself.
	NotSubscribed bool
}

func (e *DeniedError) Error() string {
	if e.NotSubscribed {
		return fmt.Sprintf("%s %q requires an active subscription", e.Kind, e.Key)
	}
	switch e.Kind {
	case DenialFeature:
		return fmt.Sprintf("feature %q is not available on your plan", e.Key)
	case DenialPage:
		return fmt.Sprintf("page %q requires %s access", e.Key, e.Required)
	case DenialPermission:
		return fmt.Sprintf("permission %q is not granted by your plan", e.Key)
	case DenialLimit:
		return fmt.Sprintf("limit %q reached (%d of %d)", e.Key, e.Current, e.Limit)
	default:
		return "entitlement denied"
	}
}

// AsDenied unwraps a DeniedError from err.
func AsDenied(err error) (*DeniedError, bool) {
	var denied *DeniedError
	if errors.As(err, &denied) {
		return denied, true
	}
	return nil, false
}
