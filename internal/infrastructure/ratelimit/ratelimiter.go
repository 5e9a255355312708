package ratelimit

import (
	"context"
	"time"
)

// Policy caps the requests a key may make over sliding windows. A zero
// value disables that window.
type Policy struct {
	RequestsPerMinute int
	RequestsPerHour   int
}

// IsZero reports whether no window is enforced.
func (p Policy) IsZero() bool {
	return p.RequestsPerMinute <= 0 && p.RequestsPerHour <= 0
}

// Decision is the outcome of a single Allow call.
type Decision struct {
	Allowed bool
	// Limit and Remaining describe the tightest enforced window.
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, policy Policy) (Decision, error)
	Reset(ctx context.Context, key string) error
}
