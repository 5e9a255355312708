// Package goroutine launches background loops that must not take the
// process down when they panic.
package goroutine

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/tasklane/tasklane/internal/shared/logger"
)

// SafeGo runs fn in a goroutine, logging a panic with its stack instead of
// crashing.
func SafeGo(log logger.Interface, name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Errorw("goroutine panicked",
					"goroutine", name,
					"panic", fmt.Sprintf("%v", r),
					"stack", string(debug.Stack()),
				)
			}
		}()
		fn()
	}()
}

// SafeLoop runs a blocking loop such as a pub/sub subscriber in the
// background. An error other than ctx cancellation is logged. The returned
// channel closes when the loop exits.
func SafeLoop(ctx context.Context, log logger.Interface, name string, fn func(ctx context.Context) error) <-chan struct{} {
	done := make(chan struct{})
	SafeGo(log, name, func() {
		defer close(done)
		if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Errorw("background loop stopped", "goroutine", name, "error", err)
		}
	})
	return done
}
