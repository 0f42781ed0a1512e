// Package delay isolates every real-time wait behind one narrow interface so
// buckets and the service can run against a virtual clock in tests.
package delay

import (
	"context"
	"time"
)

// Delay suspends the caller for approximately d. Implementations return
// ctx.Err() as soon as ctx is done, and nil once the duration has passed.
// A non-positive d returns immediately.
type Delay interface {
	Wait(ctx context.Context, d time.Duration) error
}

// SystemDelay implements Delay with runtime timers.
type SystemDelay struct{}

// Default is the shared production time source.
var Default Delay = SystemDelay{}

// Wait blocks for d or until ctx is done.
func (SystemDelay) Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Func adapts an ordinary function to Delay.
type Func func(ctx context.Context, d time.Duration) error

// Wait calls f(ctx, d).
func (f Func) Wait(ctx context.Context, d time.Duration) error {
	return f(ctx, d)
}
