// Package supervise races operations against deadlines.
//
// Race is the building block: it runs an operation and a timer concurrently,
// reports which branch finished first and cancels the loser. The operation's
// late result, if any, is dropped and never observed by the caller.
package supervise

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sourcegraph/conc/panics"
)

// Branch identifies the side of a race that completed first.
type Branch int

const (
	// BranchOperation means the operation returned before the timer fired.
	BranchOperation Branch = iota
	// BranchTimer means the timer fired first and the operation was abandoned.
	BranchTimer
	// BranchCancelled means the parent context ended before either branch.
	BranchCancelled
)

func (b Branch) String() string {
	switch b {
	case BranchOperation:
		return "operation"
	case BranchTimer:
		return "timer"
	case BranchCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("branch(%d)", int(b))
	}
}

// TimeoutError is returned by WithTimeout when the deadline wins.
type TimeoutError struct {
	Duration time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout after %dms", e.Duration.Milliseconds())
}

// IsTimeout checks if the error is or wraps a TimeoutError
func IsTimeout(err error) bool {
	var timeoutErr *TimeoutError
	return err != nil && errors.As(err, &timeoutErr)
}

// Race runs op and a timer of length d concurrently. When op finishes first its
// result is returned with BranchOperation. When the timer fires first the zero
// value is returned with BranchTimer and op's context is cancelled. A panic in
// op is recovered and returned as an error.
func Race[T any](ctx context.Context, d time.Duration, op func(context.Context) (T, error)) (T, Branch, error) {
	var zero T

	opCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		value T
		err   error
	}
	// Buffered so an abandoned operation can always deliver and exit.
	done := make(chan outcome, 1)
	go func() {
		var (
			o outcome
			c panics.Catcher
		)
		c.Try(func() { o.value, o.err = op(opCtx) })
		if rec := c.Recovered(); rec != nil {
			o = outcome{err: rec.AsError()}
		}
		done <- o
	}()

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case o := <-done:
		return o.value, BranchOperation, o.err
	case <-timer.C:
		return zero, BranchTimer, nil
	case <-ctx.Done():
		return zero, BranchCancelled, ctx.Err()
	}
}

// WithTimeout runs op under a deadline of d. If the deadline fires first the
// result is a *TimeoutError naming d; otherwise op's result is forwarded unchanged.
func WithTimeout[T any](ctx context.Context, d time.Duration, op func(context.Context) (T, error)) (T, error) {
	v, branch, err := Race(ctx, d, op)
	if branch == BranchTimer {
		return v, &TimeoutError{Duration: d}
	}
	return v, err
}

// Sleep waits for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
