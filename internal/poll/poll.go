// File: internal/poll/poll.go

// Package poll provides a "wait until condition or timeout" primitive with an
// injectable clock, so callers never hard-code real sleeps and tests can run
// against virtual time.
package poll

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout is returned by Until when the condition did not hold before the
// deadline.
var ErrTimeout = errors.New("condition not met before timeout")

// Clock abstracts time for pacing and settling waits.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done, returning ctx.Err() in the
	// latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// System returns the real-time clock.
func System() Clock { return systemClock{} }

// Until polls cond every interval until it returns true, an error, or the
// timeout elapses. The condition is always evaluated at least once, so a
// condition that already holds succeeds even with a zero timeout.
func Until(ctx context.Context, clock Clock, interval, timeout time.Duration, cond func(context.Context) (bool, error)) error {
	deadline := clock.Now().Add(timeout)
	for {
		ok, err := cond(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if !clock.Now().Before(deadline) {
			return ErrTimeout
		}
		if err := clock.Sleep(ctx, interval); err != nil {
			return err
		}
	}
}
