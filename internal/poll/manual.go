// File: internal/poll/manual.go
package poll

import (
	"context"
	"sync"
	"time"
)

// Manual is a deterministic Clock for tests. Sleep advances the virtual time
// instead of blocking, so polled waits resolve instantly while still
// exercising deadline arithmetic.
type Manual struct {
	mu      sync.Mutex
	now     time.Time
	slept   []time.Duration
	sleepFn func(d time.Duration) error
}

// NewManual creates a virtual clock starting at the given instant.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.slept = append(m.slept, d)
	fn := m.sleepFn
	m.mu.Unlock()
	if fn != nil {
		return fn(d)
	}
	return nil
}

// Advance moves the virtual time forward without recording a sleep.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

// Slept returns every duration passed to Sleep, in order.
func (m *Manual) Slept() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]time.Duration, len(m.slept))
	copy(out, m.slept)
	return out
}

// OnSleep installs a hook invoked after each Sleep, letting tests inject
// side effects at precise virtual instants.
func (m *Manual) OnSleep(fn func(d time.Duration) error) {
	m.mu.Lock()
	m.sleepFn = fn
	m.mu.Unlock()
}
