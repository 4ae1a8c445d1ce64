// File: internal/poll/poll_test.go
package poll

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUntil_ConditionAlreadyHolds(t *testing.T) {
	clock := NewManual(time.Unix(0, 0))

	calls := 0
	err := Until(context.Background(), clock, time.Second, 0, func(ctx context.Context) (bool, error) {
		calls++
		return true, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls, "condition should be evaluated exactly once")
	assert.Empty(t, clock.Slept(), "no sleep should happen when the condition holds immediately")
}

func TestUntil_SucceedsAfterRetries(t *testing.T) {
	clock := NewManual(time.Unix(0, 0))

	calls := 0
	err := Until(context.Background(), clock, 250*time.Millisecond, 5*time.Second, func(ctx context.Context) (bool, error) {
		calls++
		return calls >= 3, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Len(t, clock.Slept(), 2)
}

func TestUntil_TimesOut(t *testing.T) {
	clock := NewManual(time.Unix(0, 0))

	err := Until(context.Background(), clock, 250*time.Millisecond, time.Second, func(ctx context.Context) (bool, error) {
		return false, nil
	})

	require.ErrorIs(t, err, ErrTimeout)
}

func TestUntil_ConditionErrorPropagates(t *testing.T) {
	clock := NewManual(time.Unix(0, 0))
	boom := errors.New("stale element")

	err := Until(context.Background(), clock, 250*time.Millisecond, time.Second, func(ctx context.Context) (bool, error) {
		return false, boom
	})

	require.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrTimeout)
}

func TestUntil_CancellationStopsPolling(t *testing.T) {
	clock := NewManual(time.Unix(0, 0))
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := Until(ctx, clock, 250*time.Millisecond, time.Minute, func(ctx context.Context) (bool, error) {
		calls++
		if calls == 2 {
			cancel()
		}
		return false, nil
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, calls)
}

func TestManual_SleepAdvancesVirtualTime(t *testing.T) {
	start := time.Unix(100, 0)
	clock := NewManual(start)

	require.NoError(t, clock.Sleep(context.Background(), 3*time.Second))
	assert.Equal(t, start.Add(3*time.Second), clock.Now())
	assert.Equal(t, []time.Duration{3 * time.Second}, clock.Slept())
}

func TestSystem_SleepHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := System().Sleep(ctx, time.Minute)
	require.ErrorIs(t, err, context.Canceled)
}
