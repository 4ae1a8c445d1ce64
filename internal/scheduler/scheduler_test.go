// File: internal/scheduler/scheduler_test.go
package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/halcyonix/claimsweep/api/schemas"
	"github.com/halcyonix/claimsweep/internal/poll"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// mockRunner records the accounts it ran and scripts per-account behavior.
type mockRunner struct {
	mu      sync.Mutex
	ran     []string
	failFor map[string]string
	panicOn string
	onRun   func(account string)
}

func (r *mockRunner) RunAccount(ctx context.Context, account string) schemas.AccountReport {
	r.mu.Lock()
	r.ran = append(r.ran, account)
	onRun := r.onRun
	r.mu.Unlock()

	if onRun != nil {
		onRun(account)
	}
	if account == r.panicOn {
		panic("synthetic runner failure")
	}
	if msg, ok := r.failFor[account]; ok {
		return schemas.AccountReport{Account: account, FatalError: msg}
	}
	return schemas.AccountReport{Account: account, ClaimedCount: 1, OverallSuccess: true}
}

func (r *mockRunner) ranAccounts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ran...)
}

func newScheduler(t *testing.T, runner AccountRunner) *Scheduler {
	t.Helper()
	s, err := New(zap.NewNop(), runner, poll.NewManual(time.Unix(0, 0)), 0)
	require.NoError(t, err)
	return s
}

func TestRunBatch_OneReportPerAccountInOrder(t *testing.T) {
	runner := &mockRunner{}
	s := newScheduler(t, runner)

	accounts := []string{"a1", "a2", "a3"}
	result := s.RunBatch(context.Background(), accounts)

	require.Len(t, result.Reports, 3)
	assert.Equal(t, accounts, runner.ranAccounts(), "accounts must run strictly in submission order")
	for i, report := range result.Reports {
		assert.Equal(t, accounts[i], report.Account)
	}
	assert.Equal(t, 3, result.SuccessCount)
	assert.Equal(t, 0, result.FailureCount)
}

func TestRunBatch_FailuresDoNotStopTheBatch(t *testing.T) {
	runner := &mockRunner{failFor: map[string]string{"a1": "session open: browser gone"}}
	s := newScheduler(t, runner)

	result := s.RunBatch(context.Background(), []string{"a1", "a2"})

	require.Len(t, result.Reports, 2)
	assert.False(t, result.Reports[0].OverallSuccess)
	assert.True(t, result.Reports[1].OverallSuccess)
	assert.Equal(t, 1, result.SuccessCount)
	assert.Equal(t, 1, result.FailureCount)
}

func TestRunBatch_PanicBecomesFailedReport(t *testing.T) {
	runner := &mockRunner{panicOn: "a2"}
	s := newScheduler(t, runner)

	result := s.RunBatch(context.Background(), []string{"a1", "a2", "a3"})

	require.Len(t, result.Reports, 3)
	assert.True(t, result.Reports[0].OverallSuccess)
	assert.False(t, result.Reports[1].OverallSuccess)
	assert.Contains(t, result.Reports[1].FatalError, "panic")
	assert.True(t, result.Reports[2].OverallSuccess, "the batch must continue past a panicking account")
}

func TestRunBatch_EmptyAccountList(t *testing.T) {
	s := newScheduler(t, &mockRunner{})

	result := s.RunBatch(context.Background(), nil)

	assert.Empty(t, result.Reports)
	assert.Equal(t, 0, result.SuccessCount)
	assert.Equal(t, 0, result.FailureCount)
}

func TestRunBatch_CancellationTakesEffectBetweenAccounts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := &mockRunner{}
	runner.onRun = func(account string) {
		if account == "a1" {
			cancel()
		}
	}
	s := newScheduler(t, runner)

	result := s.RunBatch(ctx, []string{"a1", "a2", "a3"})

	// a1 completes despite the cancellation landing mid-run; the rest are
	// never started but still get reports.
	assert.Equal(t, []string{"a1"}, runner.ranAccounts())
	require.Len(t, result.Reports, 3)
	assert.True(t, result.Reports[0].OverallSuccess)
	assert.Contains(t, result.Reports[1].FatalError, "cancelled")
	assert.Contains(t, result.Reports[2].FatalError, "cancelled")
}

func TestWatch_RunsOneBatchPerFiring(t *testing.T) {
	runner := &mockRunner{}
	s := newScheduler(t, runner)

	trigger := newFakeTrigger()
	ctx, cancel := context.WithCancel(context.Background())

	var mu sync.Mutex
	var results []schemas.BatchResult
	done := make(chan error, 1)
	go func() {
		done <- s.Watch(ctx, trigger, []string{"a1"}, func(r schemas.BatchResult) {
			mu.Lock()
			results = append(results, r)
			mu.Unlock()
		})
	}()

	trigger.fire(t)
	trigger.fire(t)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(results) == 2
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.True(t, trigger.stopped(), "the trigger must be disarmed when the watch loop exits")
	assert.Equal(t, []string{"a1", "a1"}, runner.ranAccounts())
}

func TestCronTrigger_RejectsBadExpression(t *testing.T) {
	trigger := NewCronTrigger("not a schedule")
	_, err := trigger.Start()
	require.Error(t, err)
}

// fakeTrigger delivers firings on demand and waits for consumption so tests
// stay deterministic.
type fakeTrigger struct {
	ch        chan time.Time
	mu        sync.Mutex
	isStopped bool
}

func newFakeTrigger() *fakeTrigger {
	return &fakeTrigger{ch: make(chan time.Time)}
}

func (f *fakeTrigger) Start() (<-chan time.Time, error) { return f.ch, nil }

func (f *fakeTrigger) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.isStopped = true
}

func (f *fakeTrigger) stopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.isStopped
}

func (f *fakeTrigger) fire(t *testing.T) {
	t.Helper()
	select {
	case f.ch <- time.Now():
	case <-time.After(5 * time.Second):
		t.Fatal("watch loop did not consume the firing")
	}
}
