// File: internal/scheduler/batch_scenario_test.go
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/halcyonix/claimsweep/api/schemas"
	"github.com/halcyonix/claimsweep/internal/claim"
	"github.com/halcyonix/claimsweep/internal/config"
	"github.com/halcyonix/claimsweep/internal/fakepage"
	"github.com/halcyonix/claimsweep/internal/modal"
	"github.com/halcyonix/claimsweep/internal/orchestrator"
	"github.com/halcyonix/claimsweep/internal/poll"
	"github.com/halcyonix/claimsweep/internal/resolver"
	"github.com/halcyonix/claimsweep/internal/snapshots"
)

// queueSessionManager hands out one scripted page per acquisition and tracks
// how many sessions are open at once.
type queueSessionManager struct {
	mu       sync.Mutex
	pages    []*fakepage.Page
	acquired int
	open     int
	maxOpen  int
}

func (m *queueSessionManager) Acquire(ctx context.Context) (schemas.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.acquired >= len(m.pages) {
		return nil, errors.New("no more scripted pages")
	}
	page := m.pages[m.acquired]
	m.acquired++
	m.open++
	if m.open > m.maxOpen {
		m.maxOpen = m.open
	}
	return &queueSession{id: fmt.Sprintf("sess-%d", m.acquired), page: page, mgr: m}, nil
}

func (m *queueSessionManager) release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open--
}

func (m *queueSessionManager) peakOpen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxOpen
}

type queueSession struct {
	id   string
	page schemas.Page
	mgr  *queueSessionManager
	once sync.Once
}

func (s *queueSession) ID() string         { return s.id }
func (s *queueSession) Page() schemas.Page { return s.page }

func (s *queueSession) Close(ctx context.Context) error {
	s.once.Do(s.mgr.release)
	return nil
}

// TestRunBatch_MixedAccountScenario drives a full batch through the real
// orchestrator: the first account's navigation times out, the second sweeps a
// surface with one already-granted control, one disabled control and one
// eligible control.
func TestRunBatch_MixedAccountScenario(t *testing.T) {
	const targetURL = "https://rewards.example.test/daily"

	brokenPage := fakepage.New(`<html><body></body></html>`)
	brokenPage.FailNavigation(targetURL, errors.New("navigation timed out"))

	rewardPage := fakepage.New(`<html><body>
		<button id="r1" data-testid="claim-1">Claimed</button>
		<button id="r2" data-testid="claim-2" disabled>Claim now</button>
		<button id="r3" data-testid="claim-3">Claim now</button>
	</body></html>`)
	rewardPage.OnClick("#r3", func() { rewardPage.SetText("#r3", "Claimed") })

	manager := &queueSessionManager{pages: []*fakepage.Page{brokenPage, rewardPage}}

	cfg := config.NewDefaultConfig()
	cfg.Target.URL = targetURL

	logger := zap.NewNop()
	clock := poll.NewManual(time.Unix(0, 0))
	orch, err := orchestrator.New(
		cfg,
		logger,
		manager,
		resolver.New(logger),
		modal.NewDismisser(logger),
		claim.NewValidator(logger, clock, cfg.Network.SettleTimeout),
		snapshots.NopSink{},
		clock,
	)
	require.NoError(t, err)

	s, err := New(logger, orch, clock, 0)
	require.NoError(t, err)

	result := s.RunBatch(context.Background(), []string{"A001", "A002"})

	require.Len(t, result.Reports, 2)
	assert.Equal(t, 1, result.SuccessCount)
	assert.Equal(t, 1, result.FailureCount)

	first := result.Reports[0]
	assert.Equal(t, "A001", first.Account)
	assert.False(t, first.OverallSuccess)
	assert.Contains(t, first.FatalError, "navigation")
	assert.Empty(t, first.Attempts)

	second := result.Reports[1]
	assert.Equal(t, "A002", second.Account)
	assert.True(t, second.OverallSuccess)
	assert.Equal(t, 1, second.ClaimedCount)
	require.Len(t, second.Attempts, 3)
	assert.Equal(t, schemas.OutcomeAlreadyClaimed, second.Attempts[0].Outcome)
	assert.Equal(t, schemas.OutcomeSkipped, second.Attempts[1].Outcome)
	assert.Equal(t, schemas.OutcomeClaimed, second.Attempts[2].Outcome)

	assert.Equal(t, 1, manager.peakOpen(), "a session must be released before the next account acquires one")
}
