// File: cmd/components.go
package cmd

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/halcyonix/claimsweep/api/schemas"
	"github.com/halcyonix/claimsweep/internal/browser"
	"github.com/halcyonix/claimsweep/internal/claim"
	"github.com/halcyonix/claimsweep/internal/config"
	"github.com/halcyonix/claimsweep/internal/modal"
	"github.com/halcyonix/claimsweep/internal/orchestrator"
	"github.com/halcyonix/claimsweep/internal/poll"
	"github.com/halcyonix/claimsweep/internal/resolver"
	"github.com/halcyonix/claimsweep/internal/scheduler"
	"github.com/halcyonix/claimsweep/internal/snapshots"
)

const shutdownTimeout = 30 * time.Second

// components bundles the long-lived pieces the run and watch commands share.
type components struct {
	Manager   *browser.Manager
	Scheduler *scheduler.Scheduler
	logger    *zap.Logger
}

// initializeComponents wires the browser, heuristics and scheduler together.
func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*components, error) {
	manager, err := browser.NewManager(ctx, logger, cfg)
	if err != nil {
		return nil, fmt.Errorf("browser manager: %w", err)
	}

	clock := poll.System()

	var sink schemas.SnapshotSink = snapshots.NopSink{}
	if cfg.Snapshots.Enabled {
		sink = snapshots.NewDirSink(cfg.Snapshots.Dir, logger)
	}

	orch, err := orchestrator.New(
		cfg,
		logger,
		manager,
		resolver.New(logger),
		modal.NewDismisser(logger),
		claim.NewValidator(logger, clock, cfg.Network.SettleTimeout),
		sink,
		clock,
	)
	if err != nil {
		manager.Shutdown(ctx)
		return nil, fmt.Errorf("orchestrator: %w", err)
	}

	sched, err := scheduler.New(logger, orch, clock, cfg.Batch.InterAccountDelay)
	if err != nil {
		manager.Shutdown(ctx)
		return nil, fmt.Errorf("scheduler: %w", err)
	}

	return &components{Manager: manager, Scheduler: sched, logger: logger}, nil
}

// Shutdown drains sessions and terminates the browser process.
func (c *components) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := c.Manager.Shutdown(ctx); err != nil {
		c.logger.Warn("Browser shutdown reported an error", zap.Error(err))
	}
}
