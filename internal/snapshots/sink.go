// File: internal/snapshots/sink.go

// Package snapshots persists point-in-time screenshots at defined checkpoints
// of an account run. The sink is strictly best-effort: directory creation and
// write failures are logged and never propagate into the claim flow.
package snapshots

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/halcyonix/claimsweep/api/schemas"
)

// Checkpoint names used by the orchestrator.
const (
	CheckpointPreLogin          = "pre-login"
	CheckpointPostIdentityEntry = "post-identity-entry"
	CheckpointPostLogin         = "post-login"
	CheckpointFinal             = "final"
)

// DirSink writes PNG captures under dir/<checkpoint>/<account>.png.
type DirSink struct {
	dir    string
	logger *zap.Logger
}

var _ schemas.SnapshotSink = (*DirSink)(nil)

// NewDirSink creates a sink rooted at dir.
func NewDirSink(dir string, logger *zap.Logger) *DirSink {
	return &DirSink{dir: dir, logger: logger.Named("snapshots")}
}

// Capture takes and persists a screenshot. Failures are logged, not returned.
func (s *DirSink) Capture(ctx context.Context, checkpoint, account string, page schemas.Page) {
	data, err := page.Screenshot(ctx)
	if err != nil {
		s.logger.Warn("Screenshot capture failed",
			zap.String("checkpoint", checkpoint),
			zap.String("account", account),
			zap.Error(err))
		return
	}

	dir := filepath.Join(s.dir, checkpoint)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		s.logger.Warn("Snapshot directory creation failed", zap.String("dir", dir), zap.Error(err))
		return
	}

	path := filepath.Join(dir, fmt.Sprintf("%s.png", account))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		s.logger.Warn("Snapshot write failed", zap.String("path", path), zap.Error(err))
		return
	}
	s.logger.Debug("Snapshot captured", zap.String("path", path))
}

// NopSink discards every capture. Used when snapshots are disabled.
type NopSink struct{}

var _ schemas.SnapshotSink = NopSink{}

func (NopSink) Capture(context.Context, string, string, schemas.Page) {}
