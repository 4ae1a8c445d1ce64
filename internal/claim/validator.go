// File: internal/claim/validator.go

// Package claim classifies the outcome of activating a reward control. The
// classification works exclusively on the pre/post snapshot pair — the raw
// activation return status is never trusted as proof of a grant.
package claim

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/halcyonix/claimsweep/api/schemas"
	"github.com/halcyonix/claimsweep/internal/poll"
)

// settlePollInterval is how often the post-activation text is re-read while
// waiting for the surface to reflect the grant.
const settlePollInterval = 250 * time.Millisecond

// Validator classifies reward control activations.
type Validator struct {
	logger        *zap.Logger
	clock         poll.Clock
	settleTimeout time.Duration
}

// NewValidator creates a Validator. settleTimeout caps how long Classify
// polls for a post-activation text change before declaring the outcome
// ambiguous.
func NewValidator(logger *zap.Logger, clock poll.Clock, settleTimeout time.Duration) *Validator {
	return &Validator{
		logger:        logger.Named("validator"),
		clock:         clock,
		settleTimeout: settleTimeout,
	}
}

// Classify activates the control if eligible and derives the outcome from
// the pre/post snapshot pair. When force is true, activation uses the
// modal-bypassing direct dispatch instead of a simulated pointer action.
func (v *Validator) Classify(ctx context.Context, control schemas.Element, force bool) schemas.ClaimAttempt {
	pre := control.Snapshot()
	attempt := schemas.ClaimAttempt{
		Selector: control.Selector(),
		PreText:  pre.Text,
	}

	// Already granted before any action: never activate. This keeps repeated
	// runs against a frozen surface idempotent.
	if Granted(pre.Text) {
		attempt.Outcome = schemas.OutcomeAlreadyClaimed
		return attempt
	}

	if !pre.Enabled {
		attempt.Outcome = schemas.OutcomeSkipped
		return attempt
	}

	activate := control.Click
	if force {
		activate = control.ForceClick
	}
	if err := activate(ctx); err != nil {
		attempt.Outcome = schemas.OutcomeFailed
		attempt.Error = err.Error()
		return attempt
	}

	// Wait for the surface to settle, re-reading the control's text until it
	// changes or the settle window closes.
	post := pre
	err := poll.Until(ctx, v.clock, settlePollInterval, v.settleTimeout, func(ctx context.Context) (bool, error) {
		snap, err := control.Refresh(ctx)
		if err != nil {
			return false, err
		}
		post = snap
		return snap.Text != pre.Text, nil
	})
	if err != nil && !errors.Is(err, poll.ErrTimeout) {
		// The control went stale or the page is gone; without a readable
		// post state the outcome is undecidable.
		v.logger.Debug("Post-activation snapshot unavailable", zap.String("selector", attempt.Selector), zap.Error(err))
		attempt.Outcome = schemas.OutcomeAmbiguous
		attempt.Error = schemas.ErrAmbiguous.Error()
		return attempt
	}

	attempt.PostText = post.Text

	switch {
	case Granted(post.Text) && !Granted(pre.Text):
		attempt.Outcome = schemas.OutcomeClaimed
	case successful(post.Text):
		attempt.Outcome = schemas.OutcomeClaimed
	default:
		// Text unchanged (or changed to nothing recognizable) with no
		// success indicator: undecidable, but forward progress is assumed
		// to still be possible.
		attempt.Outcome = schemas.OutcomeAmbiguous
	}
	return attempt
}
