// File: internal/orchestrator/orchestrator.go
// Description: Drives one account through the claim state machine:
// Navigate -> DetectLogin -> (LoginFlow)? -> LocateRewardSurfaces ->
// EnumerateControls -> ActivateLoop -> Finalize. Only session-open and
// navigation failures are fatal to the account; everything else degrades to a
// recorded attempt outcome and the run keeps moving.

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/halcyonix/claimsweep/api/schemas"
	"github.com/halcyonix/claimsweep/internal/claim"
	"github.com/halcyonix/claimsweep/internal/config"
	"github.com/halcyonix/claimsweep/internal/modal"
	"github.com/halcyonix/claimsweep/internal/poll"
	"github.com/halcyonix/claimsweep/internal/resolver"
	"github.com/halcyonix/claimsweep/internal/snapshots"
)

// releaseTimeout bounds session teardown so a wedged tab cannot stall the
// batch.
const releaseTimeout = 10 * time.Second

// Orchestrator runs the per-account claim workflow. It owns no session state
// between runs; each RunAccount acquires and releases its own session.
type Orchestrator struct {
	cfg       *config.Config
	logger    *zap.Logger
	sessions  schemas.SessionManager
	resolver  *resolver.Resolver
	dismisser *modal.Dismisser
	validator *claim.Validator
	sink      schemas.SnapshotSink
	clock     poll.Clock
	signature modal.Signature
}

// New creates an Orchestrator with its dependencies injected, which keeps the
// state machine testable against a synthetic page model.
func New(
	cfg *config.Config,
	logger *zap.Logger,
	sessions schemas.SessionManager,
	res *resolver.Resolver,
	dismisser *modal.Dismisser,
	validator *claim.Validator,
	sink schemas.SnapshotSink,
	clock poll.Clock,
) (*Orchestrator, error) {
	if cfg == nil || logger == nil || sessions == nil || res == nil ||
		dismisser == nil || validator == nil || sink == nil || clock == nil {
		return nil, fmt.Errorf("cannot initialize orchestrator with nil dependencies")
	}
	return &Orchestrator{
		cfg:       cfg,
		logger:    logger.Named("orchestrator"),
		sessions:  sessions,
		resolver:  res,
		dismisser: dismisser,
		validator: validator,
		sink:      sink,
		clock:     clock,
		signature: modal.DefaultSignature(),
	}, nil
}

// RunAccount executes the full state machine for one account and always
// returns a report, never an error: failures are folded into the report so
// the batch above can keep moving.
func (o *Orchestrator) RunAccount(ctx context.Context, account string) schemas.AccountReport {
	log := o.logger.With(zap.String("account", account))
	report := schemas.AccountReport{Account: account}

	sess, err := o.sessions.Acquire(ctx)
	if err != nil {
		log.Error("Session acquisition failed", zap.Error(err))
		report.FatalError = fmt.Sprintf("session open: %v", err)
		return report
	}
	// Release is unconditional: every exit path of this run funnels through
	// this defer, bounded so teardown cannot hang the batch.
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()
		if err := sess.Close(closeCtx); err != nil {
			log.Warn("Session release reported an error", zap.Error(err))
		}
	}()

	log = log.With(zap.String("session_id", sess.ID()))
	page := sess.Page()

	if err := o.run(ctx, log, page, account, &report); err != nil {
		report.FatalError = err.Error()
	}

	report.ClaimedCount = 0
	for _, a := range report.Attempts {
		if a.Outcome == schemas.OutcomeClaimed {
			report.ClaimedCount++
		}
	}
	report.OverallSuccess = report.FatalError == ""

	o.sink.Capture(ctx, snapshots.CheckpointFinal, account, page)
	log.Info("Account run finished",
		zap.Bool("success", report.OverallSuccess),
		zap.Int("claimed", report.ClaimedCount),
		zap.Int("attempts", len(report.Attempts)))
	return report
}

// run walks the states after session acquisition. A returned error is
// account-fatal; attempt-level failures are recorded in the report instead.
func (o *Orchestrator) run(ctx context.Context, log *zap.Logger, page schemas.Page, account string, report *schemas.AccountReport) error {
	// -- Navigate --
	if err := o.navigate(ctx, page, o.cfg.Target.URL); err != nil {
		log.Error("Navigation to reward surface failed", zap.Error(err))
		return err
	}
	o.sink.Capture(ctx, snapshots.CheckpointPreLogin, account, page)

	// -- DetectLogin / LoginFlow --
	if err := o.loginIfRequired(ctx, log, page, account); err != nil {
		log.Error("Login flow failed", zap.Error(err))
		return err
	}

	// -- LocateRewardSurfaces / EnumerateControls / ActivateLoop --
	// Primary surface first, then the optional bonus surface as a second,
	// independent enumeration pass within the same run.
	if err := o.sweepSurface(ctx, log, page, report); err != nil {
		return err
	}
	if bonus := o.cfg.Target.BonusURL; bonus != "" {
		if err := o.navigate(ctx, page, bonus); err != nil {
			log.Error("Navigation to bonus surface failed", zap.Error(err))
			return err
		}
		if err := o.sweepSurface(ctx, log, page, report); err != nil {
			return err
		}
	}
	return nil
}

// navigate loads a URL under the configured navigation timeout and lets the
// surface settle.
func (o *Orchestrator) navigate(ctx context.Context, page schemas.Page, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, o.cfg.Network.NavigationTimeout)
	defer cancel()
	if err := page.Navigate(navCtx, url); err != nil {
		var nav *schemas.NavigationError
		if !errors.As(err, &nav) {
			err = &schemas.NavigationError{URL: url, Err: err}
		}
		return err
	}
	return o.clock.Sleep(ctx, o.cfg.Network.PostLoadWait)
}

// loginIfRequired detects a login surface by the presence of an identity
// input and, when found, performs the sign-in flow. A missing submit control
// after the identity was filled aborts the account.
func (o *Orchestrator) loginIfRequired(ctx context.Context, log *zap.Logger, page schemas.Page, account string) error {
	identity, err := o.resolver.Resolve(ctx, page, schemas.RoleIdentityInput)
	if errors.Is(err, schemas.ErrNotFound) {
		log.Debug("No login indicator present, proceeding to reward surfaces")
		return nil
	}
	if err != nil {
		return &schemas.ResolutionError{Role: schemas.RoleIdentityInput}
	}

	log.Info("Login surface detected, signing in")
	actionCtx, cancel := context.WithTimeout(ctx, o.cfg.Network.ActionTimeout)
	defer cancel()

	if err := identity.Clear(actionCtx); err != nil {
		return &schemas.ActionError{Op: "clear", Selector: identity.Selector(), Err: err}
	}
	if err := identity.Type(actionCtx, account); err != nil {
		return &schemas.ActionError{Op: "type", Selector: identity.Selector(), Err: err}
	}
	o.sink.Capture(ctx, snapshots.CheckpointPostIdentityEntry, account, page)

	submit, err := o.resolver.Resolve(ctx, page, schemas.RoleSubmitControl)
	if err != nil {
		return &schemas.ResolutionError{Role: schemas.RoleSubmitControl}
	}
	if err := submit.Click(actionCtx); err != nil {
		return &schemas.ActionError{Op: "click", Selector: submit.Selector(), Err: err}
	}

	if err := o.clock.Sleep(ctx, o.cfg.Network.PostLoadWait); err != nil {
		return err
	}
	o.sink.Capture(ctx, snapshots.CheckpointPostLogin, account, page)
	return nil
}

// sweepSurface locates reward sections (best effort), enumerates the visible
// reward controls and runs the activation loop on them.
func (o *Orchestrator) sweepSurface(ctx context.Context, log *zap.Logger, page schemas.Page, report *schemas.AccountReport) error {
	sections, err := o.resolver.ResolveAll(ctx, page, schemas.RoleRewardSection)
	if err != nil {
		return err
	}
	sections = o.filterSections(sections)
	if len(sections) == 0 {
		// Absence of named sections is expected on some layouts; the
		// page-wide control scan below still runs.
		log.Warn("No named reward sections located, falling back to page-wide scan")
	} else {
		log.Info("Reward sections located", zap.Int("count", len(sections)))
	}

	controls, err := o.resolver.ResolveAll(ctx, page, schemas.RoleRewardControl)
	if err != nil {
		return err
	}
	log.Info("Reward controls enumerated", zap.Int("count", len(controls)))

	for i, control := range controls {
		if i > 0 {
			// Settle between controls so state changes never overlap.
			if err := o.clock.Sleep(ctx, o.cfg.Batch.InterControlDelay); err != nil {
				return err
			}
		}

		force := false
		if o.dismisser.Detect(ctx, page, o.signature) {
			if !o.dismisser.TryDismiss(ctx, page, o.signature) {
				// Every tactic failed: bypass the interstitial with a direct
				// dispatch on the original target.
				log.Warn("Interstitial not dismissed, forcing activation", zap.String("selector", control.Selector()))
				force = true
			}
		}

		actionCtx, cancel := context.WithTimeout(ctx, o.cfg.Network.ActionTimeout+o.cfg.Network.SettleTimeout)
		attempt := o.validator.Classify(actionCtx, control, force)
		cancel()

		report.Attempts = append(report.Attempts, attempt)
		switch attempt.Outcome {
		case schemas.OutcomeFailed:
			log.Warn("Control activation failed, continuing",
				zap.String("selector", attempt.Selector),
				zap.String("error", attempt.Error))
		case schemas.OutcomeAmbiguous:
			log.Warn("Claim outcome ambiguous",
				zap.String("selector", attempt.Selector),
				zap.String("pre", attempt.PreText),
				zap.String("post", attempt.PostText))
		default:
			log.Info("Control classified",
				zap.String("selector", attempt.Selector),
				zap.String("outcome", string(attempt.Outcome)))
		}
	}
	return nil
}

// filterSections narrows located sections by the configured keywords, when
// any are set.
func (o *Orchestrator) filterSections(sections []schemas.Element) []schemas.Element {
	keywords := o.cfg.Target.SectionKeywords
	if len(keywords) == 0 {
		return sections
	}
	var out []schemas.Element
	for _, s := range sections {
		text := strings.ToLower(s.Snapshot().Text)
		for _, kw := range keywords {
			if strings.Contains(text, strings.ToLower(kw)) {
				out = append(out, s)
				break
			}
		}
	}
	return out
}
