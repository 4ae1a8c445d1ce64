// File: internal/modal/modal.go

// Package modal detects and clears blocking interstitials (consent and
// preference dialogs) that would otherwise swallow pointer actions aimed at
// the real target. Dismissal tactics run in a fixed order and stop at the
// first one that actually makes the dialog go away.
package modal

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/halcyonix/claimsweep/api/schemas"
)

// Signature identifies a known class of blocking interstitial by structure
// and text.
type Signature struct {
	// ContainerSelector matches the dialog content element.
	ContainerSelector string
	// TextMarkers narrow detection: when non-empty, the container must carry
	// one of them (case-insensitive) to count as this interstitial.
	TextMarkers []string
	// BackdropSelector matches the dimmed layer outside the dialog content.
	BackdropSelector string
}

// DefaultSignature covers the consent/preference dialog family seen on the
// reward surfaces.
func DefaultSignature() Signature {
	return Signature{
		ContainerSelector: `[role=dialog], .modal, [class*=consent], [class*=cookie]`,
		TextMarkers:       []string{"cookie", "consent", "preference", "privacy"},
		BackdropSelector:  `.modal-backdrop, .overlay, [class*=backdrop]`,
	}
}

// dismissLabels is the fixed vocabulary scanned for by the last tactic.
var dismissLabels = []string{"save", "exit", "close", "dismiss"}

// Dismisser applies the ordered dismissal tactics.
type Dismisser struct {
	logger *zap.Logger
}

// NewDismisser creates a Dismisser.
func NewDismisser(logger *zap.Logger) *Dismisser {
	return &Dismisser{logger: logger.Named("modal")}
}

// Detect reports whether a blocking interstitial matching the signature is
// currently present and visible.
func (d *Dismisser) Detect(ctx context.Context, page schemas.Page, sig Signature) bool {
	els, err := page.Query(ctx, sig.ContainerSelector)
	if err != nil {
		return false
	}
	for _, el := range els {
		snap := el.Snapshot()
		if !snap.Visible {
			continue
		}
		if len(sig.TextMarkers) == 0 {
			return true
		}
		text := strings.ToLower(snap.Text)
		for _, marker := range sig.TextMarkers {
			if strings.Contains(text, marker) {
				return true
			}
		}
	}
	return false
}

// TryDismiss attempts, in order: a pointer action on the backdrop, an Escape
// key press, then activating the first actionable control labelled save /
// exit / close / dismiss. It stops at the first tactic after which the
// interstitial is gone. False means every tactic failed and the caller should
// fall back to a forced, modal-bypassing activation of its original target.
func (d *Dismisser) TryDismiss(ctx context.Context, page schemas.Page, sig Signature) bool {
	if !d.Detect(ctx, page, sig) {
		return true
	}

	tactics := []struct {
		name string
		run  func(context.Context, schemas.Page, Signature) error
	}{
		{"backdrop_click", d.clickBackdrop},
		{"escape_key", d.sendEscape},
		{"labelled_control", d.clickLabelledControl},
	}

	for _, tactic := range tactics {
		if err := tactic.run(ctx, page, sig); err != nil {
			d.logger.Debug("Dismissal tactic errored", zap.String("tactic", tactic.name), zap.Error(err))
		}
		if !d.Detect(ctx, page, sig) {
			d.logger.Debug("Interstitial dismissed", zap.String("tactic", tactic.name))
			return true
		}
	}

	d.logger.Warn("Interstitial resisted all dismissal tactics")
	return false
}

func (d *Dismisser) clickBackdrop(ctx context.Context, page schemas.Page, sig Signature) error {
	els, err := page.Query(ctx, sig.BackdropSelector)
	if err != nil {
		return err
	}
	for _, el := range els {
		if el.Snapshot().Visible {
			return el.Click(ctx)
		}
	}
	return nil
}

func (d *Dismisser) sendEscape(ctx context.Context, page schemas.Page, _ Signature) error {
	return page.SendEscape(ctx)
}

func (d *Dismisser) clickLabelledControl(ctx context.Context, page schemas.Page, _ Signature) error {
	els, err := page.Query(ctx, `button, [role=button], a`)
	if err != nil {
		return err
	}
	for _, el := range els {
		snap := el.Snapshot()
		if !snap.Visible || !snap.Enabled {
			continue
		}
		text := strings.ToLower(snap.Text + " " + snap.Label)
		for _, label := range dismissLabels {
			if strings.Contains(text, label) {
				return el.Click(ctx)
			}
		}
	}
	return nil
}
