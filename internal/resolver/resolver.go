// File: internal/resolver/resolver.go

// Package resolver locates semantic page affordances on markup that offers no
// stable identifiers. Every role is resolved through a fixed, ordered list of
// lookup strategies; the first hit wins, which keeps resolution deterministic
// for a given candidate set.
package resolver

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/halcyonix/claimsweep/api/schemas"
)

// Resolver resolves roles against a page. It is stateless and safe to share
// across account runs.
type Resolver struct {
	logger *zap.Logger
}

// New creates a Resolver.
func New(logger *zap.Logger) *Resolver {
	return &Resolver{logger: logger.Named("resolver")}
}

// Resolve returns the first element matching the role's strategy list, or
// schemas.ErrNotFound when every strategy came up empty. NotFound is not
// fatal by itself; callers decide.
func (r *Resolver) Resolve(ctx context.Context, page schemas.Page, role schemas.Role) (schemas.Element, error) {
	spec, ok := roleSpecs[role]
	if !ok {
		return nil, fmt.Errorf("unknown role %q", role)
	}

	// Pass 1: structural selectors, in listed order. Within one selector the
	// page returns document order, so the first visible hit wins.
	for i, sel := range spec.structural {
		els, err := page.Query(ctx, sel)
		if err != nil {
			return nil, err
		}
		if el := firstVisible(els); el != nil {
			r.logger.Debug("Resolved role structurally",
				zap.String("role", string(role)),
				zap.Int("strategy", i),
				zap.String("selector", el.Selector()))
			return el, nil
		}
	}

	// Pass 2: full scan of the candidate kind, filtered by the role's
	// textual predicate.
	els, err := page.Query(ctx, spec.scan)
	if err != nil {
		return nil, err
	}
	for _, el := range els {
		if matchesKeywords(el.Snapshot(), spec.keywords) {
			r.logger.Debug("Resolved role by text scan",
				zap.String("role", string(role)),
				zap.String("selector", el.Selector()))
			return el, nil
		}
	}

	return nil, fmt.Errorf("role %s: %w", role, schemas.ErrNotFound)
}

// ResolveAll enumerates every visible element the role's strategies match.
// The first structural selector that yields any visible candidates supplies
// the whole result set, preserving the strategy-priority rule; only when no
// structural selector matches does the textual scan contribute.
func (r *Resolver) ResolveAll(ctx context.Context, page schemas.Page, role schemas.Role) ([]schemas.Element, error) {
	spec, ok := roleSpecs[role]
	if !ok {
		return nil, fmt.Errorf("unknown role %q", role)
	}

	for _, sel := range spec.structural {
		els, err := page.Query(ctx, sel)
		if err != nil {
			return nil, err
		}
		if vis := allVisible(els); len(vis) > 0 {
			return vis, nil
		}
	}

	els, err := page.Query(ctx, spec.scan)
	if err != nil {
		return nil, err
	}
	var out []schemas.Element
	for _, el := range els {
		if matchesKeywords(el.Snapshot(), spec.keywords) {
			out = append(out, el)
		}
	}
	return out, nil
}

func firstVisible(els []schemas.Element) schemas.Element {
	for _, el := range els {
		if el.Snapshot().Visible {
			return el
		}
	}
	return nil
}

func allVisible(els []schemas.Element) []schemas.Element {
	var out []schemas.Element
	for _, el := range els {
		if el.Snapshot().Visible {
			out = append(out, el)
		}
	}
	return out
}

// matchesKeywords applies the role's textual predicate: the element is a
// candidate when it is visible and its text or label contains any keyword,
// case-insensitively.
func matchesKeywords(snap schemas.Snapshot, keywords []string) bool {
	if !snap.Visible {
		return false
	}
	text := strings.ToLower(snap.Text)
	label := strings.ToLower(snap.Label)
	for _, kw := range keywords {
		if strings.Contains(text, kw) || strings.Contains(label, kw) {
			return true
		}
	}
	return false
}
