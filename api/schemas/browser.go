// api/schemas/browser.go
package schemas

import "context"

// Role names a semantic page affordance the resolver knows how to locate.
type Role string

const (
	RoleIdentityInput Role = "identity-input"
	RoleSubmitControl Role = "submit-control"
	RoleRewardControl Role = "reward-control"
	RoleRewardSection Role = "reward-section"
)

// Snapshot is the captured state of an element at lookup time. Outcome
// classification works exclusively on snapshot pairs, so the fields here are
// the whole contract between the page layer and the heuristics.
type Snapshot struct {
	// Text is the visible text content (or value for inputs).
	Text string
	// Label aggregates placeholder, aria-label, name and title attributes.
	// Used by the resolver's textual fallback predicates.
	Label string
	// Visible reports whether the element takes part in layout.
	Visible bool
	// Enabled is false for disabled or aria-disabled controls.
	Enabled bool
}

// Element is an opaque reference to a located page control. The snapshot is
// frozen at lookup time; Refresh re-reads the live state. Lifetime is bounded
// to the owning account run.
type Element interface {
	// Selector returns the stable locator used to address the element for
	// subsequent actions (an XPath in the chromedp implementation).
	Selector() string

	// Snapshot returns the state captured when the element was located.
	Snapshot() Snapshot

	// Refresh re-reads the element's live state from the page.
	Refresh(ctx context.Context) (Snapshot, error)

	// Click dispatches a simulated pointer activation.
	Click(ctx context.Context) error

	// ForceClick activates the element through direct event dispatch,
	// bypassing any overlay that would swallow a pointer action. Last-resort
	// path when interstitial dismissal fails.
	ForceClick(ctx context.Context) error

	// Clear empties the element's value. Only meaningful for inputs.
	Clear(ctx context.Context) error

	// Type enters text into the element.
	Type(ctx context.Context, text string) error
}

// Page is the minimal surface the claim heuristics need from a browser tab.
// The production implementation is chromedp-backed; tests substitute a
// synthetic DOM.
type Page interface {
	// Navigate loads a URL and waits for the document to be ready. Failures
	// and timeouts surface as *NavigationError.
	Navigate(ctx context.Context, url string) error

	// Query returns all elements matching a CSS selector in document order,
	// each with a snapshot captured at query time. A selector matching
	// nothing returns an empty slice, not an error.
	Query(ctx context.Context, selector string) ([]Element, error)

	// SendEscape dispatches an Escape key press to the focused document.
	SendEscape(ctx context.Context) error

	// Screenshot captures the current viewport as PNG bytes.
	Screenshot(ctx context.Context) ([]byte, error)
}

// Session is one browser automation context bound to exactly one account
// attempt. Close must be safe to call more than once; only the first call
// tears anything down.
type Session interface {
	ID() string
	Page() Page
	Close(ctx context.Context) error
}

// SessionManager opens and closes isolated sessions. At most one session is
// live at a time under the sequential batch model.
type SessionManager interface {
	Acquire(ctx context.Context) (Session, error)
}

// SnapshotSink persists point-in-time diagnostic captures keyed by
// checkpoint and account. Implementations are best-effort: failures are
// logged, never returned.
type SnapshotSink interface {
	Capture(ctx context.Context, checkpoint, account string, page Page)
}
