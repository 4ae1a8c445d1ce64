// api/schemas/errors.go
package schemas

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by the resolver when every lookup strategy for a
// role came up empty. Callers decide whether that is fatal.
var ErrNotFound = errors.New("no strategy matched an element for the role")

// ErrAmbiguous marks a claim whose outcome could not be decided from the
// pre/post snapshot pair.
var ErrAmbiguous = errors.New("outcome undecidable from snapshots")

// NavigationError wraps a page load or navigation timeout. It is fatal to the
// current account only.
type NavigationError struct {
	URL string
	Err error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigation to %s failed: %v", e.URL, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }

// ResolutionError reports that a required element for a role could not be
// located. On the login path it aborts the account.
type ResolutionError struct {
	Role Role
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("failed to resolve element for role %q", e.Role)
}

func (e *ResolutionError) Unwrap() error { return ErrNotFound }

// ActionError wraps a failed activation or input dispatch against a located
// element. It aborts only the attempt it belongs to.
type ActionError struct {
	Op       string
	Selector string
	Err      error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("action %s on %q failed: %v", e.Op, e.Selector, e.Err)
}

func (e *ActionError) Unwrap() error { return e.Err }

// IsAccountFatal reports whether an error must abort the current account run.
// Only navigation failures (including session open failures wrapped as such)
// and login-path resolution failures qualify; everything else degrades to a
// recorded attempt outcome.
func IsAccountFatal(err error) bool {
	var nav *NavigationError
	var res *ResolutionError
	return errors.As(err, &nav) || errors.As(err, &res)
}
