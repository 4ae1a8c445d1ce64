// File: internal/claim/validator_test.go
package claim

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/halcyonix/claimsweep/api/schemas"
	"github.com/halcyonix/claimsweep/internal/fakepage"
	"github.com/halcyonix/claimsweep/internal/poll"
)

const settleWindow = 5 * time.Second

func newClock() *poll.Manual {
	return poll.NewManual(time.Unix(0, 0))
}

// control returns the single reward control on the fixture page.
func control(t *testing.T, page *fakepage.Page) schemas.Element {
	t.Helper()
	els, err := page.Query(context.Background(), "#reward")
	require.NoError(t, err)
	require.Len(t, els, 1)
	return els[0]
}

func TestClassify_AlreadyClaimedNeverActivates(t *testing.T) {
	page := fakepage.New(`<html><body><button id="reward">Already claimed</button></body></html>`)
	v := NewValidator(zap.NewNop(), newClock(), settleWindow)

	attempt := v.Classify(context.Background(), control(t, page), false)

	assert.Equal(t, schemas.OutcomeAlreadyClaimed, attempt.Outcome)
	assert.Empty(t, page.Clicks(), "a granted control must never be activated")
	assert.Empty(t, page.ForcedClicks())
}

func TestClassify_DisabledControlIsSkipped(t *testing.T) {
	page := fakepage.New(`<html><body><button id="reward" disabled>Claim now</button></body></html>`)
	v := NewValidator(zap.NewNop(), newClock(), settleWindow)

	attempt := v.Classify(context.Background(), control(t, page), false)

	assert.Equal(t, schemas.OutcomeSkipped, attempt.Outcome)
	assert.Empty(t, page.Clicks())
}

func TestClassify_ClaimedOnGrantedTransition(t *testing.T) {
	page := fakepage.New(`<html><body><button id="reward">Claim now</button></body></html>`)
	page.OnClick("#reward", func() {
		page.SetText("#reward", "Claimed")
	})
	v := NewValidator(zap.NewNop(), newClock(), settleWindow)

	attempt := v.Classify(context.Background(), control(t, page), false)

	want := schemas.ClaimAttempt{
		Selector: "//*[@id='reward']",
		PreText:  "Claim now",
		PostText: "Claimed",
		Outcome:  schemas.OutcomeClaimed,
	}
	if diff := cmp.Diff(want, attempt); diff != "" {
		t.Errorf("attempt mismatch (-want +got):\n%s", diff)
	}
	assert.Len(t, page.Clicks(), 1)
}

func TestClassify_ClaimedOnSuccessIndicator(t *testing.T) {
	page := fakepage.New(`<html><body><button id="reward">Claim now</button></body></html>`)
	page.OnClick("#reward", func() {
		page.SetText("#reward", "Thank you!")
	})
	v := NewValidator(zap.NewNop(), newClock(), settleWindow)

	attempt := v.Classify(context.Background(), control(t, page), false)

	assert.Equal(t, schemas.OutcomeClaimed, attempt.Outcome)
}

func TestClassify_FailedOnActivationError(t *testing.T) {
	page := fakepage.New(`<html><body><button id="reward">Claim now</button></body></html>`)
	page.FailClick("#reward", errors.New("element intercepted"))
	v := NewValidator(zap.NewNop(), newClock(), settleWindow)

	attempt := v.Classify(context.Background(), control(t, page), false)

	assert.Equal(t, schemas.OutcomeFailed, attempt.Outcome)
	assert.Contains(t, attempt.Error, "element intercepted")
}

func TestClassify_AmbiguousWhenSurfaceNeverSettles(t *testing.T) {
	// The click succeeds but the text never changes inside the settle window.
	page := fakepage.New(`<html><body><button id="reward">Claim now</button></body></html>`)
	v := NewValidator(zap.NewNop(), newClock(), settleWindow)

	attempt := v.Classify(context.Background(), control(t, page), false)

	assert.Equal(t, schemas.OutcomeAmbiguous, attempt.Outcome)
	assert.Equal(t, "Claim now", attempt.PostText)
	assert.Len(t, page.Clicks(), 1)
}

func TestClassify_AmbiguousOnUnrecognizedTransition(t *testing.T) {
	page := fakepage.New(`<html><body><button id="reward">Claim now</button></body></html>`)
	page.OnClick("#reward", func() {
		page.SetText("#reward", "Please wait...")
	})
	v := NewValidator(zap.NewNop(), newClock(), settleWindow)

	attempt := v.Classify(context.Background(), control(t, page), false)

	assert.Equal(t, schemas.OutcomeAmbiguous, attempt.Outcome)
	assert.Equal(t, "Please wait...", attempt.PostText)
}

func TestClassify_ForceUsesDirectDispatch(t *testing.T) {
	page := fakepage.New(`<html><body><button id="reward">Claim now</button></body></html>`)
	// The pointer path is blocked by an overlay; the direct dispatch still
	// lands and the grant goes through.
	page.FailClick("#reward", errors.New("overlay intercepts pointer"))
	page.OnClick("#reward", func() {
		page.SetText("#reward", "Collected")
	})
	v := NewValidator(zap.NewNop(), newClock(), settleWindow)

	attempt := v.Classify(context.Background(), control(t, page), true)

	assert.Equal(t, schemas.OutcomeClaimed, attempt.Outcome)
	assert.Empty(t, page.Clicks())
	assert.Len(t, page.ForcedClicks(), 1)
}
