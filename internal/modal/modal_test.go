// File: internal/modal/modal_test.go
package modal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/halcyonix/claimsweep/internal/fakepage"
)

const consentMarkup = `<html><body>
	<div class="modal-backdrop"></div>
	<div id="dialog" role="dialog">
		We use cookies. <button id="save-btn">Save and exit</button>
	</div>
	<button id="target" class="claim-button">Claim</button>
</body></html>`

func newDismisser() *Dismisser {
	return NewDismisser(zap.NewNop())
}

func TestDetect_PresentAndAbsent(t *testing.T) {
	d := newDismisser()
	sig := DefaultSignature()

	t.Run("present with marker text", func(t *testing.T) {
		page := fakepage.New(consentMarkup)
		assert.True(t, d.Detect(context.Background(), page, sig))
	})

	t.Run("absent", func(t *testing.T) {
		page := fakepage.New(`<html><body><button>Claim</button></body></html>`)
		assert.False(t, d.Detect(context.Background(), page, sig))
	})

	t.Run("container without marker text is ignored", func(t *testing.T) {
		page := fakepage.New(`<html><body>
			<div role="dialog">Pick a server region</div>
		</body></html>`)
		assert.False(t, d.Detect(context.Background(), page, sig))
	})

	t.Run("hidden container is ignored", func(t *testing.T) {
		page := fakepage.New(`<html><body>
			<div role="dialog" style="display:none">Cookie consent</div>
		</body></html>`)
		assert.False(t, d.Detect(context.Background(), page, sig))
	})
}

func TestTryDismiss_NoInterstitialIsImmediateSuccess(t *testing.T) {
	page := fakepage.New(`<html><body><button>Claim</button></body></html>`)

	ok := newDismisser().TryDismiss(context.Background(), page, DefaultSignature())
	assert.True(t, ok)
	assert.Empty(t, page.Clicks())
	assert.Zero(t, page.Escapes())
}

func TestTryDismiss_BackdropClickWins(t *testing.T) {
	page := fakepage.New(consentMarkup)
	page.OnClick(".modal-backdrop", func() {
		page.Remove(`[role=dialog]`)
		page.Remove(".modal-backdrop")
	})

	ok := newDismisser().TryDismiss(context.Background(), page, DefaultSignature())
	require.True(t, ok)
	// Only the first tactic may have run.
	assert.Len(t, page.Clicks(), 1)
	assert.Zero(t, page.Escapes())
}

func TestTryDismiss_EscapeAfterBackdropFails(t *testing.T) {
	page := fakepage.New(consentMarkup)
	// Backdrop click does nothing; Escape clears the dialog.
	page.OnEscape(func() {
		page.Remove(`[role=dialog]`)
	})

	ok := newDismisser().TryDismiss(context.Background(), page, DefaultSignature())
	require.True(t, ok)
	assert.Len(t, page.Clicks(), 1, "backdrop tactic ran first")
	assert.Equal(t, 1, page.Escapes())
}

func TestTryDismiss_LabelledControlAsLastTactic(t *testing.T) {
	page := fakepage.New(consentMarkup)
	page.OnClick("#save-btn", func() {
		page.Remove(`[role=dialog]`)
	})

	ok := newDismisser().TryDismiss(context.Background(), page, DefaultSignature())
	require.True(t, ok)
	assert.Equal(t, 1, page.Escapes(), "escape tactic ran before the labelled control")

	clicks := page.Clicks()
	require.Len(t, clicks, 2)
	assert.Contains(t, clicks[1], "save-btn")
}

func TestTryDismiss_AllTacticsFail(t *testing.T) {
	page := fakepage.New(consentMarkup)

	ok := newDismisser().TryDismiss(context.Background(), page, DefaultSignature())
	assert.False(t, ok, "an undismissable interstitial must be reported so the caller can force the activation")
	assert.Equal(t, 1, page.Escapes())
	assert.Len(t, page.Clicks(), 2, "backdrop and labelled control were both attempted")
}
