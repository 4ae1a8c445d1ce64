// File: internal/browser/session.go
package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/halcyonix/claimsweep/api/schemas"
)

// session is one browser tab bound to a single account run. It implements
// both the Session and Page contracts; the tab is the page.
type session struct {
	id     string
	logger *zap.Logger

	tabCtx    context.Context
	tabCancel context.CancelFunc

	closeOnce sync.Once
}

var (
	_ schemas.Session = (*session)(nil)
	_ schemas.Page    = (*session)(nil)
)

// newSession creates and materializes a fresh tab derived from the allocator.
func newSession(ctx context.Context, allocatorCtx context.Context, logger *zap.Logger, p persona) (*session, error) {
	id := uuid.NewString()
	tabCtx, tabCancel := chromedp.NewContext(allocatorCtx)

	s := &session{
		id:        id,
		logger:    logger.Named("session").With(zap.String("session_id", id)),
		tabCtx:    tabCtx,
		tabCancel: tabCancel,
	}

	// Materialize the tab and pin the persona's language header before any
	// target navigation happens.
	err := s.do(ctx,
		network.Enable(),
		network.SetExtraHTTPHeaders(network.Headers{"Accept-Language": p.AcceptLanguage}),
	)
	if err != nil {
		tabCancel()
		return nil, fmt.Errorf("failed to open tab: %w", err)
	}

	s.logger.Debug("Session tab opened")
	return s, nil
}

func (s *session) ID() string         { return s.id }
func (s *session) Page() schemas.Page { return s }

// Close tears down the tab. Safe to call more than once.
func (s *session) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.logger.Debug("Session tab closing")
		s.tabCancel()
	})
	return nil
}

// do runs chromedp actions on this tab while honoring the caller's deadline
// and cancellation. chromedp actions must execute against the tab context, so
// the caller's context is bridged onto it.
func (s *session) do(ctx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(s.tabCtx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		defer cancelDeadline()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

// Navigate loads a URL and waits for the document to be ready.
func (s *session) Navigate(ctx context.Context, url string) error {
	s.logger.Debug("Navigating", zap.String("url", url))
	err := s.do(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return &schemas.NavigationError{URL: url, Err: err}
	}
	return nil
}

// Query evaluates a CSS selector in the page and returns one element handle
// per match, in document order, each carrying a state snapshot taken inside
// the page at query time.
func (s *session) Query(ctx context.Context, selector string) ([]schemas.Element, error) {
	var probes []elementProbe
	if err := s.do(ctx, chromedp.Evaluate(queryScript(selector), &probes)); err != nil {
		return nil, fmt.Errorf("query %q failed: %w", selector, err)
	}

	elements := make([]schemas.Element, 0, len(probes))
	for _, p := range probes {
		elements = append(elements, &element{
			sess:  s,
			xpath: p.XPath,
			snap:  p.snapshot(),
		})
	}
	return elements, nil
}

// SendEscape dispatches an Escape key press to the focused document.
func (s *session) SendEscape(ctx context.Context) error {
	return s.do(ctx, chromedp.KeyEvent(kb.Escape))
}

// Screenshot captures the current viewport as PNG bytes.
func (s *session) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := s.do(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}
	return buf, nil
}
