// File: internal/browser/manager.go

// Package browser provides the chromedp-backed implementation of the session
// and page abstractions. One browser process hosts all sessions; each account
// run gets its own isolated tab.
package browser

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/halcyonix/claimsweep/api/schemas"
	"github.com/halcyonix/claimsweep/internal/config"
)

// persona is the browser identity presented to the target. A desktop Chrome
// fingerprint keeps the traffic indistinguishable from a regular visitor.
type persona struct {
	UserAgent      string
	AcceptLanguage string
}

var defaultPersona = persona{
	UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	AcceptLanguage: "en-US,en;q=0.9",
}

// Manager owns the headless browser process lifecycle. All session tabs are
// derived from its allocator context.
type Manager struct {
	logger *zap.Logger
	cfg    *config.Config

	allocatorCtx    context.Context
	allocatorCancel context.CancelFunc

	persona persona

	// wg tracks live sessions so shutdown can drain them.
	wg sync.WaitGroup
}

var _ schemas.SessionManager = (*Manager)(nil)

// NewManager launches the browser process and verifies it is responsive.
func NewManager(ctx context.Context, logger *zap.Logger, cfg *config.Config) (*Manager, error) {
	m := &Manager{
		logger:  logger.Named("browser_manager"),
		cfg:     cfg,
		persona: defaultPersona,
	}
	if err := m.launchBrowser(ctx); err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	return m, nil
}

// launchBrowser prepares allocator options and starts the headless browser process.
func (m *Manager) launchBrowser(ctx context.Context) error {
	m.logger.Info("Initializing browser allocator...")

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, m.buildAllocatorOptions()...)
	m.allocatorCtx = allocCtx
	m.allocatorCancel = cancel

	// Verify the browser starts and responds before accepting sessions.
	testCtx, cancelTest := context.WithTimeout(allocCtx, 30*time.Second)
	testCtx, cancelTestCtx := chromedp.NewContext(testCtx)
	defer cancelTestCtx()
	defer cancelTest()

	if err := chromedp.Run(testCtx, chromedp.Navigate("about:blank")); err != nil {
		m.allocatorCancel()
		return fmt.Errorf("browser failed to start or respond: %w", err)
	}

	m.logger.Info("Browser launched successfully and is responsive.")
	return nil
}

// buildAllocatorOptions assembles the flags for a stealthy, configurable
// browser instance.
func (m *Manager) buildAllocatorOptions() []chromedp.ExecAllocatorOption {
	var opts []chromedp.ExecAllocatorOption

	// Start from the defaults, dropping the flag that advertises automation.
	// Options are opaque, so the default cannot be filtered out directly;
	// overriding the flag to false keeps it off the command line.
	opts = append(opts, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts, chromedp.Flag("enable-automation", false))

	opts = append(opts,
		chromedp.Flag("headless", m.cfg.Browser.Headless),
		chromedp.Flag("ignore-certificate-errors", m.cfg.Browser.IgnoreTLSErrors),
		// Keeps navigator.webdriver unset.
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-gpu", m.cfg.Browser.Headless),
		chromedp.UserAgent(m.persona.UserAgent),
	)

	// Custom arguments from config.yaml.
	for _, arg := range m.cfg.Browser.Args {
		parts := strings.SplitN(arg, "=", 2)
		flagName := strings.TrimPrefix(parts[0], "--")
		if len(parts) == 2 {
			opts = append(opts, chromedp.Flag(flagName, parts[1]))
		} else {
			opts = append(opts, chromedp.Flag(flagName, true))
		}
	}

	// Required when running inside containers on Linux.
	if runtime.GOOS == "linux" {
		opts = append(opts,
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("disable-setuid-sandbox", true),
		)
	}

	return opts
}

// Acquire opens a new isolated tab for one account run.
func (m *Manager) Acquire(ctx context.Context) (schemas.Session, error) {
	sess, err := newSession(ctx, m.allocatorCtx, m.logger, m.persona)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session: %w", err)
	}

	m.wg.Add(1)
	return &sessionWrapper{Session: sess, wg: &m.wg}, nil
}

// Shutdown waits for live sessions to finish and terminates the browser
// process, respecting the caller's deadline.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("Browser manager shutdown initiated. Waiting for active sessions to complete...")

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("All sessions have completed.")
	case <-ctx.Done():
		m.logger.Warn("Shutdown deadline exceeded. Forcing browser termination.", zap.Error(ctx.Err()))
	}

	if m.allocatorCancel != nil {
		m.logger.Info("Shutting down main browser process...")
		m.allocatorCancel()
		<-m.allocatorCtx.Done()
	}
	return nil
}

// sessionWrapper decrements the manager's WaitGroup exactly once when the
// session closes, no matter how many times Close is called.
type sessionWrapper struct {
	schemas.Session
	wg     *sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

func (sw *sessionWrapper) Close(ctx context.Context) error {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if sw.closed {
		return nil
	}
	sw.closed = true
	err := sw.Session.Close(ctx)
	sw.wg.Done()
	return err
}
