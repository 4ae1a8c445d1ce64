// File: internal/fakepage/fakepage.go

// Package fakepage implements the schemas.Page contract over an in-memory
// DOM parsed with golang.org/x/net/html. It exists so the claim heuristics
// can be exercised deterministically without a browser: tests script click
// side effects, navigation failures and interstitial behavior, and inspect
// every action the code under test performed.
package fakepage

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/net/html"

	"github.com/halcyonix/claimsweep/api/schemas"
)

// clickHook is a scripted consequence of activating a matching element.
type clickHook struct {
	selector string
	fn       func()
	err      error
}

// Page is a synthetic, mutable page state.
type Page struct {
	mu  sync.Mutex
	doc *html.Node

	routes    map[string]string // url -> markup served on navigation
	navErrors map[string]error  // url -> injected navigation failure

	currentURL string

	// Recorded interactions, inspected by tests.
	clicks       []string
	forcedClicks []string
	typed        map[string][]string
	escapes      int
	escapeFn     func()
	screenshots  int

	hooks []clickHook
}

// New parses the given markup into a fresh page.
func New(markup string) *Page {
	p := &Page{
		routes:    make(map[string]string),
		navErrors: make(map[string]error),
		typed:     make(map[string][]string),
	}
	p.mustSetContent(markup)
	return p
}

func (p *Page) mustSetContent(markup string) {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		panic(fmt.Sprintf("fakepage: bad markup: %v", err))
	}
	p.doc = doc
}

// Route serves markup for a URL on Navigate.
func (p *Page) Route(url, markup string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.routes[url] = markup
}

// FailNavigation makes Navigate to the URL return the given error, wrapped as
// a NavigationError the way the real session does.
func (p *Page) FailNavigation(url string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.navErrors[url] = err
}

// OnClick scripts a side effect for activating any element matching selector.
func (p *Page) OnClick(selector string, fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hooks = append(p.hooks, clickHook{selector: selector, fn: fn})
}

// FailClick makes pointer activation of matching elements return an error.
// Forced activation is unaffected, mirroring the modal-bypass path.
func (p *Page) FailClick(selector string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hooks = append(p.hooks, clickHook{selector: selector, err: err})
}

// OnEscape scripts the consequence of an Escape key press.
func (p *Page) OnEscape(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.escapeFn = fn
}

// SetText replaces the text content of the first element matching selector.
// Used by tests to simulate a claim transition.
func (p *Page) SetText(selector, text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	nodes := matchAll(p.doc, selector)
	if len(nodes) == 0 {
		return
	}
	n := nodes[0]
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}

// SetAttr sets an attribute on every element matching selector.
func (p *Page) SetAttr(selector, key, val string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, n := range matchAll(p.doc, selector) {
		setAttr(n, key, val)
	}
}

// Remove detaches every element matching selector from the document.
func (p *Page) Remove(selector string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, n := range matchAll(p.doc, selector) {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
	}
}

// Clicks returns the locator of every pointer activation, in order.
func (p *Page) Clicks() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.clicks...)
}

// ForcedClicks returns the locator of every forced activation, in order.
func (p *Page) ForcedClicks() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.forcedClicks...)
}

// Typed returns everything typed into the element with the given locator.
func (p *Page) Typed(locator string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.typed[locator]...)
}

// Escapes returns how many Escape presses the page received.
func (p *Page) Escapes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.escapes
}

// Screenshots returns how many screenshots were captured.
func (p *Page) Screenshots() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.screenshots
}

// CurrentURL returns the last successfully navigated URL.
func (p *Page) CurrentURL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentURL
}

// -- schemas.Page implementation --

var _ schemas.Page = (*Page)(nil)

func (p *Page) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return &schemas.NavigationError{URL: url, Err: err}
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if err, ok := p.navErrors[url]; ok {
		return &schemas.NavigationError{URL: url, Err: err}
	}
	if markup, ok := p.routes[url]; ok {
		p.mustSetContent(markup)
	}
	p.currentURL = url
	return nil
}

func (p *Page) Query(ctx context.Context, selector string) ([]schemas.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	nodes := matchAll(p.doc, selector)
	out := make([]schemas.Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, &element{
			page:    p,
			node:    n,
			locator: nodePath(n),
			snap:    snapshotOf(n),
		})
	}
	return out, nil
}

func (p *Page) SendEscape(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	p.escapes++
	fn := p.escapeFn
	p.mu.Unlock()
	if fn != nil {
		fn()
	}
	return nil
}

func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.screenshots++
	p.mu.Unlock()
	return []byte("png"), nil
}

// -- schemas.Element implementation --

type element struct {
	page    *Page
	node    *html.Node
	locator string
	snap    schemas.Snapshot
}

var _ schemas.Element = (*element)(nil)

func (e *element) Selector() string           { return e.locator }
func (e *element) Snapshot() schemas.Snapshot { return e.snap }

func (e *element) Refresh(ctx context.Context) (schemas.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return schemas.Snapshot{}, err
	}
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	return snapshotOf(e.node), nil
}

func (e *element) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.page.mu.Lock()
	e.page.clicks = append(e.page.clicks, e.locator)
	hooks := e.matchingHooksLocked()
	e.page.mu.Unlock()

	for _, h := range hooks {
		if h.err != nil {
			return &schemas.ActionError{Op: "click", Selector: e.locator, Err: h.err}
		}
		h.fn()
	}
	return nil
}

func (e *element) ForceClick(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.page.mu.Lock()
	e.page.forcedClicks = append(e.page.forcedClicks, e.locator)
	hooks := e.matchingHooksLocked()
	e.page.mu.Unlock()

	// Forced dispatch skips the injected pointer failures but still runs the
	// scripted DOM consequences.
	for _, h := range hooks {
		if h.fn != nil {
			h.fn()
		}
	}
	return nil
}

func (e *element) matchingHooksLocked() []clickHook {
	var out []clickHook
	for _, h := range e.page.hooks {
		sels, err := parseSelectorList(h.selector)
		if err != nil {
			continue
		}
		for _, s := range sels {
			if s.matches(e.node) {
				out = append(out, h)
				break
			}
		}
	}
	return out
}

func (e *element) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	setAttr(e.node, "value", "")
	return nil
}

func (e *element) Type(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	prev := attrOf(e.node, "value")
	setAttr(e.node, "value", prev+text)
	e.page.typed[e.locator] = append(e.page.typed[e.locator], text)
	return nil
}
