// File: internal/browser/element.go
package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"

	"github.com/halcyonix/claimsweep/api/schemas"
)

// elementProbe is the wire shape returned by the in-page inspection scripts.
type elementProbe struct {
	XPath   string `json:"xpath"`
	Text    string `json:"text"`
	Label   string `json:"label"`
	Visible bool   `json:"visible"`
	Enabled bool   `json:"enabled"`
}

func (p elementProbe) snapshot() schemas.Snapshot {
	return schemas.Snapshot{
		Text:    p.Text,
		Label:   p.Label,
		Visible: p.Visible,
		Enabled: p.Enabled,
	}
}

// probeHelpers defines the in-page inspection functions shared by the query
// and refresh scripts. The XPath is ID-anchored when possible so handles stay
// stable across unrelated DOM churn.
const probeHelpers = `
	const xpathOf = (el) => {
		if (el.id) return '//*[@id="' + el.id + '"]';
		const parts = [];
		for (let n = el; n && n.nodeType === 1; n = n.parentNode) {
			let idx = 1;
			for (let sib = n.previousElementSibling; sib; sib = sib.previousElementSibling) {
				if (sib.tagName === n.tagName) idx++;
			}
			parts.unshift(n.tagName.toLowerCase() + '[' + idx + ']');
			if (n.id) { parts[0] = '/*[@id="' + n.id + '"]'; break; }
		}
		return '/' + parts.join('/');
	};
	const probeOf = (el) => {
		const style = window.getComputedStyle(el);
		const rects = el.getClientRects();
		const label = ['placeholder', 'aria-label', 'name', 'title']
			.map(a => el.getAttribute(a) || '').filter(v => v).join(' ');
		const text = (el.value !== undefined && el.tagName === 'INPUT')
			? String(el.value) : (el.innerText || '').trim();
		return {
			xpath: xpathOf(el),
			text: text,
			label: label,
			visible: rects.length > 0 && style.visibility !== 'hidden' && style.display !== 'none',
			enabled: !el.disabled && el.getAttribute('aria-disabled') !== 'true',
		};
	};
`

// queryScript returns a script producing a probe per selector match, in
// document order.
func queryScript(selector string) string {
	return fmt.Sprintf(`(() => {%s
	return Array.from(document.querySelectorAll(%q)).map(probeOf);
})()`, probeHelpers, selector)
}

// resolveScript returns a script evaluating an action against the single node
// an XPath resolves to. body runs with "el" bound; its result is returned.
func resolveScript(xpath, body string) string {
	return fmt.Sprintf(`(() => {%s
	const el = document.evaluate(%q, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue;
	if (!el) throw new Error('element not found: ' + %q);
	%s
})()`, probeHelpers, xpath, xpath, body)
}

// element is a located page control addressed by XPath. The snapshot is
// frozen at query time; Refresh re-probes the live node.
type element struct {
	sess  *session
	xpath string
	snap  schemas.Snapshot
}

var _ schemas.Element = (*element)(nil)

func (e *element) Selector() string           { return e.xpath }
func (e *element) Snapshot() schemas.Snapshot { return e.snap }

// Refresh re-reads the element's live state. The stored snapshot is left
// untouched so pre/post comparisons stay valid.
func (e *element) Refresh(ctx context.Context) (schemas.Snapshot, error) {
	var probe elementProbe
	script := resolveScript(e.xpath, "return probeOf(el);")
	if err := e.sess.do(ctx, chromedp.Evaluate(script, &probe)); err != nil {
		return schemas.Snapshot{}, fmt.Errorf("refresh of %s failed: %w", e.xpath, err)
	}
	return probe.snapshot(), nil
}

// Click dispatches a simulated pointer activation on the node.
func (e *element) Click(ctx context.Context) error {
	return e.sess.do(ctx, chromedp.Click(e.xpath, chromedp.BySearch))
}

// ForceClick fires the activation directly on the node, skipping pointer hit
// testing entirely. Overlays that would swallow a real click cannot intercept
// this path.
func (e *element) ForceClick(ctx context.Context) error {
	script := resolveScript(e.xpath, `
	el.scrollIntoView({block: 'center'});
	el.click();
	return true;`)
	var ok bool
	return e.sess.do(ctx, chromedp.Evaluate(script, &ok))
}

// Clear empties the element's value.
func (e *element) Clear(ctx context.Context) error {
	return e.sess.do(ctx, chromedp.SetValue(e.xpath, "", chromedp.BySearch))
}

// Type focuses the element and enters text through synthesized key events.
func (e *element) Type(ctx context.Context, text string) error {
	return e.sess.do(ctx, chromedp.SendKeys(e.xpath, text, chromedp.BySearch))
}
