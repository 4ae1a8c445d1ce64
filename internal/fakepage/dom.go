// File: internal/fakepage/dom.go
package fakepage

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/halcyonix/claimsweep/api/schemas"
)

// -- node helpers --

func attrOf(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func textOf(n *html.Node) string {
	if n.Type == html.ElementNode && strings.EqualFold(n.Data, "input") {
		return attrOf(n, "value")
	}
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
		for child := c.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}

func labelOf(n *html.Node) string {
	parts := make([]string, 0, 4)
	for _, key := range []string{"placeholder", "aria-label", "name", "title"} {
		if v := attrOf(n, key); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}

func visible(n *html.Node) bool {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Type != html.ElementNode {
			continue
		}
		if hasAttr(cur, "hidden") {
			return false
		}
		style := strings.ReplaceAll(attrOf(cur, "style"), " ", "")
		if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
			return false
		}
	}
	return true
}

func enabled(n *html.Node) bool {
	return !hasAttr(n, "disabled") && attrOf(n, "aria-disabled") != "true"
}

func snapshotOf(n *html.Node) schemas.Snapshot {
	return schemas.Snapshot{
		Text:    textOf(n),
		Label:   labelOf(n),
		Visible: visible(n),
		Enabled: enabled(n),
	}
}

// nodePath builds a stable XPath-style locator for a node, anchoring on IDs
// when available.
func nodePath(n *html.Node) string {
	var path []string
	for cur := n; cur != nil && cur.Type != html.DocumentNode; cur = cur.Parent {
		if cur.Type != html.ElementNode {
			continue
		}
		if id := attrOf(cur, "id"); id != "" {
			path = append(path, fmt.Sprintf("//*[@id='%s']", id))
			break
		}
		index := 1
		for prev := cur.PrevSibling; prev != nil; prev = prev.PrevSibling {
			if prev.Type == html.ElementNode && prev.Data == cur.Data {
				index++
			}
		}
		path = append(path, fmt.Sprintf("%s[%d]", cur.Data, index))
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	locator := strings.Join(path, "/")
	if !strings.HasPrefix(locator, "//*[@id=") {
		locator = "/" + locator
	}
	return locator
}

// -- selector matching --
//
// Supports the subset of CSS the resolver and modal heuristics actually use:
// comma-separated lists of simple selectors made of an optional tag name plus
// any number of #id, .class and [attr], [attr=v], [attr*=v], [attr^=v]
// qualifiers. No combinators.

type attrCond struct {
	key string
	op  byte // 0 presence, '=' exact, '*' contains, '^' prefix
	val string
}

type simpleSelector struct {
	tag     string
	id      string
	classes []string
	attrs   []attrCond
}

func (s simpleSelector) matches(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if s.tag != "" && !strings.EqualFold(n.Data, s.tag) {
		return false
	}
	if s.id != "" && attrOf(n, "id") != s.id {
		return false
	}
	if len(s.classes) > 0 {
		have := strings.Fields(attrOf(n, "class"))
		for _, want := range s.classes {
			found := false
			for _, c := range have {
				if c == want {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	for _, a := range s.attrs {
		switch a.op {
		case 0:
			if !hasAttr(n, a.key) {
				return false
			}
		case '=':
			if attrOf(n, a.key) != a.val {
				return false
			}
		case '*':
			if !strings.Contains(attrOf(n, a.key), a.val) {
				return false
			}
		case '^':
			if !strings.HasPrefix(attrOf(n, a.key), a.val) {
				return false
			}
		}
	}
	return true
}

func parseSimpleSelector(raw string) (simpleSelector, error) {
	var sel simpleSelector
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return sel, fmt.Errorf("empty selector")
	}

	i := 0
	// Leading tag name.
	for i < len(raw) && raw[i] != '#' && raw[i] != '.' && raw[i] != '[' {
		i++
	}
	sel.tag = raw[:i]

	for i < len(raw) {
		switch raw[i] {
		case '#':
			j := i + 1
			for j < len(raw) && raw[j] != '#' && raw[j] != '.' && raw[j] != '[' {
				j++
			}
			sel.id = raw[i+1 : j]
			i = j
		case '.':
			j := i + 1
			for j < len(raw) && raw[j] != '#' && raw[j] != '.' && raw[j] != '[' {
				j++
			}
			sel.classes = append(sel.classes, raw[i+1:j])
			i = j
		case '[':
			j := strings.IndexByte(raw[i:], ']')
			if j < 0 {
				return sel, fmt.Errorf("unterminated attribute selector in %q", raw)
			}
			body := raw[i+1 : i+j]
			i += j + 1
			cond := attrCond{}
			if eq := strings.IndexByte(body, '='); eq >= 0 {
				key := body[:eq]
				cond.val = strings.Trim(body[eq+1:], `"'`)
				switch {
				case strings.HasSuffix(key, "*"):
					cond.op = '*'
					cond.key = key[:len(key)-1]
				case strings.HasSuffix(key, "^"):
					cond.op = '^'
					cond.key = key[:len(key)-1]
				default:
					cond.op = '='
					cond.key = key
				}
			} else {
				cond.key = body
			}
			sel.attrs = append(sel.attrs, cond)
		default:
			return sel, fmt.Errorf("unsupported selector syntax at %q", raw[i:])
		}
	}
	return sel, nil
}

func parseSelectorList(raw string) ([]simpleSelector, error) {
	parts := strings.Split(raw, ",")
	out := make([]simpleSelector, 0, len(parts))
	for _, part := range parts {
		s, err := parseSimpleSelector(part)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// matchAll returns every element matching the selector list, in document
// order.
func matchAll(doc *html.Node, selector string) []*html.Node {
	sels, err := parseSelectorList(selector)
	if err != nil {
		return nil
	}
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			for _, s := range sels {
				if s.matches(n) {
					out = append(out, n)
					break
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out
}
