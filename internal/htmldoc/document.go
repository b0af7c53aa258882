// Package htmldoc wraps a parsed HTML tree with the small selector
// surface the content pipeline needs: tag, class, and id lookups plus
// text extraction.
//
// Design decision: We build on golang.org/x/net/html rather than regex
// because it correctly handles the malformed HTML common on real sites
// and gives us a proper node tree to walk. The selector engine on top is
// intentionally narrow; callers needing more combine SelectFirst over a
// short list of well-known selectors.
package htmldoc

import (
	"strings"

	"golang.org/x/net/html"
)

// Document is a parsed HTML page. It retains the raw HTML so framework
// detection can run substring probes without re-serializing the tree.
type Document struct {
	root *html.Node
	raw  string
}

// Element is a node within a Document.
type Element struct {
	node *html.Node
}

// Parse parses HTML content into a Document. x/net/html recovers from
// malformed markup, so this fails only on reader errors.
func Parse(content string) (*Document, error) {
	root, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return nil, err
	}
	return &Document{root: root, raw: content}, nil
}

// RawHTML returns the original HTML source of the document.
func (d *Document) RawHTML() string {
	return d.raw
}

// Root returns the document root as an Element.
func (d *Document) Root() Element {
	return Element{node: d.root}
}

// Select returns all elements matching the selector in document order.
func (d *Document) Select(selector string) []Element {
	return d.Root().Select(selector)
}

// SelectFirst returns the first element matching the selector, or false.
func (d *Document) SelectFirst(selector string) (Element, bool) {
	return d.Root().SelectFirst(selector)
}

// Title returns the text of the first <title> element.
func (d *Document) Title() string {
	title, ok := d.SelectFirst("title")
	if !ok {
		return ""
	}
	return strings.TrimSpace(title.Text())
}

// Text returns the visible text of the whole document.
func (d *Document) Text() string {
	return d.Root().Text()
}

// Node exposes the underlying html.Node for tree walks that outgrow the
// selector surface (the markdown converter walks nodes directly).
func (e Element) Node() *html.Node {
	return e.node
}

// Valid reports whether the element refers to a node.
func (e Element) Valid() bool {
	return e.node != nil
}

// Tag returns the element's tag name, lowercase.
func (e Element) Tag() string {
	if e.node == nil || e.node.Type != html.ElementNode {
		return ""
	}
	return strings.ToLower(e.node.Data)
}

// Attr returns the value of the named attribute, or "".
func (e Element) Attr(name string) string {
	if e.node == nil {
		return ""
	}
	for _, a := range e.node.Attr {
		if strings.EqualFold(a.Key, name) {
			return a.Val
		}
	}
	return ""
}

// HasClass reports whether the whitespace-tokenized class attribute
// contains the given class.
func (e Element) HasClass(class string) bool {
	for _, token := range strings.Fields(e.Attr("class")) {
		if token == class {
			return true
		}
	}
	return false
}

// skippedTag reports whether a subtree contributes no visible text.
func skippedTag(name string) bool {
	switch strings.ToLower(name) {
	case "script", "style", "noscript":
		return true
	}
	return false
}

// Text collects the descendant text of the element, skipping script,
// style, and noscript subtrees. A single space separates adjacent text
// chunks and runs of whitespace collapse.
func (e Element) Text() string {
	if e.node == nil {
		return ""
	}

	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skippedTag(n.Data) {
			return
		}
		if n.Type == html.TextNode {
			if trimmed := strings.Join(strings.Fields(n.Data), " "); trimmed != "" {
				parts = append(parts, trimmed)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(e.node)

	return strings.Join(parts, " ")
}

// Select returns all descendant elements matching the selector in
// document order. The element itself is not considered.
func (e Element) Select(selector string) []Element {
	matchers := parseSelector(selector)
	if len(matchers) == 0 || e.node == nil {
		return nil
	}

	var out []Element
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			el := Element{node: n}
			for _, m := range matchers {
				if m.matches(el) {
					out = append(out, el)
					break
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		walk(c)
	}

	return out
}

// SelectFirst returns the first descendant matching the selector.
func (e Element) SelectFirst(selector string) (Element, bool) {
	matchers := parseSelector(selector)
	if len(matchers) == 0 || e.node == nil {
		return Element{}, false
	}

	var found *html.Node
	var walk func(n *html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode {
			el := Element{node: n}
			for _, m := range matchers {
				if m.matches(el) {
					found = n
					return true
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		if walk(c) {
			break
		}
	}

	if found == nil {
		return Element{}, false
	}
	return Element{node: found}, true
}
