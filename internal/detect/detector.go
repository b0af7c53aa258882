// Package detect guesses which documentation generator produced a page
// so the content pipeline can aim its selector at the right main-content
// container, with a last-resort readability fallback when no selector
// yields anything.
package detect

import (
	"strings"
	"sync"

	"github.com/docscrape/docscrape/internal/htmldoc"
)

// Framework identifies a known documentation generator.
type Framework string

// Known frameworks.
const (
	FrameworkUnknown     Framework = "unknown"
	FrameworkDocusaurus  Framework = "docusaurus"
	FrameworkSphinx      Framework = "sphinx"
	FrameworkMkDocs      Framework = "mkdocs"
	FrameworkGitBook     Framework = "gitbook"
	FrameworkReadTheDocs Framework = "readthedocs"
)

// fallbackSelector is used when no signature matches.
const fallbackSelector = "article, main, body"

// Signature pairs a framework with its main-content selector and a
// matcher probing a parsed document for the framework's fingerprints.
type Signature struct {
	// Framework is the generator this signature identifies.
	Framework Framework

	// Selector is a comma-union of plausible main-content locators.
	Selector string

	// Matches probes the document. Either a selector hit or a raw-HTML
	// substring hit suffices.
	Matches func(doc *htmldoc.Document) bool
}

// htmlContains runs a case-insensitive substring scan of the raw HTML.
func htmlContains(doc *htmldoc.Document, needle string) bool {
	return strings.Contains(strings.ToLower(doc.RawHTML()), strings.ToLower(needle))
}

// hasAny reports whether the probe selector matches anything.
func hasAny(doc *htmldoc.Document, selector string) bool {
	_, ok := doc.SelectFirst(selector)
	return ok
}

// Signatures returns the ordered signature list. Order matters: the
// first match wins, so the more distinctive fingerprints come first.
func Signatures() []Signature {
	return []Signature{
		{
			Framework: FrameworkDocusaurus,
			Selector:  "article, main.mainContainer, div.docMainContainer",
			Matches: func(doc *htmldoc.Document) bool {
				return hasAny(doc, ".docusaurus") || htmlContains(doc, "docusaurus")
			},
		},
		{
			Framework: FrameworkSphinx,
			Selector:  "div.body, div.document, article",
			Matches: func(doc *htmldoc.Document) bool {
				return hasAny(doc, ".document") || htmlContains(doc, "sphinx")
			},
		},
		{
			Framework: FrameworkMkDocs,
			Selector:  "div.md-content, main, article",
			Matches: func(doc *htmldoc.Document) bool {
				return hasAny(doc, ".md-content") || htmlContains(doc, "mkdocs")
			},
		},
		{
			Framework: FrameworkGitBook,
			Selector:  "div.book, div.book-body, article",
			Matches: func(doc *htmldoc.Document) bool {
				return hasAny(doc, ".book") || htmlContains(doc, "gitbook")
			},
		},
		{
			Framework: FrameworkReadTheDocs,
			Selector:  "div.rst-content, article",
			Matches: func(doc *htmldoc.Document) bool {
				return hasAny(doc, ".rst-content") || htmlContains(doc, "read the docs")
			},
		},
	}
}

// Result is the detection outcome for a document.
type Result struct {
	// Framework is the detected generator, or FrameworkUnknown.
	Framework Framework

	// Selector is the main-content locator to try.
	Selector string

	// Fallback is true when no signature matched and Selector is the
	// generic article/main/body union.
	Fallback bool
}

// Detector matches documents against the signature list and caches the
// first result per host.
//
// Design decision: The cache trades correctness at framework boundaries
// (a host serving two generators) for stability and cost: one
// detection per host instead of one per page, and a consistent selector
// across the site.
type Detector struct {
	signatures []Signature

	mu     sync.Mutex
	byHost map[string]Result
}

// NewDetector creates a Detector over the standard signature list.
func NewDetector() *Detector {
	return &Detector{
		signatures: Signatures(),
		byHost:     make(map[string]Result),
	}
}

// Detect matches the document against the signatures without caching.
func (d *Detector) Detect(doc *htmldoc.Document) Result {
	for _, sig := range d.signatures {
		if sig.Matches(doc) {
			return Result{Framework: sig.Framework, Selector: sig.Selector}
		}
	}
	return Result{Framework: FrameworkUnknown, Selector: fallbackSelector, Fallback: true}
}

// DetectForHost returns the cached result for the host, running
// detection on the document only for the host's first page.
func (d *Detector) DetectForHost(host string, doc *htmldoc.Document) Result {
	d.mu.Lock()
	if cached, ok := d.byHost[host]; ok {
		d.mu.Unlock()
		return cached
	}
	d.mu.Unlock()

	result := d.Detect(doc)

	d.mu.Lock()
	// First writer wins; a racing worker's result is equivalent.
	if cached, ok := d.byHost[host]; ok {
		result = cached
	} else {
		d.byHost[host] = result
	}
	d.mu.Unlock()

	return result
}
