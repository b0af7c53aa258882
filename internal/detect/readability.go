package detect

import (
	"strings"

	"github.com/docscrape/docscrape/internal/htmldoc"
)

// readabilityCandidates are tried in preference order, not document
// order: an <article> beats <main> beats <body> even when it appears
// later in the page.
var readabilityCandidates = []string{"article", "main", "body"}

// ReadabilityText is the last-resort extractor used when the chosen
// selector yields nothing: it returns the text of the first candidate
// container that has any.
func ReadabilityText(doc *htmldoc.Document) string {
	for _, selector := range readabilityCandidates {
		el, ok := doc.SelectFirst(selector)
		if !ok {
			continue
		}
		if text := strings.TrimSpace(el.Text()); text != "" {
			return text
		}
	}
	return ""
}

// ReadabilityElement returns the first candidate container with any
// text, for callers that need the element rather than its text.
func ReadabilityElement(doc *htmldoc.Document) (htmldoc.Element, bool) {
	for _, selector := range readabilityCandidates {
		el, ok := doc.SelectFirst(selector)
		if !ok {
			continue
		}
		if strings.TrimSpace(el.Text()) != "" {
			return el, true
		}
	}
	return htmldoc.Element{}, false
}
