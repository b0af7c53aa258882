package pipeline

import (
	"strings"

	"github.com/docscrape/docscrape/internal/htmldoc"
)

// HarvestLinks collects every <a href> value in the document as a raw
// string, in document order. No resolution or normalization happens
// here; the crawler resolves and scope-checks before enqueueing.
//
// When respectNofollow is set, anchors whose rel attribute carries a
// nofollow token are dropped.
func HarvestLinks(doc *htmldoc.Document, respectNofollow bool) []string {
	var links []string

	for _, a := range doc.Select("a") {
		href := a.Attr("href")
		if href == "" {
			continue
		}
		if respectNofollow && hasRelToken(a, "nofollow") {
			continue
		}
		links = append(links, href)
	}

	return links
}

// hasRelToken checks the whitespace-tokenized rel attribute for a token.
func hasRelToken(a htmldoc.Element, token string) bool {
	for _, t := range strings.Fields(a.Attr("rel")) {
		if strings.EqualFold(t, token) {
			return true
		}
	}
	return false
}
