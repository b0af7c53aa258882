package pipeline

import (
	"regexp"
	"strings"

	md "github.com/nao1215/markdown"
	"golang.org/x/net/html"

	"github.com/docscrape/docscrape/internal/htmldoc"
)

// blankRuns matches three or more consecutive newlines.
var blankRuns = regexp.MustCompile(`\n{3,}`)

// ConvertToMarkdown renders a content element as canonical text. The
// conversion is deliberately minimal: h1-h3 become #/##/### lines,
// paragraphs become text blocks, bold/emphasis/inline-code keep their
// lightweight textual forms, every other tag is stripped to its text,
// and runs of three or more blank lines collapse to two.
func ConvertToMarkdown(content htmldoc.Element) string {
	if !content.Valid() {
		return ""
	}

	var b strings.Builder
	renderBlock(&b, content.Node())

	out := blankRuns.ReplaceAllString(b.String(), "\n\n")
	return strings.TrimSpace(out) + "\n"
}

// renderBlock walks block-level structure, emitting one block per
// heading or paragraph and flattening everything else.
func renderBlock(b *strings.Builder, n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.ElementNode:
			switch strings.ToLower(c.Data) {
			case "script", "style", "noscript":
				continue
			case "h1":
				writeBlock(b, "# "+inlineText(c))
			case "h2":
				writeBlock(b, "## "+inlineText(c))
			case "h3":
				writeBlock(b, "### "+inlineText(c))
			case "p":
				writeBlock(b, inlineText(c))
			case "br":
				b.WriteByte('\n')
			default:
				renderBlock(b, c)
			}
		case html.TextNode:
			if text := collapseSpace(c.Data); text != "" {
				b.WriteString(text)
				b.WriteByte('\n')
			}
		}
	}
}

// writeBlock emits one block followed by a blank line.
func writeBlock(b *strings.Builder, block string) {
	block = strings.TrimSpace(block)
	if block == "" {
		return
	}
	b.WriteString(block)
	b.WriteString("\n\n")
}

// inlineText flattens an element's subtree into one line, wrapping
// bold, emphasis, and inline code in their markdown forms.
func inlineText(n *html.Node) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch c.Type {
			case html.TextNode:
				b.WriteString(collapseSpace(c.Data))
			case html.ElementNode:
				switch strings.ToLower(c.Data) {
				case "script", "style", "noscript":
					continue
				case "strong", "b":
					if text := inlineText(c); text != "" {
						b.WriteString(md.Bold(text))
					}
				case "em", "i":
					if text := inlineText(c); text != "" {
						b.WriteString(md.Italic(text))
					}
				case "code":
					if text := inlineText(c); text != "" {
						b.WriteString(md.Code(text))
					}
				default:
					walk(c)
				}
			}
		}
	}
	walk(n)

	return strings.TrimSpace(b.String())
}

// collapseSpace reduces runs of whitespace to single spaces while
// keeping leading/trailing separation between inline chunks.
func collapseSpace(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	out := strings.Join(fields, " ")
	if s[0] == ' ' || s[0] == '\n' || s[0] == '\t' {
		out = " " + out
	}
	if last := s[len(s)-1]; last == ' ' || last == '\n' || last == '\t' {
		out += " "
	}
	return out
}
