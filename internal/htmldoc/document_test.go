package htmldoc

import (
	"strings"
	"testing"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
  <title>  Sample Docs  </title>
  <style>body { color: red; }</style>
  <script>var tracking = true;</script>
</head>
<body>
  <nav class="top-nav">Navigation</nav>
  <main id="content" class="doc-body wide">
    <h1>Getting Started</h1>
    <p>Install the <code>tool</code> first.</p>
    <div class="note important">Read this note.</div>
  </main>
  <div class="note">Footer note.</div>
  <noscript>Enable JavaScript.</noscript>
</body>
</html>`

func mustParse(t *testing.T, content string) *Document {
	t.Helper()

	doc, err := Parse(content)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	return doc
}

func TestSelect(t *testing.T) {
	t.Parallel()

	doc := mustParse(t, samplePage)

	t.Run("by tag", func(t *testing.T) {
		t.Parallel()

		if got := len(doc.Select("p")); got != 1 {
			t.Errorf("expected 1 <p>, got %d", got)
		}
	})

	t.Run("by class", func(t *testing.T) {
		t.Parallel()

		notes := doc.Select(".note")
		if len(notes) != 2 {
			t.Fatalf("expected 2 .note elements, got %d", len(notes))
		}
		// Document order: the in-main note first.
		if !notes[0].HasClass("important") {
			t.Error("first .note should be the important one")
		}
	})

	t.Run("by id", func(t *testing.T) {
		t.Parallel()

		el, ok := doc.SelectFirst("#content")
		if !ok {
			t.Fatal("expected #content to match")
		}
		if el.Tag() != "main" {
			t.Errorf("tag = %q, want main", el.Tag())
		}
	})

	t.Run("tag plus class", func(t *testing.T) {
		t.Parallel()

		if _, ok := doc.SelectFirst("div.note"); !ok {
			t.Error("expected div.note to match")
		}
		if _, ok := doc.SelectFirst("span.note"); ok {
			t.Error("span.note should not match")
		}
	})

	t.Run("tag plus id", func(t *testing.T) {
		t.Parallel()

		if _, ok := doc.SelectFirst("main#content"); !ok {
			t.Error("expected main#content to match")
		}
	})

	t.Run("union", func(t *testing.T) {
		t.Parallel()

		el, ok := doc.SelectFirst("article, main, body")
		if !ok {
			t.Fatal("expected union to match")
		}
		// body precedes main in document order.
		if el.Tag() != "body" {
			t.Errorf("tag = %q, want body", el.Tag())
		}
	})

	t.Run("no match", func(t *testing.T) {
		t.Parallel()

		if _, ok := doc.SelectFirst("article"); ok {
			t.Error("article should not match")
		}
		if got := doc.Select(".missing"); len(got) != 0 {
			t.Errorf("expected no matches, got %d", len(got))
		}
	})

	t.Run("unsupported syntax matches nothing", func(t *testing.T) {
		t.Parallel()

		if _, ok := doc.SelectFirst("div[role='main']"); ok {
			t.Error("attribute selectors are out of grammar")
		}
		// But simple alternatives in the same union still work.
		if _, ok := doc.SelectFirst("div[role='main'], main"); !ok {
			t.Error("union with a simple alternative should match")
		}
	})
}

func TestText(t *testing.T) {
	t.Parallel()

	doc := mustParse(t, samplePage)

	text := doc.Text()
	for _, want := range []string{"Getting Started", "Install the tool first.", "Read this note."} {
		if !strings.Contains(text, want) {
			t.Errorf("text missing %q: %q", want, text)
		}
	}
	for _, skipped := range []string{"tracking", "color: red", "Enable JavaScript"} {
		if strings.Contains(text, skipped) {
			t.Errorf("text should skip %q: %q", skipped, text)
		}
	}
}

func TestTitle(t *testing.T) {
	t.Parallel()

	doc := mustParse(t, samplePage)
	if got := doc.Title(); got != "Sample Docs" {
		t.Errorf("Title() = %q, want %q", got, "Sample Docs")
	}
}

func TestAttrAndClass(t *testing.T) {
	t.Parallel()

	doc := mustParse(t, samplePage)
	el, ok := doc.SelectFirst("main")
	if !ok {
		t.Fatal("main not found")
	}

	if got := el.Attr("id"); got != "content" {
		t.Errorf("Attr(id) = %q", got)
	}
	if got := el.Attr("missing"); got != "" {
		t.Errorf("Attr(missing) = %q, want empty", got)
	}
	if !el.HasClass("doc-body") || !el.HasClass("wide") {
		t.Error("expected both class tokens present")
	}
	if el.HasClass("doc") {
		t.Error("partial class token should not match")
	}
}
