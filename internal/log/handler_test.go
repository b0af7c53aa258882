package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestSanitizeValue(t *testing.T) {
	t.Parallel()

	t.Run("strips control characters", func(t *testing.T) {
		t.Parallel()

		got := SanitizeValue("line1\nline2\x00junk")
		if strings.ContainsAny(got, "\n\x00") {
			t.Errorf("control characters survived: %q", got)
		}
	})

	t.Run("truncates long values", func(t *testing.T) {
		t.Parallel()

		got := SanitizeValue(strings.Repeat("a", 2*MaxAttrValueLen))
		if len(got) > MaxAttrValueLen+len("...(truncated)") {
			t.Errorf("value not truncated: %d bytes", len(got))
		}
		if !strings.HasSuffix(got, "...(truncated)") {
			t.Errorf("missing truncation marker: %q", got[len(got)-30:])
		}
	})

	t.Run("short values untouched", func(t *testing.T) {
		t.Parallel()

		if got := SanitizeValue("https://example.com/docs"); got != "https://example.com/docs" {
			t.Errorf("got %q", got)
		}
	})
}

func TestCrawlHandler(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(NewCrawlHandler(slog.NewTextHandler(&buf, nil)))

	logger.Info("fetched page",
		"url", "https://example.com/a",
		"body", "evil\ncontent\x01"+strings.Repeat("x", 1024),
		"status", 200,
	)

	out := buf.String()
	if !strings.Contains(out, "fetched page") {
		t.Fatalf("message missing: %q", out)
	}
	if !strings.Contains(out, "status=200") {
		t.Errorf("non-string attr mangled: %q", out)
	}
	if strings.Contains(out, strings.Repeat("x", 1024)) {
		t.Error("oversized attribute not truncated")
	}
}

func TestCrawlHandlerWithAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(NewCrawlHandler(slog.NewTextHandler(&buf, nil)))

	scoped := logger.With("site", "docs\nexample")
	scoped.Info("run started")

	if strings.Contains(buf.String(), "docs\nexample") {
		t.Errorf("WithAttrs value not sanitized: %q", buf.String())
	}
}
