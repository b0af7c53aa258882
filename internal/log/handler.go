// Package log provides the slog handler used across the crawler. It
// wraps a standard handler and rewrites attribute values sourced from
// crawled content: oversized values are truncated and control
// characters stripped, so one hostile or broken page cannot flood or
// corrupt the log stream.
package log

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// MaxAttrValueLen bounds logged attribute values. Crawled titles,
// errors, and URLs rarely need more; anything longer is page content
// leaking into the log.
const MaxAttrValueLen = 512

// truncationMarker is appended to truncated values.
const truncationMarker = "...(truncated)"

// CrawlHandler wraps an slog.Handler and sanitizes attribute values
// before they reach it.
//
// Design decision: We use a handler wrapper rather than sanitizing at
// call sites because it composes with any underlying handler and makes
// the hygiene rule impossible to forget at the hundreds of log calls
// across the crawler.
type CrawlHandler struct {
	handler slog.Handler
}

// NewCrawlHandler wraps the given handler. A nil handler wraps
// slog.Default's handler.
func NewCrawlHandler(handler slog.Handler) *CrawlHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &CrawlHandler{handler: handler}
}

// NewLogger builds the crawler's standard logger: a text handler on
// stderr at Info (or Debug when verbose) behind a CrawlHandler.
func NewLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	text := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(NewCrawlHandler(text))
}

// Enabled delegates to the underlying handler.
func (h *CrawlHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle sanitizes the record's attributes and forwards it.
func (h *CrawlHandler) Handle(ctx context.Context, r slog.Record) error {
	clean := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		clean.AddAttrs(sanitizeAttr(a))
		return true
	})
	return h.handler.Handle(ctx, clean)
}

// WithAttrs returns a wrapper over the underlying handler's WithAttrs.
func (h *CrawlHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	sanitized := make([]slog.Attr, 0, len(attrs))
	for _, a := range attrs {
		sanitized = append(sanitized, sanitizeAttr(a))
	}
	return &CrawlHandler{handler: h.handler.WithAttrs(sanitized)}
}

// WithGroup returns a wrapper over the underlying handler's WithGroup.
func (h *CrawlHandler) WithGroup(name string) slog.Handler {
	return &CrawlHandler{handler: h.handler.WithGroup(name)}
}

// sanitizeAttr rewrites string attribute values; other kinds pass
// through untouched.
func sanitizeAttr(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		members := a.Value.Group()
		sanitized := make([]slog.Attr, 0, len(members))
		for _, m := range members {
			sanitized = append(sanitized, sanitizeAttr(m))
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(sanitized...)}
	}

	if a.Value.Kind() != slog.KindString {
		return a
	}
	return slog.String(a.Key, SanitizeValue(a.Value.String()))
}

// SanitizeValue replaces control characters, tab included, with spaces
// and truncates the value to MaxAttrValueLen.
func SanitizeValue(s string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r == '\t' {
			return ' '
		}
		if r < 0x20 || r == 0x7f {
			return ' '
		}
		return r
	}, s)

	if len(cleaned) > MaxAttrValueLen {
		cleaned = cleaned[:MaxAttrValueLen] + truncationMarker
	}
	return cleaned
}
