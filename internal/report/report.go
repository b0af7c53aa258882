// Package report renders per-site crawl summaries as markdown, written
// into each site's output directory alongside the crawled pages.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/nao1215/markdown"

	"github.com/docscrape/docscrape/internal/queue"
)

// Summary holds the figures reported for one site's crawl.
type Summary struct {
	// SiteKey identifies the site in the configuration.
	SiteKey string

	// AllowedDomain is the site's crawl scope domain.
	AllowedDomain string

	// PagesProcessed counts pages fully converted and written.
	PagesProcessed int

	// PagesVisited counts all page records, terminal or not.
	PagesVisited int

	// QueueStats carries the work queue counters.
	QueueStats queue.Stats

	// Duration is the wall-clock crawl time.
	Duration time.Duration
}

// WriteSummaryFile renders the summary to the given path, creating
// parent directories as needed.
func WriteSummaryFile(path string, summary Summary) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	f, err := os.Create(path) //nolint:gosec // Path derives from operator config
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer f.Close()

	return WriteSummary(f, summary)
}

// WriteSummary renders the summary as markdown.
func WriteSummary(w io.Writer, summary Summary) error {
	md := markdown.NewMarkdown(w)

	md.H1("Crawl Report: " + summary.SiteKey)
	md.PlainText("")
	md.PlainText(fmt.Sprintf("Domain: %s", summary.AllowedDomain))
	md.PlainText("")

	md.H2("Summary")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Pages processed", strconv.Itoa(summary.PagesProcessed)},
			{"Pages visited", strconv.Itoa(summary.PagesVisited)},
			{"Items enqueued", strconv.FormatInt(summary.QueueStats.TotalPushed, 10)},
			{"Items dequeued", strconv.FormatInt(summary.QueueStats.TotalPopped, 10)},
			{"Shallowest depth", strconv.Itoa(summary.QueueStats.MinDepth)},
			{"Deepest depth", strconv.Itoa(summary.QueueStats.MaxDepth)},
			{"Duration", summary.Duration.Round(time.Millisecond).String()},
		},
	})

	return md.Build()
}
