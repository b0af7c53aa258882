package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/docscrape/docscrape/internal/queue"
)

func sampleSummary() Summary {
	return Summary{
		SiteKey:        "godocs",
		AllowedDomain:  "docs.example.com",
		PagesProcessed: 12,
		PagesVisited:   15,
		QueueStats: queue.Stats{
			TotalPushed: 20,
			TotalPopped: 20,
			MinDepth:    0,
			MaxDepth:    3,
		},
		Duration: 2500 * time.Millisecond,
	}
}

func TestWriteSummary(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := WriteSummary(&buf, sampleSummary()); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"# Crawl Report: godocs",
		"docs.example.com",
		"Pages processed",
		"12",
		"2.5s",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestWriteSummaryFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "site", "_crawl_report.md")
	if err := WriteSummaryFile(path, sampleSummary()); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("report file missing: %v", err)
	}
	if !strings.Contains(string(data), "Crawl Report") {
		t.Errorf("report content = %q", data)
	}
}
