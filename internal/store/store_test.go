package store

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/docscrape/docscrape/internal/model"
)

// openStores returns both implementations so every test runs against
// the SQLite store and the in-memory variant.
func openStores(t *testing.T) map[string]Store {
	t.Helper()

	sqlite, err := Open(filepath.Join(t.TempDir(), "site"), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open sqlite store: %v", err)
	}
	t.Cleanup(func() { _ = sqlite.Close() })

	return map[string]Store{
		"sqlite": sqlite,
		"memory": NewMemoryStore(),
	}
}

func TestMarkPageVisited(t *testing.T) {
	t.Parallel()

	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			first, err := s.MarkPageVisited("https://example.com/docs")
			if err != nil {
				t.Fatalf("mark failed: %v", err)
			}
			if !first {
				t.Error("first claim should return true")
			}

			second, err := s.MarkPageVisited("https://example.com/docs")
			if err != nil {
				t.Fatalf("mark failed: %v", err)
			}
			if second {
				t.Error("second claim should return false")
			}

			status, record, err := s.CheckPageStatus("https://example.com/docs")
			if err != nil {
				t.Fatalf("check failed: %v", err)
			}
			if status != model.PageStatusPending {
				t.Errorf("status = %q, want pending", status)
			}
			if record == nil || record.NormalizedURL != "https://example.com/docs" {
				t.Errorf("record = %+v", record)
			}
		})
	}
}

func TestConcurrentClaim(t *testing.T) {
	t.Parallel()

	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			const workers = 16
			wins := make(chan bool, workers)

			var wg sync.WaitGroup
			for range workers {
				wg.Add(1)
				go func() {
					defer wg.Done()
					first, err := s.MarkPageVisited("https://example.com/contended")
					if err != nil {
						t.Errorf("mark failed: %v", err)
						return
					}
					wins <- first
				}()
			}
			wg.Wait()
			close(wins)

			winners := 0
			for w := range wins {
				if w {
					winners++
				}
			}
			if winners != 1 {
				t.Errorf("exactly one caller should win the claim, got %d", winners)
			}
		})
	}
}

func TestUpdateAndContentHash(t *testing.T) {
	t.Parallel()

	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			url := "https://example.com/page"
			if _, err := s.MarkPageVisited(url); err != nil {
				t.Fatalf("mark failed: %v", err)
			}

			record := model.NewPageRecord(url, 2)
			record.Status = model.PageStatusSuccess
			record.ContentHash = "cafef00d"
			record.TokenCount = 42
			if err := s.UpdatePageStatus(url, record); err != nil {
				t.Fatalf("update failed: %v", err)
			}

			hash, err := s.GetPageContentHash(url)
			if err != nil {
				t.Fatalf("hash lookup failed: %v", err)
			}
			if hash != "cafef00d" {
				t.Errorf("hash = %q", hash)
			}

			if hash, err := s.GetPageContentHash("https://example.com/absent"); err != nil || hash != "" {
				t.Errorf("absent page hash = (%q, %v), want empty", hash, err)
			}
		})
	}
}

func TestImageRecords(t *testing.T) {
	t.Parallel()

	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			url := "https://example.com/logo.png"
			first, err := s.MarkImageVisited(url)
			if err != nil || !first {
				t.Fatalf("first image claim = (%v, %v)", first, err)
			}
			if again, _ := s.MarkImageVisited(url); again {
				t.Error("second image claim should return false")
			}

			record := model.NewImageRecord(url, "/out/images/img_x.bin", "logo")
			if err := s.UpdateImageStatus(url, record); err != nil {
				t.Fatalf("image update failed: %v", err)
			}

			status, got, err := s.CheckImageStatus(url)
			if err != nil {
				t.Fatalf("image check failed: %v", err)
			}
			if status != model.ImageStatusPending || got == nil {
				t.Errorf("image status = %q, record = %+v", status, got)
			}

			pending, err := s.GetImageRecords(model.ImageStatusPending)
			if err != nil {
				t.Fatalf("image scan failed: %v", err)
			}
			if len(pending) != 1 || pending[0].OriginalURL != url {
				t.Errorf("pending images = %+v", pending)
			}
		})
	}
}

func TestVisitedCountAndRequeue(t *testing.T) {
	t.Parallel()

	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			// One success, one pending, one failure.
			done := model.NewPageRecord("https://example.com/done", 0)
			done.Status = model.PageStatusSuccess
			if err := s.UpdatePageStatus("https://example.com/done", done); err != nil {
				t.Fatal(err)
			}

			if _, err := s.MarkPageVisited("https://example.com/pending"); err != nil {
				t.Fatal(err)
			}

			failed := model.NewPageRecord("https://example.com/failed", 1)
			failed.Status = model.PageStatusFailure
			if err := s.UpdatePageStatus("https://example.com/failed", failed); err != nil {
				t.Fatal(err)
			}

			count, err := s.GetVisitedCount()
			if err != nil {
				t.Fatalf("count failed: %v", err)
			}
			if count != 3 {
				t.Errorf("visited count = %d, want 3", count)
			}

			var requeued []model.WorkItem
			n, err := s.RequeueIncomplete(func(item model.WorkItem) {
				requeued = append(requeued, item)
			})
			if err != nil {
				t.Fatalf("requeue failed: %v", err)
			}
			if n != 2 || len(requeued) != 2 {
				t.Fatalf("requeued %d items (%v), want 2", n, requeued)
			}
			for _, item := range requeued {
				if item.URL == "https://example.com/done" {
					t.Error("successful page should not requeue")
				}
			}
		})
	}
}

func TestWriteVisitedLog(t *testing.T) {
	t.Parallel()

	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := s.MarkPageVisited("https://example.com/a"); err != nil {
				t.Fatal(err)
			}
			if _, err := s.MarkImageVisited("https://example.com/img.png"); err != nil {
				t.Fatal(err)
			}

			path := filepath.Join(t.TempDir(), "visited.log")
			if err := s.WriteVisitedLog(path); err != nil {
				t.Fatalf("log dump failed: %v", err)
			}

			f, err := os.Open(path)
			if err != nil {
				t.Fatalf("open log: %v", err)
			}
			defer f.Close()

			var keys []string
			scanner := bufio.NewScanner(f)
			for scanner.Scan() {
				line := scanner.Text()
				key, value, found := strings.Cut(line, "\t")
				if !found || value == "" {
					t.Errorf("malformed log line %q", line)
				}
				keys = append(keys, key)
			}
			if len(keys) != 2 {
				t.Fatalf("expected 2 log lines, got %d", len(keys))
			}
			// Keys dump in order: image prefix "i:" sorts before "p:".
			if !strings.HasPrefix(keys[0], "i:") || !strings.HasPrefix(keys[1], "p:") {
				t.Errorf("log keys out of order: %v", keys)
			}
		})
	}
}

func TestCloseIsIdempotentAndFailsFurtherOps(t *testing.T) {
	t.Parallel()

	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.Close(); err != nil {
				t.Fatalf("close failed: %v", err)
			}
			if err := s.Close(); err != nil {
				t.Fatalf("second close failed: %v", err)
			}
			if _, err := s.MarkPageVisited("https://example.com/x"); err == nil {
				t.Error("operations on a closed store should fail")
			}
		})
	}
}

func TestFreshOpenDestroysState(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "site")

	s, err := Open(dir, Options{Resume: false, EnableWAL: true})
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if _, err := s.MarkPageVisited("https://example.com/a"); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	t.Run("resume keeps records", func(t *testing.T) {
		resumed, err := Open(dir, Options{Resume: true, EnableWAL: true})
		if err != nil {
			t.Fatalf("resume open failed: %v", err)
		}
		defer resumed.Close()

		count, err := resumed.GetVisitedCount()
		if err != nil {
			t.Fatal(err)
		}
		if count != 1 {
			t.Errorf("resume should keep records, count = %d", count)
		}
		if err := resumed.Close(); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("fresh destroys records", func(t *testing.T) {
		fresh, err := Open(dir, Options{Resume: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("fresh open failed: %v", err)
		}
		defer fresh.Close()

		count, err := fresh.GetVisitedCount()
		if err != nil {
			t.Fatal(err)
		}
		if count != 0 {
			t.Errorf("fresh open should destroy records, count = %d", count)
		}
	})
}
