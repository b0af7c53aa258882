package pipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	exif "github.com/dsoprea/go-exif/v3"

	"github.com/docscrape/docscrape/internal/fetch"
	"github.com/docscrape/docscrape/internal/model"
	"github.com/docscrape/docscrape/internal/ratelimit"
	"github.com/docscrape/docscrape/internal/store"
	"github.com/docscrape/docscrape/internal/urlutil"
)

// ImageDownloader drains the store's Pending image records after the
// page crawl finishes. Records advance to Success, Failure, Skipped,
// TooLarge, or InvalidDomain; the harvest itself never blocks on
// downloads.
type ImageDownloader struct {
	// Fetcher issues the image GETs.
	Fetcher *fetch.Fetcher

	// Limiter paces downloads per host alongside page fetches.
	Limiter *ratelimit.HostLimiter

	// Store is the site's image record store.
	Store store.ImageOps

	// PageHost is the site's allowed domain; relative image URLs are
	// resolved against it.
	PageHost string

	// AllowedDomains is the allow-list for image hosts. Entries may be
	// exact hosts, "*.suffix" wildcards, or "*" for any host. Empty
	// restricts downloads to the page host and its subdomains.
	AllowedDomains []string

	// MaxSizeBytes rejects larger images as TooLarge; 0 means no cap.
	MaxSizeBytes int64

	// Workers sizes the download pool; minimum 1.
	Workers int

	// Logger receives per-image debug lines. Nil uses slog.Default.
	Logger *slog.Logger
}

// exifCaptionTags are consulted in order for a caption when the page
// provided no alt text. JPEG and TIFF carry these; other formats have
// no EXIF and are skipped silently.
var exifCaptionTags = []string{"ImageDescription", "XPTitle", "UserComment"}

// Run downloads every Pending image record using a fixed worker pool.
// It returns the number of successfully downloaded images.
func (d *ImageDownloader) Run(ctx context.Context) (int, error) {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	pending, err := d.Store.GetImageRecords(model.ImageStatusPending)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	workers := d.Workers
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan model.ImageRecord)
	var mu sync.Mutex
	succeeded := 0

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for record := range jobs {
				if d.processOne(ctx, logger, record) {
					mu.Lock()
					succeeded++
					mu.Unlock()
				}
			}
		}()
	}

	for _, record := range pending {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return succeeded, ctx.Err()
		case jobs <- record:
		}
	}
	close(jobs)
	wg.Wait()

	return succeeded, nil
}

// processOne downloads a single image and updates its record. Returns
// true on success.
func (d *ImageDownloader) processOne(ctx context.Context, logger *slog.Logger, record model.ImageRecord) bool {
	imageURL := record.OriginalURL
	if !strings.Contains(imageURL, "://") {
		resolved, err := urlutil.Resolve("https://"+d.PageHost+"/", imageURL)
		if err != nil {
			d.finish(record, model.ImageStatusSkipped, model.ErrorKindParse, err.Error())
			return false
		}
		imageURL = resolved
	}

	host := urlutil.ExtractDomain(imageURL)
	if host == "" {
		d.finish(record, model.ImageStatusSkipped, model.ErrorKindParse, "unparseable image URL")
		return false
	}
	if !d.domainAllowed(host) {
		d.finish(record, model.ImageStatusInvalidDomain, model.ErrorKindOutOfScope, "image host not allowed")
		return false
	}

	record.Status = model.ImageStatusInProgress
	record.LastAttempt = model.Now()
	record.AttemptCount++
	_ = d.Store.UpdateImageStatus(record.OriginalURL, record)

	if d.Limiter != nil {
		if err := d.Limiter.Wait(ctx, host); err != nil {
			d.finish(record, model.ImageStatusFailure, model.ErrorKindUnknown, err.Error())
			return false
		}
	}

	result := d.Fetcher.FetchOnce(ctx, imageURL)
	if !result.Success() {
		kind := result.ErrorKind()
		d.finish(record, model.ImageStatusFailure, kind, result.Error)
		return false
	}

	if d.MaxSizeBytes > 0 && int64(len(result.Body)) > d.MaxSizeBytes {
		d.finish(record, model.ImageStatusTooLarge, model.ErrorKindNone, "")
		return false
	}

	if err := os.MkdirAll(filepath.Dir(record.LocalPath), 0750); err != nil {
		d.finish(record, model.ImageStatusFailure, model.ErrorKindIO, err.Error())
		return false
	}
	if err := os.WriteFile(record.LocalPath, result.Body, 0640); err != nil {
		d.finish(record, model.ImageStatusFailure, model.ErrorKindIO, err.Error())
		return false
	}

	record.FileSizeBytes = int64(len(result.Body))
	record.ContentType = result.ContentType
	if record.Caption == "" {
		record.Caption = exifCaption(result.Body)
	}

	logger.Debug("downloaded image",
		"url", imageURL,
		"bytes", record.FileSizeBytes,
		"content_type", record.ContentType,
	)

	d.finish(record, model.ImageStatusSuccess, model.ErrorKindNone, "")
	return true
}

// finish writes the record's terminal state.
func (d *ImageDownloader) finish(record model.ImageRecord, status model.ImageStatus, kind model.ErrorKind, message string) {
	record.Status = status
	record.ErrorKind = kind
	record.ErrorMessage = message
	record.ProcessedAt = model.Now()
	_ = d.Store.UpdateImageStatus(record.OriginalURL, record)
}

// domainAllowed applies the image-domain allow-list: "*" allows any
// host, "*.suffix" allows the suffix and its subdomains, exact entries
// allow that host. An empty list allows the page host and subdomains.
func (d *ImageDownloader) domainAllowed(host string) bool {
	if len(d.AllowedDomains) == 0 {
		return host == d.PageHost || strings.HasSuffix(host, "."+d.PageHost)
	}

	for _, allowed := range d.AllowedDomains {
		switch {
		case allowed == "*":
			return true
		case strings.HasPrefix(allowed, "*."):
			suffix := strings.TrimPrefix(allowed, "*.")
			if host == suffix || strings.HasSuffix(host, "."+suffix) {
				return true
			}
		case strings.EqualFold(host, allowed):
			return true
		}
	}
	return false
}

// exifCaption extracts a caption from the image's EXIF metadata, if the
// format carries any.
func exifCaption(data []byte) string {
	rawExif, err := exif.SearchAndExtractExif(data)
	if err != nil || rawExif == nil {
		return ""
	}

	entries, _, err := exif.GetFlatExifData(rawExif, nil)
	if err != nil {
		return ""
	}

	for _, tagName := range exifCaptionTags {
		for _, entry := range entries {
			if entry.TagName == tagName {
				if value := strings.TrimSpace(entry.Formatted); value != "" {
					return value
				}
			}
		}
	}
	return ""
}
