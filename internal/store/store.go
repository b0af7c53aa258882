// Package store persists per-site crawl state: page and image records
// keyed by a hash of the normalized URL, with the claim, resume, and
// audit operations the crawler builds on.
package store

import (
	"errors"

	"github.com/docscrape/docscrape/internal/model"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("visited store is closed")

// Key prefixes partition the store's key space.
const (
	// pagePrefix namespaces page records.
	pagePrefix = "p:"
	// imagePrefix namespaces image records.
	imagePrefix = "i:"
)

// PageOps is the page-record capability group.
type PageOps interface {
	// MarkPageVisited atomically claims a URL: if no record exists, a
	// Pending record is written and true is returned. This is the dedup
	// primitive workers call before any remote work.
	MarkPageVisited(normalizedURL string) (bool, error)

	// CheckPageStatus returns the stored status and record, if any.
	CheckPageStatus(normalizedURL string) (model.PageStatus, *model.PageRecord, error)

	// UpdatePageStatus unconditionally overwrites the record.
	UpdatePageStatus(normalizedURL string, record model.PageRecord) error

	// GetPageContentHash returns the stored content hash, or "" when the
	// page has none. Used by incremental re-crawls.
	GetPageContentHash(normalizedURL string) (string, error)
}

// ImageOps is the image-record capability group. Claim semantics are
// weaker than for pages because image processing may be deferred.
type ImageOps interface {
	MarkImageVisited(imageURL string) (bool, error)
	CheckImageStatus(imageURL string) (model.ImageStatus, *model.ImageRecord, error)
	UpdateImageStatus(imageURL string, record model.ImageRecord) error
	GetImageRecords(status model.ImageStatus) ([]model.ImageRecord, error)
}

// AdminOps is the resume-and-audit capability group.
type AdminOps interface {
	// GetVisitedCount returns the number of page records.
	GetVisitedCount() (int, error)

	// RequeueIncomplete invokes enqueue for every page record whose
	// status is Pending or Failure and whose normalized URL is known.
	RequeueIncomplete(enqueue func(model.WorkItem)) (int, error)

	// WriteVisitedLog dumps every record as "key\tvalue" lines in key
	// order to the given path.
	WriteVisitedLog(path string) error

	// Close releases the store. Idempotent; later operations fail.
	Close() error
}

// Store is the full visited-store surface the site crawler owns for the
// lifetime of a site's crawl.
//
// Design decision: The capability groups are separate interfaces so
// tests and tools can accept just the slice they need; Store is the
// union the crawler takes.
type Store interface {
	PageOps
	ImageOps
	AdminOps
}
