// Package model defines the core data types shared across the crawler:
// page and image lifecycle statuses, error kinds, persisted records,
// work items, and transient fetch/extraction results.
package model

// PageStatus represents the lifecycle state of a crawled page.
//
// Design decision: We use string-typed constants rather than iota-based
// integers because the values are persisted in the visited store and must
// stay stable across releases. The string form doubles as the serialized
// token.
type PageStatus string

// Page status constants. A page is created Pending at claim time and
// terminates in one of the terminal states.
const (
	// PageStatusUnknown represents a status token we do not recognize.
	PageStatusUnknown PageStatus = "unknown"
	// PageStatusPending is the initial state written at first enqueue claim.
	PageStatusPending PageStatus = "pending"
	// PageStatusInProgress marks a page a worker has picked up.
	PageStatusInProgress PageStatus = "in_progress"
	// PageStatusSuccess marks a fully processed page.
	PageStatusSuccess PageStatus = "success"
	// PageStatusFailure marks a page whose fetch or extraction failed.
	PageStatusFailure PageStatus = "failure"
	// PageStatusNotFound marks a page that returned 404.
	PageStatusNotFound PageStatus = "not_found"
	// PageStatusOutOfScope marks a page rejected by the scope gate.
	PageStatusOutOfScope PageStatus = "out_of_scope"
	// PageStatusRobotsDisallowed marks a page blocked by robots.txt.
	PageStatusRobotsDisallowed PageStatus = "robots_disallowed"
)

// String returns the serialized token for the status.
func (s PageStatus) String() string {
	if s == "" {
		return string(PageStatusUnknown)
	}
	return string(s)
}

// IsTerminal reports whether the status ends the page's lifecycle.
// Pending and Failure pages are requeued on resume.
func (s PageStatus) IsTerminal() bool {
	switch s {
	case PageStatusSuccess, PageStatusNotFound, PageStatusOutOfScope, PageStatusRobotsDisallowed:
		return true
	case PageStatusFailure:
		// Failure is terminal for the current run; resume requeues it.
		return true
	default:
		return false
	}
}

// ParsePageStatus converts a serialized token back to a PageStatus.
// Unrecognized tokens map to PageStatusUnknown.
func ParsePageStatus(s string) PageStatus {
	switch PageStatus(s) {
	case PageStatusPending, PageStatusInProgress, PageStatusSuccess,
		PageStatusFailure, PageStatusNotFound, PageStatusOutOfScope,
		PageStatusRobotsDisallowed:
		return PageStatus(s)
	default:
		return PageStatusUnknown
	}
}

// ImageStatus represents the lifecycle state of a harvested image.
// Image processing is deferred: records are created Pending during page
// extraction and advanced by the image download pool, if it runs at all.
type ImageStatus string

// Image status constants.
const (
	// ImageStatusUnknown represents a status token we do not recognize.
	ImageStatusUnknown ImageStatus = "unknown"
	// ImageStatusPending is the initial state written at harvest time.
	ImageStatusPending ImageStatus = "pending"
	// ImageStatusInProgress marks an image a download worker has picked up.
	ImageStatusInProgress ImageStatus = "in_progress"
	// ImageStatusSuccess marks a downloaded image.
	ImageStatusSuccess ImageStatus = "success"
	// ImageStatusFailure marks a failed download.
	ImageStatusFailure ImageStatus = "failure"
	// ImageStatusSkipped marks an image skipped by configuration.
	ImageStatusSkipped ImageStatus = "skipped"
	// ImageStatusTooLarge marks an image over the configured size cap.
	ImageStatusTooLarge ImageStatus = "too_large"
	// ImageStatusInvalidDomain marks an image outside the allowed domains.
	ImageStatusInvalidDomain ImageStatus = "invalid_domain"
)

// String returns the serialized token for the status.
func (s ImageStatus) String() string {
	if s == "" {
		return string(ImageStatusUnknown)
	}
	return string(s)
}

// ParseImageStatus converts a serialized token back to an ImageStatus.
func ParseImageStatus(s string) ImageStatus {
	switch ImageStatus(s) {
	case ImageStatusPending, ImageStatusInProgress, ImageStatusSuccess,
		ImageStatusFailure, ImageStatusSkipped, ImageStatusTooLarge,
		ImageStatusInvalidDomain:
		return ImageStatus(s)
	default:
		return ImageStatusUnknown
	}
}

// ErrorKind classifies why an operation failed. It is persisted alongside
// the failing record so resume and audit tooling can distinguish transient
// network trouble from structural extraction problems.
type ErrorKind string

// Error kind constants.
const (
	// ErrorKindNone means no error occurred.
	ErrorKindNone ErrorKind = "none"
	// ErrorKindNetwork covers transport-level failures (DNS, refused, reset).
	ErrorKindNetwork ErrorKind = "network_error"
	// ErrorKindTimeout covers request deadline expirations.
	ErrorKindTimeout ErrorKind = "timeout_error"
	// ErrorKindHTTP covers non-2xx HTTP responses.
	ErrorKindHTTP ErrorKind = "http_error"
	// ErrorKindParse covers HTML parse failures.
	ErrorKindParse ErrorKind = "parse_error"
	// ErrorKindSelectorNotFound means the content selector matched nothing.
	ErrorKindSelectorNotFound ErrorKind = "selector_not_found"
	// ErrorKindContentEmpty means extraction produced no text.
	ErrorKindContentEmpty ErrorKind = "content_empty"
	// ErrorKindIO covers filesystem failures.
	ErrorKindIO ErrorKind = "io_error"
	// ErrorKindRateLimited means the remote signalled 429 or no request
	// slot was granted in time.
	ErrorKindRateLimited ErrorKind = "rate_limited"
	// ErrorKindRobotsDisallowed means robots.txt blocked the URL.
	ErrorKindRobotsDisallowed ErrorKind = "robots_disallowed"
	// ErrorKindOutOfScope means the URL failed the scope gate.
	ErrorKindOutOfScope ErrorKind = "out_of_scope"
	// ErrorKindMaxRetries means every retry attempt failed.
	ErrorKindMaxRetries ErrorKind = "max_retries_exceeded"
	// ErrorKindUnknown covers everything else.
	ErrorKindUnknown ErrorKind = "unknown"
)

// String returns the serialized token for the error kind.
func (k ErrorKind) String() string {
	if k == "" {
		return string(ErrorKindNone)
	}
	return string(k)
}

// ParseErrorKind converts a serialized token back to an ErrorKind.
func ParseErrorKind(s string) ErrorKind {
	switch ErrorKind(s) {
	case ErrorKindNone, ErrorKindNetwork, ErrorKindTimeout, ErrorKindHTTP,
		ErrorKindParse, ErrorKindSelectorNotFound, ErrorKindContentEmpty,
		ErrorKindIO, ErrorKindRateLimited, ErrorKindRobotsDisallowed,
		ErrorKindOutOfScope, ErrorKindMaxRetries:
		return ErrorKind(s)
	default:
		return ErrorKindUnknown
	}
}
