package model

import (
	"strings"
	"testing"
	"time"
)

// TestPageStatusRoundTrip verifies enum -> string -> enum is the identity.
func TestPageStatusRoundTrip(t *testing.T) {
	t.Parallel()

	statuses := []PageStatus{
		PageStatusUnknown, PageStatusPending, PageStatusInProgress,
		PageStatusSuccess, PageStatusFailure, PageStatusNotFound,
		PageStatusOutOfScope, PageStatusRobotsDisallowed,
	}

	for _, s := range statuses {
		if got := ParsePageStatus(s.String()); got != s {
			t.Errorf("round trip of %q yielded %q", s, got)
		}
	}

	if got := ParsePageStatus("no_such_status"); got != PageStatusUnknown {
		t.Errorf("expected unknown for bad token, got %q", got)
	}
}

// TestImageStatusRoundTrip verifies enum -> string -> enum is the identity.
func TestImageStatusRoundTrip(t *testing.T) {
	t.Parallel()

	statuses := []ImageStatus{
		ImageStatusUnknown, ImageStatusPending, ImageStatusInProgress,
		ImageStatusSuccess, ImageStatusFailure, ImageStatusSkipped,
		ImageStatusTooLarge, ImageStatusInvalidDomain,
	}

	for _, s := range statuses {
		if got := ParseImageStatus(s.String()); got != s {
			t.Errorf("round trip of %q yielded %q", s, got)
		}
	}
}

// TestErrorKindRoundTrip verifies enum -> string -> enum is the identity.
func TestErrorKindRoundTrip(t *testing.T) {
	t.Parallel()

	kinds := []ErrorKind{
		ErrorKindNone, ErrorKindNetwork, ErrorKindTimeout, ErrorKindHTTP,
		ErrorKindParse, ErrorKindSelectorNotFound, ErrorKindContentEmpty,
		ErrorKindIO, ErrorKindRateLimited, ErrorKindRobotsDisallowed,
		ErrorKindOutOfScope, ErrorKindMaxRetries, ErrorKindUnknown,
	}

	for _, k := range kinds {
		if got := ParseErrorKind(k.String()); got != k {
			t.Errorf("round trip of %q yielded %q", k, got)
		}
	}
}

// TestPageRecordRoundTrip verifies serialize -> parse preserves every field.
func TestPageRecordRoundTrip(t *testing.T) {
	t.Parallel()

	now := Timestamp{Time: time.Date(2025, 3, 14, 9, 26, 53, 589_000_000, time.UTC)}
	rec := PageRecord{
		Status:        PageStatusSuccess,
		ErrorKind:     ErrorKindNone,
		ErrorMessage:  "",
		CreatedAt:     now,
		ProcessedAt:   now,
		LastAttempt:   now,
		Depth:         3,
		AttemptCount:  2,
		ContentHash:   "deadbeef",
		NormalizedURL: "https://example.com/docs",
		FinalURL:      "https://example.com/docs/",
		LocalFilePath: "/out/example.com/docs.md",
		TokenCount:    128,
	}

	data, err := rec.Serialize()
	if err != nil {
		t.Fatalf("serialize failed: %v", err)
	}

	got, err := ParsePageRecord(data)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if got != rec {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, rec)
	}
}

// TestTimestampFormat verifies the ISO-8601 millisecond serialization.
func TestTimestampFormat(t *testing.T) {
	t.Parallel()

	rec := NewPageRecord("https://example.com/", 0)
	rec.CreatedAt = Timestamp{Time: time.Date(2025, 1, 2, 3, 4, 5, 678_000_000, time.UTC)}

	data, err := rec.Serialize()
	if err != nil {
		t.Fatalf("serialize failed: %v", err)
	}

	if !strings.Contains(data, `"created_at":"2025-01-02T03:04:05.678Z"`) {
		t.Errorf("timestamp not serialized as ISO-8601 ms: %s", data)
	}

	// Zero timestamps serialize as the empty string.
	if !strings.Contains(data, `"processed_at":""`) {
		t.Errorf("zero timestamp not serialized as empty string: %s", data)
	}
}

// TestImageRecordRoundTrip verifies serialize -> parse preserves every field.
func TestImageRecordRoundTrip(t *testing.T) {
	t.Parallel()

	rec := NewImageRecord("https://example.com/logo.png", "/out/images/img_abc.bin", "logo")
	rec.Status = ImageStatusTooLarge
	rec.ErrorKind = ErrorKindIO
	rec.FileSizeBytes = 1 << 20
	rec.ContentType = "image/png"

	data, err := rec.Serialize()
	if err != nil {
		t.Fatalf("serialize failed: %v", err)
	}

	got, err := ParseImageRecord(data)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if got != rec {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, rec)
	}
}

// TestFetchResultClassification covers retryability and HTML detection.
func TestFetchResultClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		result    FetchResult
		success   bool
		retryable bool
		html      bool
	}{
		{"ok html", FetchResult{StatusCode: 200, ContentType: "text/html; charset=utf-8"}, true, false, true},
		{"not found", FetchResult{StatusCode: 404}, false, false, false},
		{"server error", FetchResult{StatusCode: 503}, false, true, false},
		{"rate limited", FetchResult{StatusCode: 429}, false, true, false},
		{"transport failure", FetchResult{StatusCode: 0, Error: "connection refused"}, false, true, false},
		{"plain text", FetchResult{StatusCode: 200, ContentType: "text/plain"}, true, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.result.Success(); got != tt.success {
				t.Errorf("Success() = %v, want %v", got, tt.success)
			}
			if got := tt.result.IsRetryable(); got != tt.retryable {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.retryable)
			}
			if got := tt.result.IsHTML(); got != tt.html {
				t.Errorf("IsHTML() = %v, want %v", got, tt.html)
			}
		})
	}
}

// TestWorkItemOrdering verifies priority comparison.
func TestWorkItemOrdering(t *testing.T) {
	t.Parallel()

	shallow := NewWorkItem("https://example.com/", 0)
	deep := NewWorkItem("https://example.com/deep", 4)

	if !shallow.Less(deep) {
		t.Error("depth 0 should order before depth 4")
	}
	if deep.Less(shallow) {
		t.Error("depth 4 should not order before depth 0")
	}
}
