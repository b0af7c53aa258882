package model

import (
	"encoding/json"
	"time"
)

// timestampLayout is the serialized timestamp form: ISO-8601 with
// millisecond precision and a Z suffix.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// Timestamp wraps time.Time to serialize as ISO-8601 with millisecond
// precision in UTC. The zero value serializes as the empty string so
// never-set fields round-trip cleanly.
type Timestamp struct {
	time.Time
}

// Now returns the current time as a Timestamp, truncated to the
// millisecond precision that serialization keeps.
func Now() Timestamp {
	return Timestamp{Time: time.Now().UTC().Truncate(time.Millisecond)}
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(t.UTC().Format(timestampLayout))
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := time.Parse(timestampLayout, s)
	if err != nil {
		// Tolerate records written by other tooling with full RFC3339.
		parsed, err = time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return err
		}
	}
	t.Time = parsed.UTC()
	return nil
}

// PageRecord is the persisted state of a single page, keyed in the
// visited store by the hash of its normalized URL.
//
// Design decision: Records serialize as JSON objects even though the
// store treats values as opaque text. JSON keeps the records inspectable
// with standard tooling and lets us add fields without a migration.
type PageRecord struct {
	// Status is the page's lifecycle state.
	Status PageStatus `json:"status"`

	// ErrorKind classifies the failure when Status is a failure state.
	ErrorKind ErrorKind `json:"error_kind"`

	// ErrorMessage carries the human-readable failure detail.
	ErrorMessage string `json:"error_message,omitempty"`

	// CreatedAt is when the record was first written (the claim time).
	CreatedAt Timestamp `json:"created_at"`

	// ProcessedAt is when processing finished, zero until terminal.
	ProcessedAt Timestamp `json:"processed_at"`

	// LastAttempt is when the most recent fetch attempt started.
	LastAttempt Timestamp `json:"last_attempt"`

	// Depth is the BFS depth at which the page was discovered.
	Depth int `json:"depth"`

	// AttemptCount is the number of fetch attempts made so far.
	AttemptCount int `json:"attempt_count"`

	// ContentHash is the sha256 hex digest of the converted markdown.
	ContentHash string `json:"content_hash,omitempty"`

	// NormalizedURL is the canonical URL this record describes.
	NormalizedURL string `json:"normalized_url"`

	// FinalURL is the URL after redirects, when it differs.
	FinalURL string `json:"final_url_after_redirects,omitempty"`

	// LocalFilePath is where the converted page was written.
	LocalFilePath string `json:"local_file_path,omitempty"`

	// TokenCount is the rough token count of the converted text.
	TokenCount int `json:"token_count"`
}

// NewPageRecord returns a Pending record for the given normalized URL.
func NewPageRecord(normalizedURL string, depth int) PageRecord {
	return PageRecord{
		Status:        PageStatusPending,
		ErrorKind:     ErrorKindNone,
		CreatedAt:     Now(),
		Depth:         depth,
		NormalizedURL: normalizedURL,
	}
}

// Serialize renders the record as its stored form.
func (r PageRecord) Serialize() (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ParsePageRecord parses a stored record value.
func ParsePageRecord(data string) (PageRecord, error) {
	var r PageRecord
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return PageRecord{}, err
	}
	return r, nil
}

// ImageRecord is the persisted state of a harvested image, keyed in the
// visited store by the hash of its normalized URL.
type ImageRecord struct {
	// Status is the image's lifecycle state.
	Status ImageStatus `json:"status"`

	// ErrorKind classifies the failure when Status is a failure state.
	ErrorKind ErrorKind `json:"error_kind"`

	// ErrorMessage carries the human-readable failure detail.
	ErrorMessage string `json:"error_message,omitempty"`

	// CreatedAt is when the record was first written.
	CreatedAt Timestamp `json:"created_at"`

	// ProcessedAt is when the download finished, zero until then.
	ProcessedAt Timestamp `json:"processed_at"`

	// LastAttempt is when the most recent download attempt started.
	LastAttempt Timestamp `json:"last_attempt"`

	// AttemptCount is the number of download attempts made so far.
	AttemptCount int `json:"attempt_count"`

	// OriginalURL is the image URL as harvested from the page.
	OriginalURL string `json:"original_url"`

	// LocalPath is where the image is (or would be) stored on disk.
	LocalPath string `json:"local_path,omitempty"`

	// Caption is the alt text, or an EXIF description when alt was empty.
	Caption string `json:"caption,omitempty"`

	// FileSizeBytes is the downloaded size, zero until downloaded.
	FileSizeBytes int64 `json:"file_size_bytes"`

	// ContentType is the MIME type reported by the server.
	ContentType string `json:"content_type,omitempty"`
}

// NewImageRecord returns a Pending record for the given image URL.
func NewImageRecord(originalURL, localPath, caption string) ImageRecord {
	return ImageRecord{
		Status:      ImageStatusPending,
		ErrorKind:   ErrorKindNone,
		CreatedAt:   Now(),
		OriginalURL: originalURL,
		LocalPath:   localPath,
		Caption:     caption,
	}
}

// Serialize renders the record as its stored form.
func (r ImageRecord) Serialize() (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ParseImageRecord parses a stored record value.
func ParseImageRecord(data string) (ImageRecord, error) {
	var r ImageRecord
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return ImageRecord{}, err
	}
	return r, nil
}
