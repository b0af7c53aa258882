package store

import (
	"bufio"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/docscrape/docscrape/internal/hashutil"
	"github.com/docscrape/docscrape/internal/model"
)

// dbFileName is the SQLite file created under the site's state directory.
const dbFileName = "visited.db"

// SQLiteStore is the embedded ordered key-value store backing a site's
// visited state. One physical store exists per site, rooted at
// <state_dir>/<site_key_or_domain>.
//
// Design decision: We use SQLite as the ordered KV rather than a custom
// file format because it gives us atomic read-modify-write, ordered key
// iteration for the audit log, and a single-file footprint that survives
// interrupted runs. Access is serialized by a mutex: SQLite supports one
// writer, and the critical sections are short.
type SQLiteStore struct {
	mu     sync.Mutex
	db     *sql.DB
	closed bool
}

// Options configures opening a SQLiteStore.
type Options struct {
	// Resume opens existing state as-is. When false, any existing state
	// under the directory is destroyed before the store is created.
	Resume bool

	// EnableWAL enables Write-Ahead Logging. Recommended.
	EnableWAL bool
}

// DefaultOptions returns the default store options for a fresh crawl.
func DefaultOptions() Options {
	return Options{Resume: false, EnableWAL: true}
}

// Open opens or creates the visited store under dir.
func Open(dir string, opts Options) (*SQLiteStore, error) {
	dbPath := filepath.Join(dir, dbFileName)

	if !opts.Resume {
		// Fresh crawl: destroy prior state for this site.
		if err := os.RemoveAll(dir); err != nil {
			return nil, fmt.Errorf("failed to clear state directory: %w", err)
		}
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("failed to open visited store: %w", err)
	}

	// SQLite supports a single writer; the mutex serializes access and
	// the pool stays at one connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &SQLiteStore{db: db}

	if opts.EnableWAL {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return s, nil
}

// pageKey builds the store key for a page record.
func pageKey(normalizedURL string) string {
	return pagePrefix + hashutil.URLHash(normalizedURL)
}

// imageKey builds the store key for an image record.
func imageKey(imageURL string) string {
	return imagePrefix + hashutil.URLHash(imageURL)
}

// get returns the value for key, or ok=false.
func (s *SQLiteStore) get(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %q: %w", key, err)
	}
	return value, true, nil
}

// put writes the value for key, overwriting any prior value.
func (s *SQLiteStore) put(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to write %q: %w", key, err)
	}
	return nil
}

// MarkPageVisited implements PageOps. The insert-if-absent runs inside
// the store mutex, making the claim atomic across workers.
func (s *SQLiteStore) MarkPageVisited(normalizedURL string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}

	key := pageKey(normalizedURL)
	if _, exists, err := s.get(key); err != nil {
		return false, err
	} else if exists {
		return false, nil
	}

	record := model.NewPageRecord(normalizedURL, 0)
	value, err := record.Serialize()
	if err != nil {
		return false, err
	}
	if err := s.put(key, value); err != nil {
		return false, err
	}
	return true, nil
}

// CheckPageStatus implements PageOps.
func (s *SQLiteStore) CheckPageStatus(normalizedURL string) (model.PageStatus, *model.PageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return model.PageStatusUnknown, nil, ErrClosed
	}

	value, exists, err := s.get(pageKey(normalizedURL))
	if err != nil {
		return model.PageStatusUnknown, nil, err
	}
	if !exists {
		return model.PageStatusUnknown, nil, nil
	}

	record, err := model.ParsePageRecord(value)
	if err != nil {
		return model.PageStatusUnknown, nil, fmt.Errorf("corrupt page record for %q: %w", normalizedURL, err)
	}
	return record.Status, &record, nil
}

// UpdatePageStatus implements PageOps.
func (s *SQLiteStore) UpdatePageStatus(normalizedURL string, record model.PageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	value, err := record.Serialize()
	if err != nil {
		return err
	}
	return s.put(pageKey(normalizedURL), value)
}

// GetPageContentHash implements PageOps.
func (s *SQLiteStore) GetPageContentHash(normalizedURL string) (string, error) {
	_, record, err := s.CheckPageStatus(normalizedURL)
	if err != nil || record == nil {
		return "", err
	}
	return record.ContentHash, nil
}

// MarkImageVisited implements ImageOps.
func (s *SQLiteStore) MarkImageVisited(imageURL string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}

	key := imageKey(imageURL)
	if _, exists, err := s.get(key); err != nil {
		return false, err
	} else if exists {
		return false, nil
	}

	record := model.NewImageRecord(imageURL, "", "")
	value, err := record.Serialize()
	if err != nil {
		return false, err
	}
	if err := s.put(key, value); err != nil {
		return false, err
	}
	return true, nil
}

// CheckImageStatus implements ImageOps.
func (s *SQLiteStore) CheckImageStatus(imageURL string) (model.ImageStatus, *model.ImageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return model.ImageStatusUnknown, nil, ErrClosed
	}

	value, exists, err := s.get(imageKey(imageURL))
	if err != nil {
		return model.ImageStatusUnknown, nil, err
	}
	if !exists {
		return model.ImageStatusUnknown, nil, nil
	}

	record, err := model.ParseImageRecord(value)
	if err != nil {
		return model.ImageStatusUnknown, nil, fmt.Errorf("corrupt image record for %q: %w", imageURL, err)
	}
	return record.Status, &record, nil
}

// UpdateImageStatus implements ImageOps.
func (s *SQLiteStore) UpdateImageStatus(imageURL string, record model.ImageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	value, err := record.Serialize()
	if err != nil {
		return err
	}
	return s.put(imageKey(imageURL), value)
}

// GetImageRecords implements ImageOps: all image records with the given
// status, in key order.
func (s *SQLiteStore) GetImageRecords(status model.ImageStatus) ([]model.ImageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	rows, err := s.db.Query(
		"SELECT value FROM kv WHERE key LIKE ? ORDER BY key", imagePrefix+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan image records: %w", err)
	}
	defer rows.Close()

	var records []model.ImageRecord
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, err
		}
		record, err := model.ParseImageRecord(value)
		if err != nil {
			continue // Skip corrupt records
		}
		if record.Status == status {
			records = append(records, record)
		}
	}
	return records, rows.Err()
}

// GetVisitedCount implements AdminOps.
func (s *SQLiteStore) GetVisitedCount() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}

	var count int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM kv WHERE key LIKE ?", pagePrefix+"%",
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count page records: %w", err)
	}
	return count, nil
}

// RequeueIncomplete implements AdminOps. It scans page records in key
// order and re-enqueues every Pending or Failure record at its stored
// depth. Called once at resume, before workers start.
func (s *SQLiteStore) RequeueIncomplete(enqueue func(model.WorkItem)) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}

	rows, err := s.db.Query(
		"SELECT value FROM kv WHERE key LIKE ? ORDER BY key", pagePrefix+"%",
	)
	if err != nil {
		return 0, fmt.Errorf("failed to scan page records: %w", err)
	}
	defer rows.Close()

	requeued := 0
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return requeued, err
		}
		record, err := model.ParsePageRecord(value)
		if err != nil {
			continue // Skip corrupt records
		}
		if record.NormalizedURL == "" {
			continue
		}
		if record.Status == model.PageStatusPending || record.Status == model.PageStatusFailure {
			enqueue(model.NewWorkItem(record.NormalizedURL, record.Depth))
			requeued++
		}
	}
	return requeued, rows.Err()
}

// WriteVisitedLog implements AdminOps.
func (s *SQLiteStore) WriteVisitedLog(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	rows, err := s.db.Query("SELECT key, value FROM kv ORDER BY key")
	if err != nil {
		return fmt.Errorf("failed to scan records: %w", err)
	}
	defer rows.Close()

	f, err := os.Create(path) //nolint:gosec // Operator-chosen audit log path
	if err != nil {
		return fmt.Errorf("failed to create visited log: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%s\t%s\n", key, value); err != nil {
			return fmt.Errorf("failed to write visited log: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	return w.Flush()
}

// Close implements AdminOps.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
