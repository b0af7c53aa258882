package store

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/docscrape/docscrape/internal/model"
)

// MemoryStore is an in-memory Store for tests and dry runs. It mirrors
// the SQLite store's semantics, including key-ordered iteration, with
// a plain map under a mutex.
type MemoryStore struct {
	mu     sync.Mutex
	kv     map[string]string
	closed bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{kv: make(map[string]string)}
}

// sortedKeys returns the store's keys with the given prefix in order.
func (s *MemoryStore) sortedKeys(prefix string) []string {
	keys := make([]string, 0, len(s.kv))
	for k := range s.kv {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// MarkPageVisited implements PageOps.
func (s *MemoryStore) MarkPageVisited(normalizedURL string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}

	key := pageKey(normalizedURL)
	if _, exists := s.kv[key]; exists {
		return false, nil
	}

	value, err := model.NewPageRecord(normalizedURL, 0).Serialize()
	if err != nil {
		return false, err
	}
	s.kv[key] = value
	return true, nil
}

// CheckPageStatus implements PageOps.
func (s *MemoryStore) CheckPageStatus(normalizedURL string) (model.PageStatus, *model.PageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return model.PageStatusUnknown, nil, ErrClosed
	}

	value, exists := s.kv[pageKey(normalizedURL)]
	if !exists {
		return model.PageStatusUnknown, nil, nil
	}
	record, err := model.ParsePageRecord(value)
	if err != nil {
		return model.PageStatusUnknown, nil, err
	}
	return record.Status, &record, nil
}

// UpdatePageStatus implements PageOps.
func (s *MemoryStore) UpdatePageStatus(normalizedURL string, record model.PageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	value, err := record.Serialize()
	if err != nil {
		return err
	}
	s.kv[pageKey(normalizedURL)] = value
	return nil
}

// GetPageContentHash implements PageOps.
func (s *MemoryStore) GetPageContentHash(normalizedURL string) (string, error) {
	_, record, err := s.CheckPageStatus(normalizedURL)
	if err != nil || record == nil {
		return "", err
	}
	return record.ContentHash, nil
}

// MarkImageVisited implements ImageOps.
func (s *MemoryStore) MarkImageVisited(imageURL string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}

	key := imageKey(imageURL)
	if _, exists := s.kv[key]; exists {
		return false, nil
	}

	value, err := model.NewImageRecord(imageURL, "", "").Serialize()
	if err != nil {
		return false, err
	}
	s.kv[key] = value
	return true, nil
}

// CheckImageStatus implements ImageOps.
func (s *MemoryStore) CheckImageStatus(imageURL string) (model.ImageStatus, *model.ImageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return model.ImageStatusUnknown, nil, ErrClosed
	}

	value, exists := s.kv[imageKey(imageURL)]
	if !exists {
		return model.ImageStatusUnknown, nil, nil
	}
	record, err := model.ParseImageRecord(value)
	if err != nil {
		return model.ImageStatusUnknown, nil, err
	}
	return record.Status, &record, nil
}

// UpdateImageStatus implements ImageOps.
func (s *MemoryStore) UpdateImageStatus(imageURL string, record model.ImageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	value, err := record.Serialize()
	if err != nil {
		return err
	}
	s.kv[imageKey(imageURL)] = value
	return nil
}

// GetImageRecords implements ImageOps.
func (s *MemoryStore) GetImageRecords(status model.ImageStatus) ([]model.ImageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	var records []model.ImageRecord
	for _, key := range s.sortedKeys(imagePrefix) {
		record, err := model.ParseImageRecord(s.kv[key])
		if err != nil {
			continue
		}
		if record.Status == status {
			records = append(records, record)
		}
	}
	return records, nil
}

// GetVisitedCount implements AdminOps.
func (s *MemoryStore) GetVisitedCount() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	return len(s.sortedKeys(pagePrefix)), nil
}

// RequeueIncomplete implements AdminOps.
func (s *MemoryStore) RequeueIncomplete(enqueue func(model.WorkItem)) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}

	requeued := 0
	for _, key := range s.sortedKeys(pagePrefix) {
		record, err := model.ParsePageRecord(s.kv[key])
		if err != nil || record.NormalizedURL == "" {
			continue
		}
		if record.Status == model.PageStatusPending || record.Status == model.PageStatusFailure {
			enqueue(model.NewWorkItem(record.NormalizedURL, record.Depth))
			requeued++
		}
	}
	return requeued, nil
}

// WriteVisitedLog implements AdminOps.
func (s *MemoryStore) WriteVisitedLog(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	f, err := os.Create(path) //nolint:gosec // Operator-chosen audit log path
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, key := range s.sortedKeys("") {
		if _, err := fmt.Fprintf(w, "%s\t%s\n", key, s.kv[key]); err != nil {
			return err
		}
	}
	return w.Flush()
}

// Close implements AdminOps.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
