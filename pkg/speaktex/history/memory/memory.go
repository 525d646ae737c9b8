// Package memory provides an in-memory implementation of the
// speaktex.HistoryStore interface for tests and local development.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/speaktex/speaktex/pkg/speaktex"
)

// Store is an in-memory implementation of the speaktex.HistoryStore interface
type Store struct {
	mu      sync.RWMutex
	records map[string][]*speaktex.HistoryRecord // keyed by user ID
}

// New creates a new in-memory history store
func New() *Store {
	return &Store{
		records: make(map[string][]*speaktex.HistoryRecord),
	}
}

// Insert appends a record
func (s *Store) Insert(ctx context.Context, record *speaktex.HistoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *record
	s.records[record.UserID] = append(s.records[record.UserID], &copied)
	return nil
}

// Query returns a user's records newest first
func (s *Store) Query(ctx context.Context, userID string, limit int) ([]*speaktex.HistoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.records[userID]
	records := make([]*speaktex.HistoryRecord, len(stored))
	for i, record := range stored {
		copied := *record
		records[i] = &copied
	}

	// RFC 3339 timestamps sort lexicographically
	sort.Slice(records, func(i, j int) bool {
		return records[i].Timestamp > records[j].Timestamp
	})

	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// Delete removes one record and returns it, or speaktex.ErrRecordNotFound
func (s *Store) Delete(ctx context.Context, userID, timestamp string) (*speaktex.HistoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := s.records[userID]
	for i, record := range stored {
		if record.Timestamp == timestamp {
			s.records[userID] = append(stored[:i], stored[i+1:]...)
			deleted := *record
			return &deleted, nil
		}
	}

	return nil, speaktex.ErrRecordNotFound
}
