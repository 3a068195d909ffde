package dataset

import (
	"sync"
	"time"

	"ado-pulse/internal/record"
)

// Store holds the current normalized snapshot plus the timestamp of the
// refresh that produced it. Updates happen wholesale through Replace; there
// is no record-level mutation API. Readers always observe either the old or
// the new snapshot, never a mix.
type Store struct {
	mu          sync.RWMutex
	records     []record.Record
	refreshedAt time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Replace atomically swaps in a new snapshot. The slice is copied so later
// mutation of the caller's slice cannot leak into published state.
func (s *Store) Replace(records []record.Record, refreshedAt time.Time) {
	snapshot := make([]record.Record, len(records))
	copy(snapshot, records)

	s.mu.Lock()
	s.records = snapshot
	s.refreshedAt = refreshedAt
	s.mu.Unlock()
}

// Current returns the live snapshot and its refresh timestamp. Callers must
// treat the returned slice as immutable.
func (s *Store) Current() ([]record.Record, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records, s.refreshedAt
}

// IsEmpty reports whether the store has ever been populated.
func (s *Store) IsEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records) == 0
}

// Len returns the record count of the current snapshot.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
