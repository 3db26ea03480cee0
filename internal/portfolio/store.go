package portfolio

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// DimensionError reports a record whose embedding length does not match the
// store's established dimension. Such a record is never admitted: a mixed
// store would silently invalidate clustering.
type DimensionError struct {
	Want int
	Got  int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("embedding dimension mismatch: store holds %d-dim vectors, record has %d", e.Want, e.Got)
}

// Store is the in-memory ordered collection of patent records for one
// session. Append-only, except for a full atomic Clear. Reads return copies;
// stored records are never handed out by reference.
type Store struct {
	mu      sync.RWMutex
	records []PatentRecord
	seq     atomic.Uint64
}

func NewStore() *Store {
	return &Store{}
}

// Append assigns the next sequential ID, validates the embedding dimension
// against the records already held, and commits the record. The returned copy
// carries the assigned ID. IDs are never reused within a session, even after
// a Clear.
func (s *Store) Append(rec PatentRecord) (PatentRecord, error) {
	if len(rec.Embedding) == 0 {
		return PatentRecord{}, &DimensionError{Want: 0, Got: 0}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.records) > 0 {
		want := len(s.records[0].Embedding)
		if len(rec.Embedding) != want {
			return PatentRecord{}, &DimensionError{Want: want, Got: len(rec.Embedding)}
		}
	}

	rec.ID = fmt.Sprintf("PAT-%06d", s.seq.Add(1))
	s.records = append(s.records, rec)
	return rec, nil
}

// Get returns the record with the given ID.
func (s *Store) Get(id string) (PatentRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.records {
		if r.ID == id {
			return r, true
		}
	}
	return PatentRecord{}, false
}

// Snapshot returns a copy of all records in insertion order.
func (s *Store) Snapshot() []PatentRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]PatentRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Select returns the records matching ids, preserving the order of ids.
// Unknown ids are skipped.
func (s *Store) Select(ids []string) []PatentRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byID := make(map[string]PatentRecord, len(s.records))
	for _, r := range s.records {
		byID[r.ID] = r
	}
	var out []PatentRecord
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			out = append(out, r)
		}
	}
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Categories counts records per summary category.
func (s *Store) Categories() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := map[string]int{}
	for _, r := range s.records {
		out[r.Category]++
	}
	return out
}

// Clear removes all records atomically. The ID counter is not reset, so a
// later ingestion never reassigns an ID used in this session.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
}
