// Package progress defines the persistence contract for card scheduling
// state and the review log, plus an in-memory implementation of it.
package progress

import (
	"time"

	"github.com/notedeck/notedeck/internal/domain"
)

// MaxHistoryEntries bounds the review log. Appending beyond the bound
// discards the oldest entries; the remaining order is untouched.
const MaxHistoryEntries = 1000

// Store is the persistence boundary for the scheduling engine.
//
// Implementations are assumed single-writer: one active session at a time,
// enforced by the caller. Operations are synchronous and report failure
// through the returned error only.
type Store interface {
	// Get returns the progress record for a card. If no record exists it
	// returns the default record for that id (interval 0, ease 2.5, zero
	// counts, no dates) rather than an error.
	Get(cardID string) (domain.CardProgress, error)

	// GetAll returns every stored progress record keyed by card id.
	GetAll() (map[string]domain.CardProgress, error)

	// Put upserts a progress record and stamps its LastUpdated time.
	// Invariant maintenance is the caller's job; the store only persists.
	Put(p domain.CardProgress) error

	// AppendHistory assigns an id and timestamp to the record and prepends
	// it to the review log, truncating the log to MaxHistoryEntries.
	AppendHistory(rec domain.ReviewRecord) error

	// History returns review log entries newest-first. A limit <= 0 returns
	// the whole retained log.
	History(limit int) ([]domain.ReviewHistoryEntry, error)
}

// MemoryStore is a map-backed Store. It is the reference implementation used
// in tests and works for throwaway sessions; durable setups use the sqlite
// store in internal/storage.
type MemoryStore struct {
	records map[string]domain.CardProgress
	history []domain.ReviewHistoryEntry
	nextID  int64
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]domain.CardProgress),
		nextID:  1,
	}
}

// Get implements Store.
func (s *MemoryStore) Get(cardID string) (domain.CardProgress, error) {
	if p, ok := s.records[cardID]; ok {
		return p, nil
	}
	return domain.NewCardProgress(cardID), nil
}

// GetAll implements Store.
func (s *MemoryStore) GetAll() (map[string]domain.CardProgress, error) {
	out := make(map[string]domain.CardProgress, len(s.records))
	for id, p := range s.records {
		out[id] = p
	}
	return out, nil
}

// Put implements Store.
func (s *MemoryStore) Put(p domain.CardProgress) error {
	p.LastUpdated = time.Now()
	s.records[p.ID] = p
	return nil
}

// AppendHistory implements Store.
func (s *MemoryStore) AppendHistory(rec domain.ReviewRecord) error {
	entry := domain.ReviewHistoryEntry{
		ID:           s.nextID,
		ReviewRecord: rec,
		Timestamp:    time.Now(),
	}
	s.nextID++

	s.history = append([]domain.ReviewHistoryEntry{entry}, s.history...)
	if len(s.history) > MaxHistoryEntries {
		s.history = s.history[:MaxHistoryEntries]
	}
	return nil
}

// History implements Store.
func (s *MemoryStore) History(limit int) ([]domain.ReviewHistoryEntry, error) {
	n := len(s.history)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]domain.ReviewHistoryEntry, n)
	copy(out, s.history[:n])
	return out, nil
}
