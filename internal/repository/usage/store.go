package usage

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Record is one visitor's usage for a single day.
type Record struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Count int    `json:"count"`
}

// Backend persists the full usage map. Implementations read and write the
// whole map at once; per-key patching is not required at this scale.
type Backend interface {
	Load(ctx context.Context) (map[string]Record, error)
	Save(ctx context.Context, records map[string]Record) error
}

// Store tracks per-visitor daily usage on top of a Backend.
//
// A stale record (stored date != today) is reset on read and the reset is
// persisted immediately, so a visitor blocked yesterday starts fresh today.
type Store struct {
	mu      sync.Mutex
	backend Backend
	now     func() time.Time
}

// New creates a usage store. now may be nil, in which case time.Now is used.
func New(backend Backend, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{backend: backend, now: now}
}

func (s *Store) today() string {
	return s.now().Format("2006-01-02")
}

// Get returns the number of turns consumed today by the given key.
// Visitors with no record, or with a record from a previous day, get a fresh
// zero-count record for today which is persisted before returning.
func (s *Store) Get(ctx context.Context, key string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.backend.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("usage load: %w", err)
	}

	today := s.today()
	rec, ok := records[key]
	if ok && rec.Date == today {
		return rec.Count, nil
	}

	records[key] = Record{Date: today, Count: 0}
	if err := s.backend.Save(ctx, records); err != nil {
		return 0, fmt.Errorf("usage save: %w", err)
	}
	return 0, nil
}

// Increment adds one turn to today's record for the given key.
// If the key has no record for today the call is a no-op: Get establishes
// today's record, and a missing record means nothing was checked out.
func (s *Store) Increment(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.backend.Load(ctx)
	if err != nil {
		return fmt.Errorf("usage load: %w", err)
	}

	rec, ok := records[key]
	if !ok || rec.Date != s.today() {
		return nil
	}

	rec.Count++
	records[key] = rec
	if err := s.backend.Save(ctx, records); err != nil {
		return fmt.Errorf("usage save: %w", err)
	}
	return nil
}
