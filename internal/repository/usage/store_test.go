package usage

import (
	"context"
	"errors"
	"testing"
	"time"
)

// memBackend is an in-memory Backend for tests.
type memBackend struct {
	records map[string]Record
	loadErr error
	saveErr error
	saves   int
}

func newMemBackend() *memBackend {
	return &memBackend{records: map[string]Record{}}
}

func (m *memBackend) Load(_ context.Context) (map[string]Record, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	out := make(map[string]Record, len(m.records))
	for k, v := range m.records {
		out[k] = v
	}
	return out, nil
}

func (m *memBackend) Save(_ context.Context, records map[string]Record) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.records = records
	return nil
}

func fixedNow(day string) func() time.Time {
	return func() time.Time {
		ts, _ := time.Parse("2006-01-02", day)
		return ts
	}
}

func TestStore_Get_FreshVisitor(t *testing.T) {
	backend := newMemBackend()
	store := New(backend, fixedNow("2026-08-29"))

	used, err := store.Get(context.Background(), "visitor-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if used != 0 {
		t.Errorf("expected 0 used, got %d", used)
	}

	rec, ok := backend.records["visitor-1"]
	if !ok {
		t.Fatal("expected a persisted record for the fresh visitor")
	}
	if rec.Date != "2026-08-29" || rec.Count != 0 {
		t.Errorf("unexpected record: %+v", rec)
	}
}

func TestStore_IncrementThenGet(t *testing.T) {
	backend := newMemBackend()
	store := New(backend, fixedNow("2026-08-29"))
	ctx := context.Background()

	if _, err := store.Get(ctx, "visitor-1"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := store.Increment(ctx, "visitor-1"); err != nil {
			t.Fatalf("Increment: %v", err)
		}
	}

	used, err := store.Get(ctx, "visitor-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if used != 3 {
		t.Errorf("expected 3 used, got %d", used)
	}
}

func TestStore_Increment_NoRecordIsNoop(t *testing.T) {
	backend := newMemBackend()
	store := New(backend, fixedNow("2026-08-29"))

	if err := store.Increment(context.Background(), "ghost"); err != nil {
		t.Fatalf("Increment: %v", err)
	}
	if backend.saves != 0 {
		t.Errorf("expected no save for missing record, got %d saves", backend.saves)
	}
	if _, ok := backend.records["ghost"]; ok {
		t.Error("expected no record to be created by Increment")
	}
}

func TestStore_Get_StaleDateResets(t *testing.T) {
	backend := newMemBackend()
	backend.records["visitor-1"] = Record{Date: "2026-08-28", Count: 5}
	store := New(backend, fixedNow("2026-08-29"))

	used, err := store.Get(context.Background(), "visitor-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if used != 0 {
		t.Errorf("expected stale record to reset to 0, got %d", used)
	}

	rec := backend.records["visitor-1"]
	if rec.Date != "2026-08-29" || rec.Count != 0 {
		t.Errorf("expected persisted reset record, got %+v", rec)
	}
}

func TestStore_Increment_StaleDateIsNoop(t *testing.T) {
	backend := newMemBackend()
	backend.records["visitor-1"] = Record{Date: "2026-08-28", Count: 5}
	store := New(backend, fixedNow("2026-08-29"))

	if err := store.Increment(context.Background(), "visitor-1"); err != nil {
		t.Fatalf("Increment: %v", err)
	}
	if backend.records["visitor-1"].Count != 5 {
		t.Errorf("stale record should be untouched, got %+v", backend.records["visitor-1"])
	}
}

func TestStore_Get_LoadErrorPropagates(t *testing.T) {
	backend := newMemBackend()
	backend.loadErr = errors.New("disk on fire")
	store := New(backend, fixedNow("2026-08-29"))

	if _, err := store.Get(context.Background(), "visitor-1"); err == nil {
		t.Fatal("expected load error to propagate")
	}
}

func TestStore_DefaultClock(t *testing.T) {
	store := New(newMemBackend(), nil)
	if store.now == nil {
		t.Fatal("expected a default clock")
	}
	if store.today() == "" {
		t.Error("expected today to format")
	}
}
