package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/MRamiBalles/SimonSays/internal/ledger"
	"github.com/MRamiBalles/SimonSays/internal/platform/logger"
)

func records(rounds ...int) []ledger.AttemptRecord {
	start := time.Date(2024, 3, 9, 18, 30, 0, 0, time.UTC)
	out := make([]ledger.AttemptRecord, len(rounds))
	for i, r := range rounds {
		out[i] = ledger.AttemptRecord{Attempt: i + 1, RoundsReached: r, Timestamp: start.Add(time.Duration(i) * time.Second)}
	}
	return out
}

func assertRecords(t *testing.T, got, want []ledger.AttemptRecord) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d records, got %d: %+v", len(want), len(got), got)
	}
	for i := range want {
		if got[i].Attempt != want[i].Attempt || got[i].RoundsReached != want[i].RoundsReached || !got[i].Timestamp.Equal(want[i].Timestamp) {
			t.Errorf("record %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func openStore(t *testing.T, path string) *SQLiteStore {
	t.Helper()
	db, err := InitSQLite(path)
	if err != nil {
		t.Fatalf("init sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSQLiteStore(db, "")
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, filepath.Join(t.TempDir(), "data", "simon.db"))

	if store.Key() != DefaultKey {
		t.Fatalf("expected default key, got %q", store.Key())
	}

	got, err := store.Load(ctx)
	if err != nil || got != nil {
		t.Fatalf("expected nothing stored, got %+v, %v", got, err)
	}

	if err := store.Save(ctx, records(3)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Save(ctx, records(3, 5)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, err = store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	assertRecords(t, got, records(3, 5))

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	got, err = store.Load(ctx)
	if err != nil || got != nil {
		t.Fatalf("expected empty after clear, got %+v, %v", got, err)
	}
}

func TestSQLiteStoreKeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	db, err := InitSQLite(filepath.Join(t.TempDir(), "simon.db"))
	if err != nil {
		t.Fatalf("init sqlite: %v", err)
	}
	defer db.Close()

	a := NewSQLiteStore(db, "player.a")
	b := NewSQLiteStore(db, "player.b")
	if err := a.Save(ctx, records(4)); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := b.Load(ctx)
	if err != nil || got != nil {
		t.Fatalf("expected key b untouched, got %+v, %v", got, err)
	}
}

func TestSQLiteStoreCorruptValue(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, filepath.Join(t.TempDir(), "simon.db"))

	_, err := store.db.ExecContext(ctx, `INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)`,
		DefaultKey, "{not json", time.Now().UTC())
	if err != nil {
		t.Fatalf("seed corrupt value: %v", err)
	}
	if _, err := store.Load(ctx); err == nil {
		t.Fatal("expected decode error")
	}

	// The ledger treats an unreadable history as empty.
	l := ledger.New(store, logger.Discard())
	l.Load(ctx)
	if l.Len() != 0 {
		t.Fatalf("expected empty ledger, got %d records", l.Len())
	}
}

func TestLedgerSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "simon.db")

	db, err := InitSQLite(path)
	if err != nil {
		t.Fatalf("init sqlite: %v", err)
	}
	l := ledger.New(NewSQLiteStore(db, ""), logger.Discard())
	l.Load(ctx)
	for _, rec := range records(1, 4, 2) {
		if err := l.Append(rec); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	db.Close()

	reopened := openStore(t, path)
	l2 := ledger.New(reopened, logger.Discard())
	l2.Load(ctx)
	assertRecords(t, l2.Snapshot(), records(1, 4, 2))
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	if got, err := m.Load(ctx); err != nil || got != nil {
		t.Fatalf("expected empty store, got %+v, %v", got, err)
	}
	if err := m.Save(ctx, records(2, 6)); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := m.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	assertRecords(t, got, records(2, 6))
	if m.Saves() != 1 {
		t.Errorf("expected 1 save, got %d", m.Saves())
	}

	boom := errors.New("disk full")
	m.FailWith(boom)
	if err := m.Save(ctx, records(2, 6, 1)); !errors.Is(err, boom) {
		t.Fatalf("expected injected error, got %v", err)
	}
	m.FailWith(nil)

	got, _ = m.Load(ctx)
	assertRecords(t, got, records(2, 6))

	if err := m.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if got, _ := m.Load(ctx); got != nil {
		t.Fatalf("expected empty after clear, got %+v", got)
	}
}

func TestLedgerKeepsMemoryWhenStoreFails(t *testing.T) {
	m := NewMemoryStore()
	l := ledger.New(m, logger.Discard())
	m.FailWith(errors.New("unavailable"))

	if err := l.Append(records(3)[0]); err != nil {
		t.Fatalf("append must not surface persistence errors: %v", err)
	}
	if l.Len() != 1 {
		t.Fatalf("expected in-memory record, got %d", l.Len())
	}
}
