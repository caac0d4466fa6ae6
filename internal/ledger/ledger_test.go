package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MRamiBalles/SimonSays/internal/platform/logger"
	"github.com/MRamiBalles/SimonSays/internal/platform/metrics"
)

// fakePersister records saves and can be told to fail.
type fakePersister struct {
	mu       sync.Mutex
	stored   []AttemptRecord
	saves    int
	loadErr  error
	saveErr  error
	clearErr error
}

func (f *fakePersister) Load(context.Context) ([]AttemptRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return append([]AttemptRecord(nil), f.stored...), nil
}

func (f *fakePersister) Save(_ context.Context, records []AttemptRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	if f.saveErr != nil {
		return f.saveErr
	}
	f.stored = append([]AttemptRecord(nil), records...)
	return nil
}

func (f *fakePersister) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.clearErr != nil {
		return f.clearErr
	}
	f.stored = nil
	return nil
}

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestAppendIsMonotonic(t *testing.T) {
	p := &fakePersister{}
	l := New(p, logger.Discard())

	for i := 1; i <= 5; i++ {
		before := l.Len()
		if err := l.Append(AttemptRecord{Attempt: l.Len() + 1, RoundsReached: i, Timestamp: now}); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		if l.Len() != before+1 {
			t.Fatalf("expected len %d, got %d", before+1, l.Len())
		}
	}

	for i, rec := range l.Snapshot() {
		if rec.Attempt != i+1 {
			t.Errorf("record %d has ordinal %d", i, rec.Attempt)
		}
	}
	if p.saves != 5 || len(p.stored) != 5 {
		t.Errorf("expected 5 write-through saves of the full ledger, got %d saves, %d stored", p.saves, len(p.stored))
	}
}

func TestAppendRejectsOutOfOrder(t *testing.T) {
	l := New(nil, nil)
	if err := l.Append(AttemptRecord{Attempt: 2}); !errors.Is(err, ErrOutOfOrder) {
		t.Fatalf("expected ErrOutOfOrder, got %v", err)
	}
	if l.Len() != 0 {
		t.Fatal("rejected record was stored")
	}
}

func TestSaveFailureKeepsMemoryAuthoritative(t *testing.T) {
	p := &fakePersister{saveErr: errors.New("disk full")}
	c := metrics.NewCollector()
	l := New(p, logger.Discard()).WithMetrics(c)

	if err := l.Append(AttemptRecord{Attempt: 1, RoundsReached: 4, Timestamp: now}); err != nil {
		t.Fatalf("append must not fail on persistence errors: %v", err)
	}
	if l.Len() != 1 {
		t.Fatalf("expected in-memory record, got %d", l.Len())
	}
	if c.LedgerWriteErrors != 1 {
		t.Errorf("expected one recorded write error, got %d", c.LedgerWriteErrors)
	}
}

func TestLoad(t *testing.T) {
	p := &fakePersister{stored: []AttemptRecord{
		{Attempt: 1, RoundsReached: 3, Timestamp: now},
		{Attempt: 2, RoundsReached: 5, Timestamp: now.Add(time.Minute)},
	}}
	l := New(p, logger.Discard())
	l.Load(context.Background())

	if l.Len() != 2 {
		t.Fatalf("expected 2 loaded records, got %d", l.Len())
	}
	if err := l.Append(AttemptRecord{Attempt: 3, RoundsReached: 1, Timestamp: now}); err != nil {
		t.Fatalf("append after load: %v", err)
	}
}

func TestLoadFailureStartsEmpty(t *testing.T) {
	tests := []struct {
		name string
		p    *fakePersister
	}{
		{name: "load error", p: &fakePersister{loadErr: errors.New("unreadable")}},
		{name: "gap in ordinals", p: &fakePersister{stored: []AttemptRecord{{Attempt: 1}, {Attempt: 3}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New(tt.p, logger.Discard())
			l.Load(context.Background())
			if l.Len() != 0 {
				t.Fatalf("expected empty ledger, got %d", l.Len())
			}
		})
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	l := New(nil, nil)
	_ = l.Append(AttemptRecord{Attempt: 1, RoundsReached: 2, Timestamp: now})

	snap := l.Snapshot()
	snap[0].RoundsReached = 99
	if l.Snapshot()[0].RoundsReached != 2 {
		t.Fatal("snapshot aliases ledger storage")
	}
}

func TestClear(t *testing.T) {
	p := &fakePersister{}
	l := New(p, logger.Discard())
	_ = l.Append(AttemptRecord{Attempt: 1, RoundsReached: 2, Timestamp: now})

	if err := l.Clear(context.Background()); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if l.Len() != 0 || p.stored != nil {
		t.Fatalf("expected empty ledger and store, got %d / %v", l.Len(), p.stored)
	}
	if err := l.Append(AttemptRecord{Attempt: 1, RoundsReached: 1, Timestamp: now}); err != nil {
		t.Fatalf("ordinals restart at 1 after clear: %v", err)
	}

	p.clearErr = errors.New("locked")
	if err := l.Clear(context.Background()); err == nil {
		t.Fatal("expected clear error to surface")
	}
}

func TestConcurrentReadersSeeWholeRecords(t *testing.T) {
	l := New(&fakePersister{}, logger.Discard())
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= 200; i++ {
			_ = l.Append(AttemptRecord{Attempt: i, RoundsReached: i, Timestamp: now})
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				for j, rec := range l.Snapshot() {
					if rec.Attempt != j+1 || rec.RoundsReached != j+1 {
						t.Errorf("torn record at %d: %+v", j, rec)
						return
					}
				}
			}
		}()
	}
	wg.Wait()
}

func TestRecordAssignsOrdinalAcrossClears(t *testing.T) {
	p := &fakePersister{}
	l := New(p, logger.Discard())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				l.Record(j+1, now)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				_ = l.Clear(context.Background())
			}
		}()
	}
	wg.Wait()

	rec := l.Record(7, now)
	if rec.Attempt != l.Len() {
		t.Fatalf("expected the newest ordinal to equal Len %d, got %d", l.Len(), rec.Attempt)
	}
	for i, r := range l.Snapshot() {
		if r.Attempt != i+1 {
			t.Fatalf("record %d has ordinal %d", i, r.Attempt)
		}
	}
	if p.stored[len(p.stored)-1].RoundsReached != 7 {
		t.Errorf("expected the last record written through, got %+v", p.stored[len(p.stored)-1])
	}
}
