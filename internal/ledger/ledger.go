// Package ledger is the append-only history of finished sessions.
// One record per attempt, in the order the attempts ended.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MRamiBalles/SimonSays/internal/platform/logger"
	"github.com/MRamiBalles/SimonSays/internal/platform/metrics"
)

// ErrOutOfOrder is returned when a record's ordinal is not Len()+1.
var ErrOutOfOrder = errors.New("attempt ordinal out of order")

// AttemptRecord is an immutable record of one finished session.
type AttemptRecord struct {
	Attempt       int       `json:"attempt"`
	RoundsReached int       `json:"roundsReached"`
	Timestamp     time.Time `json:"timestamp"`
}

// Persister defines how the ledger is durably stored. Save always receives
// the full ledger so a store can keep it under a single key.
type Persister interface {
	Load(ctx context.Context) ([]AttemptRecord, error)
	Save(ctx context.Context, records []AttemptRecord) error
	Clear(ctx context.Context) error
}

// Ledger is the in-memory, write-through attempt history. The in-memory
// copy stays authoritative when the persister fails.
type Ledger struct {
	mu        sync.RWMutex
	records   []AttemptRecord
	persister Persister
	logger    *logger.Logger
	metrics   *metrics.Collector
}

// New creates an empty ledger with an optional persister.
func New(persister Persister, log *logger.Logger) *Ledger {
	if log == nil {
		log = logger.Discard()
	}
	return &Ledger{
		records:   make([]AttemptRecord, 0),
		persister: persister,
		logger:    log,
	}
}

// WithMetrics attaches a collector for persistence latency and failures.
func (l *Ledger) WithMetrics(c *metrics.Collector) *Ledger {
	l.metrics = c
	return l
}

// Load replaces the in-memory history with the persisted one. Call once at
// process start. A failed or malformed load leaves the ledger empty.
func (l *Ledger) Load(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.records = make([]AttemptRecord, 0)
	if l.persister == nil {
		return
	}

	loaded, err := l.persister.Load(ctx)
	if err != nil {
		l.logger.Warnf("Attempt ledger unavailable, starting empty: %v", err)
		return
	}
	for i, rec := range loaded {
		if rec.Attempt != i+1 {
			l.logger.Warnf("Persisted ledger has ordinal %d at position %d, starting empty", rec.Attempt, i+1)
			return
		}
	}
	l.records = append(l.records, loaded...)
	l.logger.Infof("Attempt ledger loaded with %d records", len(l.records))
}

// Append adds a record and writes the whole ledger through to the persister.
// The record's ordinal must be Len()+1. Persistence failures are logged and
// do not fail the append.
func (l *Ledger) Append(rec AttemptRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if rec.Attempt != len(l.records)+1 {
		return fmt.Errorf("%w: got %d, want %d", ErrOutOfOrder, rec.Attempt, len(l.records)+1)
	}
	l.appendLocked(rec)
	return nil
}

// Record appends a new attempt with the next ordinal, assigned under the
// ledger lock so a concurrent Clear cannot invalidate it.
func (l *Ledger) Record(roundsReached int, at time.Time) AttemptRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec := AttemptRecord{
		Attempt:       len(l.records) + 1,
		RoundsReached: roundsReached,
		Timestamp:     at,
	}
	l.appendLocked(rec)
	return rec
}

func (l *Ledger) appendLocked(rec AttemptRecord) {
	l.records = append(l.records, rec)

	if l.persister != nil {
		start := time.Now()
		err := l.persister.Save(context.Background(), l.copyLocked())
		if l.metrics != nil {
			l.metrics.RecordLedgerWrite(time.Since(start), err)
		}
		if err != nil {
			l.logger.Errorf("Failed to persist attempt %d: %v", rec.Attempt, err)
		}
	}

	l.logger.Event("ATTEMPT_RECORDED", fmt.Sprintf("attempt-%d", rec.Attempt),
		fmt.Sprintf("rounds reached %d", rec.RoundsReached))
}

// Len returns the number of records.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// Snapshot returns a copy of the full history in append order.
func (l *Ledger) Snapshot() []AttemptRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.copyLocked()
}

// Clear drops every record, in memory and in the persister.
func (l *Ledger) Clear(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.records = make([]AttemptRecord, 0)
	if l.persister == nil {
		return nil
	}
	if err := l.persister.Clear(ctx); err != nil {
		l.logger.Errorf("Failed to clear persisted ledger: %v", err)
		return fmt.Errorf("clear ledger: %w", err)
	}
	l.logger.Info("Attempt ledger cleared")
	return nil
}

func (l *Ledger) copyLocked() []AttemptRecord {
	out := make([]AttemptRecord, len(l.records))
	copy(out, l.records)
	return out
}
