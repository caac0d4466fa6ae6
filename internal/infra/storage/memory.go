package storage

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/MRamiBalles/SimonSays/internal/ledger"
)

// MemoryStore is an in-process store. It keeps the encoded document so
// callers get the same round-trip behavior as the SQLite store.
type MemoryStore struct {
	mu    sync.Mutex
	value []byte
	err   error
	saves int
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// FailWith makes every following call return err. Pass nil to recover.
func (m *MemoryStore) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Saves returns the number of successful saves.
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func (m *MemoryStore) Load(ctx context.Context) ([]ledger.AttemptRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.value == nil {
		return nil, nil
	}
	var records []ledger.AttemptRecord
	if err := json.Unmarshal(m.value, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (m *MemoryStore) Save(ctx context.Context, records []ledger.AttemptRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	payload, err := json.Marshal(records)
	if err != nil {
		return err
	}
	m.value = payload
	m.saves++
	return nil
}

func (m *MemoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.value = nil
	return nil
}
