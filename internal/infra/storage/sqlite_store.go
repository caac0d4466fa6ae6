package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MRamiBalles/SimonSays/internal/ledger"
)

// SQLiteStore keeps the attempt history as one JSON document in the kv table.
type SQLiteStore struct {
	db  *sql.DB
	key string
	now func() time.Time
}

// NewSQLiteStore returns a store writing under key. An empty key means DefaultKey.
func NewSQLiteStore(db *sql.DB, key string) *SQLiteStore {
	if key == "" {
		key = DefaultKey
	}
	return &SQLiteStore{db: db, key: key, now: time.Now}
}

// Key returns the kv key the history is stored under.
func (s *SQLiteStore) Key() string {
	return s.key
}

// Load returns the stored history, or nil when the key is absent.
func (s *SQLiteStore) Load(ctx context.Context) ([]ledger.AttemptRecord, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, s.key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.key, err)
	}

	var records []ledger.AttemptRecord
	if err := json.Unmarshal([]byte(value), &records); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", s.key, err)
	}
	return records, nil
}

// Save replaces the stored history with records.
func (s *SQLiteStore) Save(ctx context.Context, records []ledger.AttemptRecord) error {
	if records == nil {
		records = []ledger.AttemptRecord{}
	}
	payload, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to marshal attempts: %w", err)
	}

	query := `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, s.key, string(payload), s.now().UTC()); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.key, err)
	}
	return nil
}

// Clear removes the stored history.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, s.key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", s.key, err)
	}
	return nil
}
