// Package storage provides the persistence layer for the attempt ledger.
// The ledger only knows the Persister interface; the implementations live here.
package storage

import "github.com/MRamiBalles/SimonSays/internal/ledger"

// DefaultKey is the key the attempt history is stored under.
const DefaultKey = "simon.gameStats"

// AttemptRepository is the storage contract the ledger writes through to.
// Save always receives the full history; Load returns nil when nothing is stored.
type AttemptRepository interface {
	ledger.Persister
}

var (
	_ AttemptRepository = (*SQLiteStore)(nil)
	_ AttemptRepository = (*MemoryStore)(nil)
)

