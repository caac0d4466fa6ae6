// Package engine contains the session state machine: the heartbeat of a game.
//
// A Session owns the sequence, the round counter and the player's progress.
// It moves through a single Phase at a time and drives every delay and
// playback step through one pending timer. Each timer carries the session's
// generation token; a timer that fires after a reset or a newer transition
// finds a different token and does nothing.
//
// The engine does not render or play audio. It publishes Updates to
// observers and appends one AttemptRecord to the ledger per finished session.
package engine
