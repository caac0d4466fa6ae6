package engine

import (
	"errors"
	"time"

	"github.com/MRamiBalles/SimonSays/internal/ledger"
	"github.com/MRamiBalles/SimonSays/internal/palette"
	"github.com/MRamiBalles/SimonSays/internal/playback"
)

// ErrClosed is returned by Start after Close.
var ErrClosed = errors.New("session closed")

// Phase is the current state of a session.
type Phase string

const (
	PhaseIdle                    Phase = "IDLE"
	PhaseAwaitingFirstRoundDelay Phase = "AWAITING_FIRST_ROUND_DELAY"
	PhaseShowingSequence         Phase = "SHOWING_SEQUENCE"
	PhaseAwaitingInput           Phase = "AWAITING_INPUT"
	PhaseRoundTransitionDelay    Phase = "ROUND_TRANSITION_DELAY"
	PhaseGameOver                Phase = "GAME_OVER"
)

// Config holds the session delays. Zero values are not defaulted; use
// DefaultConfig and override fields.
type Config struct {
	FirstRoundDelay      time.Duration
	RoundTransitionDelay time.Duration
	GameOverDelay        time.Duration
	Playback             playback.Timing
	// AutoRestart starts a new session right after SessionEnded is published.
	AutoRestart bool
}

// DefaultConfig returns the classic game timing.
func DefaultConfig() Config {
	return Config{
		FirstRoundDelay:      2000 * time.Millisecond,
		RoundTransitionDelay: 2000 * time.Millisecond,
		GameOverDelay:        800 * time.Millisecond,
		Playback:             playback.DefaultTiming(),
	}
}

// State is a point-in-time copy of the session.
type State struct {
	SessionID    string   `json:"session_id,omitempty"`
	Sequence     []string `json:"sequence"`
	Round        int      `json:"round"`
	UserProgress int      `json:"user_progress"`
	Phase        Phase    `json:"phase"`
	ActiveSignal string   `json:"active_signal,omitempty"` // empty means none
}

// UpdateKind is the category of an Update.
type UpdateKind string

const (
	// UpdateSignal reports an ActiveSignal change, during playback or as an
	// input acknowledgment pulse.
	UpdateSignal UpdateKind = "signal"
	// UpdatePhase reports a phase change together with the current round.
	UpdatePhase UpdateKind = "phase"
	// UpdateSessionEnded is published once per session, after the game-over delay.
	UpdateSessionEnded UpdateKind = "session_ended"
)

// Update is a notification to the render, input and navigation collaborators.
type Update struct {
	Kind      UpdateKind
	SessionID string
	Phase     Phase
	Round     int
	// Signal is the newly active signal, nil when the signal went dark.
	Signal *palette.Signal
	Ended  *SessionEnded
}

// SessionEnded is published after game over.
type SessionEnded struct {
	RoundsReached int
	Attempts      []ledger.AttemptRecord
}

// Observer receives updates in the order they happened. An observer may read
// Session.State but must not call Start, Press, Reset or Close synchronously.
type Observer interface {
	OnUpdate(Update)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Update)

// OnUpdate calls f(u).
func (f ObserverFunc) OnUpdate(u Update) { f(u) }
