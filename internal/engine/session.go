package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/MRamiBalles/SimonSays/internal/ledger"
	"github.com/MRamiBalles/SimonSays/internal/palette"
	"github.com/MRamiBalles/SimonSays/internal/platform/clock"
	"github.com/MRamiBalles/SimonSays/internal/platform/logger"
	"github.com/MRamiBalles/SimonSays/internal/platform/metrics"
	"github.com/MRamiBalles/SimonSays/internal/playback"
)

const tracerName = "github.com/MRamiBalles/SimonSays/internal/engine"

// Session is the state machine for one player's games. All public methods
// and all timer callbacks are serialized by a single lock.
type Session struct {
	mu sync.Mutex

	clock     clock.Clock
	palette   *palette.Palette
	generator palette.Generator
	player    *playback.Player
	ledger    *ledger.Ledger
	logger    *logger.Logger
	metrics   *metrics.Collector
	tracer    trace.Tracer
	cfg       Config

	id       string
	sequence []string
	round    int
	progress int
	phase    Phase
	active   string

	token uint64
	timer clock.Timer
	run   *playback.Run
	span  trace.Span

	closed      bool
	observers   []Observer
	outbox      []Update
	dispatching bool
}

// Option configures a Session.
type Option func(*Session)

// WithClock sets the timer source. Defaults to the wall clock.
func WithClock(c clock.Clock) Option {
	return func(s *Session) { s.clock = c }
}

// WithConfig sets the session delays.
func WithConfig(cfg Config) Option {
	return func(s *Session) { s.cfg = cfg }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithMetrics sets the metrics collector. Defaults to the global collector.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Session) { s.metrics = c }
}

// WithTracer sets the tracer used for per-session spans.
func WithTracer(t trace.Tracer) Option {
	return func(s *Session) { s.tracer = t }
}

// NewSession builds an idle session. The ledger is shared across sessions
// and must already be loaded.
func NewSession(p *palette.Palette, gen palette.Generator, l *ledger.Ledger, opts ...Option) *Session {
	s := &Session{
		clock:     clock.Real{},
		palette:   p,
		generator: gen,
		ledger:    l,
		cfg:       DefaultConfig(),
		phase:     PhaseIdle,
		sequence:  make([]string, 0),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Discard()
	}
	if s.metrics == nil {
		s.metrics = metrics.Get()
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(tracerName)
	}
	s.player = playback.NewPlayer(s.clock, s.cfg.Playback)
	return s
}

// Palette returns the session's palette.
func (s *Session) Palette() *palette.Palette {
	return s.palette
}

// Ledger returns the attempt ledger the session appends to.
func (s *Session) Ledger() *ledger.Ledger {
	return s.ledger
}

// Subscribe registers an observer for every future update.
func (s *Session) Subscribe(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// State returns a copy of the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq := make([]string, len(s.sequence))
	copy(seq, s.sequence)
	return State{
		SessionID:    s.id,
		Sequence:     seq,
		Round:        s.round,
		UserProgress: s.progress,
		Phase:        s.phase,
		ActiveSignal: s.active,
	}
}

// Start begins a new session from Idle. Any pending timer from a previous
// session is cancelled first.
func (s *Session) Start() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.startLocked()
	s.unlockAndDispatch()
	return nil
}

// Press submits a player input. It reports whether the input was accepted;
// input outside AwaitingInput or for an unknown signal is dropped without
// any state change.
func (s *Session) Press(id string) bool {
	s.mu.Lock()

	sig, known := s.palette.Lookup(id)
	if s.phase != PhaseAwaitingInput || s.run != nil || !known {
		s.metrics.RecordInput(false)
		s.mu.Unlock()
		return false
	}
	s.metrics.RecordInput(true)

	// Acknowledgment pulse: lit and dark again without arming a timer.
	s.setActiveLocked(&sig)
	s.setActiveLocked(nil)

	if sig.ID != s.sequence[s.progress] {
		s.gameOverLocked()
		s.unlockAndDispatch()
		return true
	}

	if s.progress+1 < len(s.sequence) {
		s.progress++
		s.unlockAndDispatch()
		return true
	}

	// Round complete.
	s.progress++
	next := s.generator.Next()
	s.sequence = append(s.sequence, next.ID)
	s.round++
	s.metrics.RecordRoundCleared()
	if s.span != nil {
		s.span.AddEvent("round_cleared", trace.WithAttributes(attribute.Int("simon.round", s.round-1)))
	}
	s.setPhaseLocked(PhaseRoundTransitionDelay)
	s.scheduleLocked(s.cfg.RoundTransitionDelay, PhaseRoundTransitionDelay, s.beginPlaybackLocked)

	s.unlockAndDispatch()
	return true
}

// Reset cancels any pending timer or playback and returns to Idle.
func (s *Session) Reset() {
	s.mu.Lock()
	s.abortLocked("reset")
	s.unlockAndDispatch()
}

// Close resets the session and refuses further starts.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.abortLocked("closed")
	s.unlockAndDispatch()
}

func (s *Session) abortLocked(outcome string) {
	s.cancelPendingLocked()
	if s.phase != PhaseIdle {
		s.endSpanLocked(outcome, 0)
		s.logger.Event("SESSION_RESET", s.id, fmt.Sprintf("%s during %s at round %d", outcome, s.phase, s.round))
	}
	s.resetLocked()
}

func (s *Session) startLocked() {
	s.cancelPendingLocked()
	if s.phase != PhaseIdle {
		s.endSpanLocked("restarted", 0)
	}
	s.resetLocked()

	s.id = uuid.NewString()
	_, s.span = s.tracer.Start(context.Background(), "simon.session",
		trace.WithAttributes(attribute.String("simon.session_id", s.id)))

	first := s.generator.Next()
	s.sequence = append(s.sequence, first.ID)
	s.round = 1
	s.metrics.RecordSessionStart()
	s.logger.Event("SESSION_START", s.id, "first signal drawn")

	s.setPhaseLocked(PhaseAwaitingFirstRoundDelay)
	s.scheduleLocked(s.cfg.FirstRoundDelay, PhaseAwaitingFirstRoundDelay, s.beginPlaybackLocked)
}

// beginPlaybackLocked enters ShowingSequence and starts presenting the
// current sequence.
func (s *Session) beginPlaybackLocked() {
	s.setPhaseLocked(PhaseShowingSequence)

	sigs := make([]palette.Signal, 0, len(s.sequence))
	for _, id := range s.sequence {
		sig, _ := s.palette.Lookup(id)
		sigs = append(sigs, sig)
	}

	s.token++
	tok := s.token
	s.run = s.player.Play(sigs, func(ev playback.Event) {
		s.onPlayback(tok, ev)
	})
}

func (s *Session) onPlayback(tok uint64, ev playback.Event) {
	s.mu.Lock()
	if tok != s.token || s.phase != PhaseShowingSequence {
		s.metrics.RecordStaleTimer()
		s.unlockAndDispatch()
		return
	}

	switch ev.Kind {
	case playback.EventActivate:
		sig := ev.Signal
		s.setActiveLocked(&sig)
	case playback.EventDeactivate:
		s.setActiveLocked(nil)
	case playback.EventComplete:
		s.run = nil
		s.progress = 0
		s.setPhaseLocked(PhaseAwaitingInput)
	}
	s.unlockAndDispatch()
}

func (s *Session) gameOverLocked() {
	rounds := s.round
	s.setPhaseLocked(PhaseGameOver)

	s.ledger.Record(rounds, s.clock.Now())
	s.metrics.RecordGameOver(rounds)
	s.endSpanLocked("game_over", rounds)
	s.logger.Event("GAME_OVER", s.id, fmt.Sprintf("rounds reached %d", rounds))

	s.scheduleLocked(s.cfg.GameOverDelay, PhaseGameOver, func() {
		s.endSessionLocked(rounds)
	})
}

func (s *Session) endSessionLocked(rounds int) {
	s.outbox = append(s.outbox, Update{
		Kind:      UpdateSessionEnded,
		SessionID: s.id,
		Phase:     s.phase,
		Round:     rounds,
		Ended: &SessionEnded{
			RoundsReached: rounds,
			Attempts:      s.ledger.Snapshot(),
		},
	})
	s.resetLocked()

	if s.cfg.AutoRestart && !s.closed {
		s.startLocked()
	}
}

// scheduleLocked arms the session's single timer. fn runs under the lock,
// only if no transition or reset happened in between and the phase is
// still expect.
func (s *Session) scheduleLocked(d time.Duration, expect Phase, fn func()) {
	s.token++
	tok := s.token
	s.timer = s.clock.AfterFunc(d, func() {
		s.mu.Lock()
		if tok != s.token || s.phase != expect {
			s.metrics.RecordStaleTimer()
			s.unlockAndDispatch()
			return
		}
		s.timer = nil
		fn()
		s.unlockAndDispatch()
	})
}

// cancelPendingLocked invalidates the current token and stops the pending
// timer and playback, if any.
func (s *Session) cancelPendingLocked() {
	s.token++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.run != nil {
		s.run.Cancel()
		s.run = nil
	}
}

// resetLocked returns every session field to the Idle defaults.
func (s *Session) resetLocked() {
	s.setActiveLocked(nil)
	s.sequence = make([]string, 0)
	s.round = 0
	s.progress = 0
	s.setPhaseLocked(PhaseIdle)
	s.span = nil
	s.id = ""
}

func (s *Session) endSpanLocked(outcome string, rounds int) {
	if s.span == nil {
		return
	}
	s.span.SetAttributes(
		attribute.String("simon.outcome", outcome),
		attribute.Int("simon.rounds_reached", rounds),
	)
	s.span.End()
	s.span = nil
}

func (s *Session) setPhaseLocked(p Phase) {
	if s.phase == p {
		return
	}
	s.logger.Event("PHASE", s.id, fmt.Sprintf("%s -> %s (round %d)", s.phase, p, s.round))
	s.phase = p
	s.outbox = append(s.outbox, Update{
		Kind:      UpdatePhase,
		SessionID: s.id,
		Phase:     p,
		Round:     s.round,
	})
}

// setActiveLocked changes ActiveSignal; nil means none.
func (s *Session) setActiveLocked(sig *palette.Signal) {
	id := ""
	if sig != nil {
		id = sig.ID
	}
	if id == s.active {
		return
	}
	s.active = id
	s.outbox = append(s.outbox, Update{
		Kind:      UpdateSignal,
		SessionID: s.id,
		Phase:     s.phase,
		Round:     s.round,
		Signal:    sig,
	})
}

// unlockAndDispatch releases the state lock and delivers queued updates in
// order. Only one goroutine delivers at a time; a caller that finds delivery
// already running leaves its updates to that goroutine and returns.
func (s *Session) unlockAndDispatch() {
	if s.dispatching {
		s.mu.Unlock()
		return
	}
	s.dispatching = true

	for {
		out := s.outbox
		s.outbox = nil
		if len(out) == 0 {
			s.dispatching = false
			s.mu.Unlock()
			return
		}
		observers := make([]Observer, len(s.observers))
		copy(observers, s.observers)
		s.mu.Unlock()

		for _, u := range out {
			for _, o := range observers {
				o.OnUpdate(u)
			}
		}
		s.mu.Lock()
	}
}
