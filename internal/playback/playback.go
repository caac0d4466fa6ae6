// Package playback presents a sequence of signals to the player on a fixed
// timing protocol, independent of how the signals are rendered or heard.
package playback

import (
	"iter"
	"sync"
	"time"

	"github.com/MRamiBalles/SimonSays/internal/palette"
	"github.com/MRamiBalles/SimonSays/internal/platform/clock"
)

// EventKind is the category of a playback event.
type EventKind string

const (
	EventActivate   EventKind = "ACTIVATE"
	EventDeactivate EventKind = "DEACTIVATE"
	EventComplete   EventKind = "COMPLETE"
)

// Event is emitted while a sequence plays. Signal is set for Activate and
// Deactivate and is the zero value for Complete.
type Event struct {
	Kind   EventKind
	Signal palette.Signal
	Index  int
}

// Timing holds the playback durations.
type Timing struct {
	On        time.Duration // how long each signal stays lit
	Gap       time.Duration // dark interval between consecutive signals
	TurnDelay time.Duration // wait after the last signal before the player's turn
}

// DefaultTiming matches the classic game: 400ms on, 400ms off, 1s before input.
func DefaultTiming() Timing {
	return Timing{
		On:        400 * time.Millisecond,
		Gap:       400 * time.Millisecond,
		TurnDelay: 1000 * time.Millisecond,
	}
}

// Step is an event and how long to wait after the previous step before
// emitting it.
type Step struct {
	After time.Duration
	Event Event
}

// Steps lays out the timed events for seq. The sequence is lazy and finite;
// the final step is always EventComplete.
func Steps(seq []palette.Signal, t Timing) iter.Seq[Step] {
	return func(yield func(Step) bool) {
		for i, sig := range seq {
			var wait time.Duration
			if i > 0 {
				wait = t.Gap
			}
			if !yield(Step{After: wait, Event: Event{Kind: EventActivate, Signal: sig, Index: i}}) {
				return
			}
			if !yield(Step{After: t.On, Event: Event{Kind: EventDeactivate, Signal: sig, Index: i}}) {
				return
			}
		}
		yield(Step{After: t.TurnDelay, Event: Event{Kind: EventComplete, Index: len(seq)}})
	}
}

// Duration returns the total wall time a playback of n signals takes.
func (t Timing) Duration(n int) time.Duration {
	if n == 0 {
		return t.TurnDelay
	}
	return time.Duration(n)*t.On + time.Duration(n-1)*t.Gap + t.TurnDelay
}

// Player drives Steps on a clock.
type Player struct {
	clock  clock.Clock
	timing Timing
}

// NewPlayer creates a player using the given clock and timing.
func NewPlayer(c clock.Clock, t Timing) *Player {
	return &Player{clock: c, timing: t}
}

// Timing returns the player's timing.
func (p *Player) Timing() Timing {
	return p.timing
}

// Play starts presenting seq. emit is called once per event, from the
// clock's callback goroutine, never while the run's lock is held. Every
// event, including the first Activate, is delivered through the clock, and
// emit may call Cancel.
func (p *Player) Play(seq []palette.Signal, emit func(Event)) *Run {
	next, stop := iter.Pull(Steps(seq, p.timing))
	r := &Run{
		clock: p.clock,
		emit:  emit,
		next:  next,
		stop:  stop,
	}
	r.mu.Lock()
	r.scheduleLocked()
	r.mu.Unlock()
	return r
}

// Run is a single in-flight playback. It cannot be restarted.
type Run struct {
	mu        sync.Mutex
	clock     clock.Clock
	emit      func(Event)
	next      func() (Step, bool)
	stop      func()
	timer     clock.Timer
	pending   Event
	cancelled bool
	done      bool
}

// scheduleLocked pulls the next step and arms a timer for it.
func (r *Run) scheduleLocked() {
	step, ok := r.next()
	if !ok {
		r.finishLocked()
		return
	}
	r.pending = step.Event
	r.timer = r.clock.AfterFunc(step.After, r.fire)
}

func (r *Run) fire() {
	r.mu.Lock()
	if r.cancelled || r.done {
		r.mu.Unlock()
		return
	}
	ev := r.pending
	r.timer = nil
	r.mu.Unlock()

	r.emit(ev)

	// The next step is armed only after this one was delivered, so a zero
	// delay cannot overtake it.
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancelled {
		return
	}
	if ev.Kind == EventComplete {
		r.finishLocked()
		return
	}
	r.scheduleLocked()
}

func (r *Run) finishLocked() {
	r.done = true
	r.timer = nil
	r.stop()
}

// Cancel stops the run. No event is emitted after Cancel returns, unless
// one was already being delivered concurrently.
func (r *Run) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancelled || r.done {
		return
	}
	r.cancelled = true
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.stop()
}

// Done reports whether the run emitted EventComplete.
func (r *Run) Done() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done && !r.cancelled
}
