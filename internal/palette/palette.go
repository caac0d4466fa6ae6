// Package palette defines the fixed set of signals a session draws from and
// the generators that pick the next signal of a sequence.
package palette

import (
	crand "crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand"
)

var (
	// ErrTooFewSignals is returned when a palette would hold fewer than two signals.
	ErrTooFewSignals = errors.New("palette needs at least two signals")
	// ErrDuplicateID is returned when two signals share an identifier.
	ErrDuplicateID = errors.New("duplicate signal id")
)

// Signal is one playable unit: a button the player sees and the tone it plays.
type Signal struct {
	ID              string  `json:"id"`
	ToneFrequencyHz float64 `json:"tone_hz"`
}

// Palette is an ordered, immutable list of signals with unique IDs.
type Palette struct {
	signals []Signal
	index   map[string]int
}

// New builds a palette. Order is preserved.
func New(signals ...Signal) (*Palette, error) {
	if len(signals) < 2 {
		return nil, ErrTooFewSignals
	}

	p := &Palette{
		signals: make([]Signal, len(signals)),
		index:   make(map[string]int, len(signals)),
	}
	for i, s := range signals {
		if _, dup := p.index[s.ID]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateID, s.ID)
		}
		p.index[s.ID] = i
		p.signals[i] = s
	}
	return p, nil
}

// Default returns the four-button palette of the classic game.
func Default() *Palette {
	p, _ := New(
		Signal{ID: "red", ToneFrequencyHz: 329.63},
		Signal{ID: "blue", ToneFrequencyHz: 261.63},
		Signal{ID: "green", ToneFrequencyHz: 392.00},
		Signal{ID: "yellow", ToneFrequencyHz: 440.00},
	)
	return p
}

// Len returns the number of signals.
func (p *Palette) Len() int {
	return len(p.signals)
}

// At returns the i-th signal.
func (p *Palette) At(i int) Signal {
	return p.signals[i]
}

// Signals returns a copy of the ordered signal list.
func (p *Palette) Signals() []Signal {
	out := make([]Signal, len(p.signals))
	copy(out, p.signals)
	return out
}

// Lookup finds a signal by ID.
func (p *Palette) Lookup(id string) (Signal, bool) {
	i, ok := p.index[id]
	if !ok {
		return Signal{}, false
	}
	return p.signals[i], true
}

// Generator produces the next signal to append to a sequence.
type Generator interface {
	Next() Signal
}

// Random draws uniformly from a palette with replacement.
//
// Random is deterministic with respect to its seed: two generators built
// with the same palette and seed yield the same signals in the same order.
// It is not safe for concurrent use; the session serializes calls.
type Random struct {
	palette *Palette
	rng     *rand.Rand
}

// NewRandom creates a seeded uniform generator.
func NewRandom(p *Palette, seed int64) *Random {
	return &Random{
		palette: p,
		rng:     rand.New(rand.NewSource(seed)),
	}
}

// Next returns a uniformly chosen signal.
func (r *Random) Next() Signal {
	return r.palette.At(r.rng.Intn(r.palette.Len()))
}

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}
