package palette

import "fmt"

// Scripted replays a fixed list of signal IDs, wrapping around at the end.
// Used to force a known sequence in tests and demos.
type Scripted struct {
	signals []Signal
	next    int
}

// NewScripted builds a generator that yields ids in order.
func NewScripted(p *Palette, ids ...string) (*Scripted, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("scripted generator needs at least one id")
	}
	s := &Scripted{signals: make([]Signal, 0, len(ids))}
	for _, id := range ids {
		sig, ok := p.Lookup(id)
		if !ok {
			return nil, fmt.Errorf("unknown signal id %q", id)
		}
		s.signals = append(s.signals, sig)
	}
	return s, nil
}

// Next returns the next scripted signal.
func (s *Scripted) Next() Signal {
	sig := s.signals[s.next%len(s.signals)]
	s.next++
	return sig
}
