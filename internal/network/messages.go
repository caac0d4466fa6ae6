package network

import (
	"github.com/MRamiBalles/SimonSays/internal/engine"
	"github.com/MRamiBalles/SimonSays/internal/ledger"
)

// Command types accepted from a websocket client.
const (
	CommandStart = "start"
	CommandPress = "press"
	CommandReset = "reset"
	CommandState = "state"
)

// Message types sent to websocket clients besides the engine update kinds.
const (
	MessageState = "state"
	MessageError = "error"
)

// Command is an incoming request from the board UI.
type Command struct {
	Type   string `json:"type"`
	Signal string `json:"signal,omitempty"`
}

// Message is an outgoing update. Type is one of the engine update kinds,
// "state" or "error".
type Message struct {
	Type          string                 `json:"type"`
	SessionID     string                 `json:"session_id,omitempty"`
	Phase         engine.Phase           `json:"phase,omitempty"`
	Round         int                    `json:"round"`
	ActiveSignal  string                 `json:"active_signal,omitempty"`
	ToneHz        float64                `json:"tone_hz,omitempty"`
	RoundsReached int                    `json:"rounds_reached,omitempty"`
	Attempts      []ledger.AttemptRecord `json:"attempts,omitempty"`
	Error         string                 `json:"error,omitempty"`
}

// FromUpdate converts an engine update to its wire form.
func FromUpdate(u engine.Update) Message {
	m := Message{
		Type:      string(u.Kind),
		SessionID: u.SessionID,
		Phase:     u.Phase,
		Round:     u.Round,
	}
	if u.Signal != nil {
		m.ActiveSignal = u.Signal.ID
		m.ToneHz = u.Signal.ToneFrequencyHz
	}
	if u.Ended != nil {
		m.RoundsReached = u.Ended.RoundsReached
		m.Attempts = u.Ended.Attempts
	}
	return m
}

// FromState converts a session snapshot to a "state" message.
func FromState(st engine.State) Message {
	return Message{
		Type:         MessageState,
		SessionID:    st.SessionID,
		Phase:        st.Phase,
		Round:        st.Round,
		ActiveSignal: st.ActiveSignal,
	}
}
