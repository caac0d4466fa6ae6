package main

import (
	"github.com/MRamiBalles/SimonSays/internal/engine"
	"github.com/MRamiBalles/SimonSays/internal/network"
)

// Result is one finished session as seen by the bot.
type Result struct {
	Session       int `json:"session"`
	RoundsReached int `json:"rounds_reached"`
	Attempt       int `json:"attempt"`
}

// Bot watches the playback, repeats it and misses on purpose at FailAt.
type Bot struct {
	FailAt   int
	Sessions int
	Signals  []string

	recording []string
	phase     engine.Phase
	started   int
	results   []Result
}

// NewBot returns a bot that plays sessions games over the given signal IDs.
func NewBot(signals []string, failAt, sessions int) *Bot {
	return &Bot{FailAt: failAt, Sessions: sessions, Signals: signals}
}

// Done reports whether every planned session has ended.
func (b *Bot) Done() bool {
	return len(b.results) >= b.Sessions
}

// Results returns the finished sessions in order.
func (b *Bot) Results() []Result {
	return append([]Result(nil), b.results...)
}

// Handle consumes one server message and returns the commands to send back.
func (b *Bot) Handle(msg network.Message) []network.Command {
	switch msg.Type {
	case network.MessageState:
		b.phase = msg.Phase
		if msg.Phase == engine.PhaseIdle {
			return b.start()
		}
	case string(engine.UpdatePhase):
		b.phase = msg.Phase
		switch msg.Phase {
		case engine.PhaseShowingSequence:
			b.recording = b.recording[:0]
		case engine.PhaseAwaitingInput:
			return b.answer(msg.Round)
		}
	case string(engine.UpdateSignal):
		if msg.Phase == engine.PhaseShowingSequence && msg.ActiveSignal != "" {
			b.recording = append(b.recording, msg.ActiveSignal)
		}
	case string(engine.UpdateSessionEnded):
		res := Result{Session: len(b.results) + 1, RoundsReached: msg.RoundsReached}
		if n := len(msg.Attempts); n > 0 {
			res.Attempt = msg.Attempts[n-1].Attempt
		}
		b.results = append(b.results, res)
		return b.start()
	}
	return nil
}

func (b *Bot) start() []network.Command {
	if b.started >= b.Sessions {
		return nil
	}
	b.started++
	return []network.Command{{Type: network.CommandStart}}
}

// answer replays the recording, or misses its first element when the
// round is the one to fail at.
func (b *Bot) answer(round int) []network.Command {
	if len(b.recording) == 0 {
		return nil
	}
	if b.FailAt > 0 && round >= b.FailAt {
		return []network.Command{{Type: network.CommandPress, Signal: b.other(b.recording[0])}}
	}
	cmds := make([]network.Command, 0, len(b.recording))
	for _, id := range b.recording {
		cmds = append(cmds, network.Command{Type: network.CommandPress, Signal: id})
	}
	return cmds
}

func (b *Bot) other(id string) string {
	for _, s := range b.Signals {
		if s != id {
			return s
		}
	}
	return id
}
