// Package config loads the server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/MRamiBalles/SimonSays/internal/engine"
	"github.com/MRamiBalles/SimonSays/internal/playback"
)

// Server holds everything cmd/simon-server needs at startup.
type Server struct {
	Addr      string `env:"SIMON_ADDR"       envDefault:":8080"`
	DBPath    string `env:"SIMON_DB_PATH"    envDefault:"./data/simon.db"`
	LedgerKey string `env:"SIMON_LEDGER_KEY" envDefault:"simon.gameStats"`
	// Seed fixes the signal generator; 0 draws a fresh seed per process.
	Seed        int64 `env:"SIMON_SEED"         envDefault:"0"`
	AutoRestart bool  `env:"SIMON_AUTO_RESTART" envDefault:"false"`

	FirstRoundDelay      time.Duration `env:"SIMON_FIRST_ROUND_DELAY"      envDefault:"2s"`
	RoundTransitionDelay time.Duration `env:"SIMON_ROUND_TRANSITION_DELAY" envDefault:"2s"`
	GameOverDelay        time.Duration `env:"SIMON_GAME_OVER_DELAY"        envDefault:"800ms"`
	SignalOn             time.Duration `env:"SIMON_SIGNAL_ON"              envDefault:"400ms"`
	SignalGap            time.Duration `env:"SIMON_SIGNAL_GAP"             envDefault:"400ms"`
	TurnDelay            time.Duration `env:"SIMON_TURN_DELAY"             envDefault:"1s"`

	Tuning  Tuning
	Tracing Tracing
}

// Tracing controls the OTLP trace exporter.
type Tracing struct {
	Endpoint string `env:"SIMON_OTEL_ENDPOINT"`
	Enabled  bool   `env:"SIMON_OTEL_ENABLED" envDefault:"true"`
}

// OTLPEndpoint returns the exporter endpoint, or "" when tracing is off.
func (t Tracing) OTLPEndpoint() string {
	if !t.Enabled {
		return ""
	}
	return t.Endpoint
}

// Tuning sizes the websocket buffers and input rate limits.
type Tuning struct {
	BroadcastBuffer      int `env:"SIMON_BROADCAST_BUFFER"   envDefault:"256"`
	ClientSendBuffer     int `env:"SIMON_SEND_BUFFER"        envDefault:"64"`
	MaxMessagesPerSecond int `env:"SIMON_MAX_MESSAGES_PER_S" envDefault:"20"`
	MaxClients           int `env:"SIMON_MAX_CLIENTS"        envDefault:"32"`
}

// LowResourceTuning returns minimal settings for development.
func LowResourceTuning() Tuning {
	return Tuning{
		BroadcastBuffer:      16,
		ClientSendBuffer:     8,
		MaxMessagesPerSecond: 10,
		MaxClients:           4,
	}
}

// Load parses the environment and validates the result.
func Load() (Server, error) {
	var cfg Server
	if err := ParseEnv(&cfg); err != nil {
		return Server{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c Server) Validate() error {
	var errs []error
	durations := []struct {
		name string
		d    time.Duration
	}{
		{"SIMON_FIRST_ROUND_DELAY", c.FirstRoundDelay},
		{"SIMON_ROUND_TRANSITION_DELAY", c.RoundTransitionDelay},
		{"SIMON_GAME_OVER_DELAY", c.GameOverDelay},
		{"SIMON_SIGNAL_ON", c.SignalOn},
		{"SIMON_SIGNAL_GAP", c.SignalGap},
		{"SIMON_TURN_DELAY", c.TurnDelay},
	}
	for _, d := range durations {
		if d.d < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative, got %s", d.name, d.d))
		}
	}
	if c.SignalOn == 0 {
		errs = append(errs, errors.New("SIMON_SIGNAL_ON must be positive"))
	}
	if c.Tuning.ClientSendBuffer < 1 || c.Tuning.BroadcastBuffer < 1 {
		errs = append(errs, errors.New("websocket buffers must hold at least one message"))
	}
	if c.LedgerKey == "" {
		errs = append(errs, errors.New("SIMON_LEDGER_KEY must not be empty"))
	}
	return errors.Join(errs...)
}

// Engine returns the session configuration.
func (c Server) Engine() engine.Config {
	return engine.Config{
		FirstRoundDelay:      c.FirstRoundDelay,
		RoundTransitionDelay: c.RoundTransitionDelay,
		GameOverDelay:        c.GameOverDelay,
		Playback: playback.Timing{
			On:        c.SignalOn,
			Gap:       c.SignalGap,
			TurnDelay: c.TurnDelay,
		},
		AutoRestart: c.AutoRestart,
	}
}
