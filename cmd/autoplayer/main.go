// Package main - autoplayer
// Connects to a Simon server, watches each playback and repeats it,
// failing on purpose at a chosen round. Useful as a smoke test and as a
// source of attempt history.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MRamiBalles/SimonSays/internal/engine"
	"github.com/MRamiBalles/SimonSays/internal/network"
	"github.com/MRamiBalles/SimonSays/internal/palette"
	"github.com/MRamiBalles/SimonSays/internal/platform/config"
	"github.com/MRamiBalles/SimonSays/internal/platform/logger"
)

func main() {
	serverURL := flag.String("url", "ws://localhost:8080/ws", "WebSocket server URL")
	failAt := flag.Int("fail-at", 5, "round at which to press a wrong signal (0 = never)")
	sessions := flag.Int("sessions", 3, "number of sessions to play")
	timeout := flag.Duration("timeout", 5*time.Minute, "give up after this long")
	output := flag.String("out", "", "write results as JSON to this file")
	flag.Parse()

	log := logger.NewLogger()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	var ids []string
	for _, s := range palette.Default().Signals() {
		ids = append(ids, s.ID)
	}
	bot := NewBot(ids, *failAt, *sessions)

	if err := play(ctx, *serverURL, bot, log); err != nil {
		config.Exitf("autoplayer: %v", err)
	}

	for _, r := range bot.Results() {
		fmt.Printf("session %d: attempt #%d reached round %d\n", r.Session, r.Attempt, r.RoundsReached)
	}
	if *output != "" {
		data, _ := json.MarshalIndent(bot.Results(), "", "  ")
		if err := os.WriteFile(*output, data, 0644); err != nil {
			config.Exitf("autoplayer: write results: %v", err)
		}
	}
}

func play(ctx context.Context, serverURL string, bot *Bot, log *logger.Logger) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, serverURL, nil)
	if err != nil {
		return fmt.Errorf("connect %s: %w", serverURL, err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for !bot.Done() {
		var msg network.Message
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read: %w", err)
		}
		if msg.Type == network.MessageError {
			log.Warnf("Server error: %s", msg.Error)
		}
		for _, cmd := range bot.Handle(msg) {
			if err := conn.WriteJSON(cmd); err != nil {
				return fmt.Errorf("write: %w", err)
			}
		}
		if msg.Type == string(engine.UpdateSessionEnded) {
			log.Infof("Session ended at round %d", msg.RoundsReached)
		}
	}
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return nil
}
