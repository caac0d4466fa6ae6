// Package metrics provides observability for the game server.
package metrics

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Collector gathers counters for sessions, input and persistence.
type Collector struct {
	// Session metrics
	SessionsStarted int64
	SessionsEnded   int64
	RoundsCleared   int64
	BestRound       int64
	StaleTimers     int64

	// Input metrics
	InputsAccepted int64
	InputsRejected int64

	// Ledger metrics
	LedgerWrites      int64
	LedgerWriteLatSum int64 // nanoseconds
	LedgerWriteLatMax int64
	LedgerWriteErrors int64

	// WebSocket metrics
	WSConnectionsActive int64
	WSMessagesIn        int64
	WSMessagesOut       int64
	WSErrors            int64

	// System
	StartTime    time.Time
	LastGameOver time.Time
	mu           sync.RWMutex
}

// Global collector instance
var collector = NewCollector()

// Get returns the global collector.
func Get() *Collector {
	return collector
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{StartTime: time.Now()}
}

// RecordSessionStart records a new session.
func (c *Collector) RecordSessionStart() {
	atomic.AddInt64(&c.SessionsStarted, 1)
}

// RecordRoundCleared records a fully reproduced round.
func (c *Collector) RecordRoundCleared() {
	atomic.AddInt64(&c.RoundsCleared, 1)
}

// RecordGameOver records a finished session and the round it reached.
func (c *Collector) RecordGameOver(roundsReached int) {
	atomic.AddInt64(&c.SessionsEnded, 1)

	// Update max (non-atomic but acceptable for metrics)
	if int64(roundsReached) > atomic.LoadInt64(&c.BestRound) {
		atomic.StoreInt64(&c.BestRound, int64(roundsReached))
	}

	c.mu.Lock()
	c.LastGameOver = time.Now()
	c.mu.Unlock()
}

// RecordStaleTimer records a timer that fired after its state was superseded.
func (c *Collector) RecordStaleTimer() {
	atomic.AddInt64(&c.StaleTimers, 1)
}

// RecordInput records a player input and whether it was accepted.
func (c *Collector) RecordInput(accepted bool) {
	if accepted {
		atomic.AddInt64(&c.InputsAccepted, 1)
	} else {
		atomic.AddInt64(&c.InputsRejected, 1)
	}
}

// RecordLedgerWrite records a ledger save to the persister.
func (c *Collector) RecordLedgerWrite(latency time.Duration, err error) {
	atomic.AddInt64(&c.LedgerWrites, 1)
	atomic.AddInt64(&c.LedgerWriteLatSum, int64(latency))

	if int64(latency) > atomic.LoadInt64(&c.LedgerWriteLatMax) {
		atomic.StoreInt64(&c.LedgerWriteLatMax, int64(latency))
	}

	if err != nil {
		atomic.AddInt64(&c.LedgerWriteErrors, 1)
	}
}

// RecordWSConnection records WebSocket connection changes.
func (c *Collector) RecordWSConnection(delta int64) {
	atomic.AddInt64(&c.WSConnectionsActive, delta)
}

// RecordWSMessage records WebSocket messages.
func (c *Collector) RecordWSMessage(incoming bool) {
	if incoming {
		atomic.AddInt64(&c.WSMessagesIn, 1)
	} else {
		atomic.AddInt64(&c.WSMessagesOut, 1)
	}
}

// RecordWSError records a WebSocket error.
func (c *Collector) RecordWSError() {
	atomic.AddInt64(&c.WSErrors, 1)
}

// Snapshot returns current metrics as a map.
func (c *Collector) Snapshot() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	writes := atomic.LoadInt64(&c.LedgerWrites)
	var writeAvg float64
	if writes > 0 {
		writeAvg = float64(atomic.LoadInt64(&c.LedgerWriteLatSum)) / float64(writes) / 1e6 // ms
	}

	lastGameOver := ""
	if !c.LastGameOver.IsZero() {
		lastGameOver = c.LastGameOver.Format(time.RFC3339)
	}

	return map[string]interface{}{
		"uptime_seconds": time.Since(c.StartTime).Seconds(),

		"sessions": map[string]interface{}{
			"started":        atomic.LoadInt64(&c.SessionsStarted),
			"ended":          atomic.LoadInt64(&c.SessionsEnded),
			"rounds_cleared": atomic.LoadInt64(&c.RoundsCleared),
			"best_round":     atomic.LoadInt64(&c.BestRound),
			"stale_timers":   atomic.LoadInt64(&c.StaleTimers),
			"last_game_over": lastGameOver,
		},

		"input": map[string]interface{}{
			"accepted": atomic.LoadInt64(&c.InputsAccepted),
			"rejected": atomic.LoadInt64(&c.InputsRejected),
		},

		"ledger": map[string]interface{}{
			"writes":           writes,
			"avg_write_lat_ms": writeAvg,
			"max_write_lat_ms": float64(atomic.LoadInt64(&c.LedgerWriteLatMax)) / 1e6,
			"errors":           atomic.LoadInt64(&c.LedgerWriteErrors),
		},

		"websocket": map[string]interface{}{
			"active_connections": atomic.LoadInt64(&c.WSConnectionsActive),
			"messages_in":        atomic.LoadInt64(&c.WSMessagesIn),
			"messages_out":       atomic.LoadInt64(&c.WSMessagesOut),
			"errors":             atomic.LoadInt64(&c.WSErrors),
		},
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (c *Collector) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")

		json.NewEncoder(w).Encode(c.Snapshot())
	}
}

// PrometheusHandler returns metrics in Prometheus text format.
func (c *Collector) PrometheusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		// Session metrics
		fmt.Fprintf(w, "# HELP simon_sessions_started Total sessions started\n")
		fmt.Fprintf(w, "# TYPE simon_sessions_started counter\n")
		fmt.Fprintf(w, "simon_sessions_started %d\n\n", atomic.LoadInt64(&c.SessionsStarted))

		fmt.Fprintf(w, "# HELP simon_sessions_ended Total sessions that reached game over\n")
		fmt.Fprintf(w, "# TYPE simon_sessions_ended counter\n")
		fmt.Fprintf(w, "simon_sessions_ended %d\n\n", atomic.LoadInt64(&c.SessionsEnded))

		fmt.Fprintf(w, "# HELP simon_rounds_cleared Total rounds reproduced correctly\n")
		fmt.Fprintf(w, "# TYPE simon_rounds_cleared counter\n")
		fmt.Fprintf(w, "simon_rounds_cleared %d\n\n", atomic.LoadInt64(&c.RoundsCleared))

		fmt.Fprintf(w, "# HELP simon_best_round Highest round reached since start\n")
		fmt.Fprintf(w, "# TYPE simon_best_round gauge\n")
		fmt.Fprintf(w, "simon_best_round %d\n\n", atomic.LoadInt64(&c.BestRound))

		// Input metrics
		fmt.Fprintf(w, "# HELP simon_inputs_total Player inputs by outcome\n")
		fmt.Fprintf(w, "# TYPE simon_inputs_total counter\n")
		fmt.Fprintf(w, "simon_inputs_total{outcome=\"accepted\"} %d\n", atomic.LoadInt64(&c.InputsAccepted))
		fmt.Fprintf(w, "simon_inputs_total{outcome=\"rejected\"} %d\n\n", atomic.LoadInt64(&c.InputsRejected))

		// Ledger metrics
		fmt.Fprintf(w, "# HELP simon_ledger_writes Total ledger saves\n")
		fmt.Fprintf(w, "# TYPE simon_ledger_writes counter\n")
		fmt.Fprintf(w, "simon_ledger_writes %d\n\n", atomic.LoadInt64(&c.LedgerWrites))

		fmt.Fprintf(w, "# HELP simon_ledger_write_errors Total failed ledger saves\n")
		fmt.Fprintf(w, "# TYPE simon_ledger_write_errors counter\n")
		fmt.Fprintf(w, "simon_ledger_write_errors %d\n\n", atomic.LoadInt64(&c.LedgerWriteErrors))

		// WebSocket metrics
		fmt.Fprintf(w, "# HELP simon_ws_connections Active WebSocket connections\n")
		fmt.Fprintf(w, "# TYPE simon_ws_connections gauge\n")
		fmt.Fprintf(w, "simon_ws_connections %d\n\n", atomic.LoadInt64(&c.WSConnectionsActive))

		fmt.Fprintf(w, "# HELP simon_ws_messages_total Total WebSocket messages\n")
		fmt.Fprintf(w, "# TYPE simon_ws_messages_total counter\n")
		fmt.Fprintf(w, "simon_ws_messages_total{direction=\"in\"} %d\n", atomic.LoadInt64(&c.WSMessagesIn))
		fmt.Fprintf(w, "simon_ws_messages_total{direction=\"out\"} %d\n", atomic.LoadInt64(&c.WSMessagesOut))
	}
}
