package network

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/MRamiBalles/SimonSays/internal/ledger"
	"github.com/MRamiBalles/SimonSays/internal/palette"
	"github.com/MRamiBalles/SimonSays/internal/platform/logger"
	"github.com/MRamiBalles/SimonSays/internal/stats"
)

// ResultsHandler serves the attempt history and the data behind the results
// and stats views.
type ResultsHandler struct {
	ledger  *ledger.Ledger
	palette *palette.Palette
	state   func() any
	logger  *logger.Logger
	now     func() time.Time
}

// NewResultsHandler creates the HTTP API over the ledger. ctrl may be nil.
func NewResultsHandler(l *ledger.Ledger, p *palette.Palette, ctrl Controller, log *logger.Logger) *ResultsHandler {
	if log == nil {
		log = logger.Discard()
	}
	rh := &ResultsHandler{
		ledger:  l,
		palette: p,
		logger:  log,
		now:     time.Now,
	}
	if ctrl != nil {
		rh.state = func() any { return ctrl.State() }
	}
	return rh
}

// AttemptsResponse is the body of GET /api/attempts.
type AttemptsResponse struct {
	GeneratedAt string                 `json:"generated_at"`
	Summary     stats.Summary          `json:"summary"`
	Progress    []stats.ProgressPoint  `json:"progress"`
	Trend       []stats.TrendPoint     `json:"trend"`
	Attempts    []ledger.AttemptRecord `json:"attempts"`
}

// LastResultResponse is the body of GET /api/attempts/last.
type LastResultResponse struct {
	Attempt       int `json:"attempt"`
	RoundsReached int `json:"round"`
}

// HandleAttempts returns the history with its summary, or clears it.
// GET|DELETE /api/attempts
func (rh *ResultsHandler) HandleAttempts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		records := rh.ledger.Snapshot()
		rh.writeJSON(w, http.StatusOK, AttemptsResponse{
			GeneratedAt: rh.now().Format(time.RFC3339),
			Summary:     stats.Summarize(records),
			Progress:    stats.Progress(records),
			Trend:       stats.Trend(records, stats.PerfectRounds),
			Attempts:    records,
		})
	case http.MethodDelete:
		if err := rh.ledger.Clear(r.Context()); err != nil {
			rh.logger.Errorf("Failed to clear attempt history: %v", err)
			rh.jsonError(w, "Failed to clear history", http.StatusInternalServerError)
			return
		}
		rh.logger.Event("HISTORY_CLEARED", "API", "attempt history cleared")
		w.WriteHeader(http.StatusNoContent)
	default:
		rh.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleLast returns the most recent attempt, as shown on the results view.
// GET /api/attempts/last
func (rh *ResultsHandler) HandleLast(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		rh.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	summary := stats.Summarize(rh.ledger.Snapshot())
	if summary.Last == nil {
		rh.jsonError(w, "No attempts yet", http.StatusNotFound)
		return
	}
	rh.writeJSON(w, http.StatusOK, LastResultResponse{
		Attempt:       summary.Last.Attempt,
		RoundsReached: summary.Last.RoundsReached,
	})
}

// HandlePalette lists the signals and their tones.
// GET /api/palette
func (rh *ResultsHandler) HandlePalette(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		rh.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rh.writeJSON(w, http.StatusOK, map[string]any{"signals": rh.palette.Signals()})
}

// HandleState returns the live session snapshot.
// GET /api/state
func (rh *ResultsHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		rh.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if rh.state == nil {
		rh.jsonError(w, "No session", http.StatusNotFound)
		return
	}
	rh.writeJSON(w, http.StatusOK, rh.state())
}

// RegisterRoutes sets up the results API routes.
func (rh *ResultsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/attempts", rh.HandleAttempts)
	mux.HandleFunc("/api/attempts/last", rh.HandleLast)
	mux.HandleFunc("/api/palette", rh.HandlePalette)
	mux.HandleFunc("/api/state", rh.HandleState)
}

func (rh *ResultsHandler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		rh.logger.Warnf("Failed to write response: %v", err)
	}
}

// jsonError sends an error response.
func (rh *ResultsHandler) jsonError(w http.ResponseWriter, message string, status int) {
	rh.writeJSON(w, status, map[string]string{"error": message})
}
