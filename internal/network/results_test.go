package network

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MRamiBalles/SimonSays/internal/engine"
	"github.com/MRamiBalles/SimonSays/internal/ledger"
	"github.com/MRamiBalles/SimonSays/internal/palette"
	"github.com/MRamiBalles/SimonSays/internal/platform/logger"
)

func seededLedger(t *testing.T, rounds ...int) *ledger.Ledger {
	t.Helper()
	l := ledger.New(nil, logger.Discard())
	start := time.Date(2024, 2, 2, 10, 0, 0, 0, time.UTC)
	for i, r := range rounds {
		if err := l.Append(ledger.AttemptRecord{Attempt: i + 1, RoundsReached: r, Timestamp: start.Add(time.Duration(i) * time.Minute)}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	return l
}

func serve(rh *ResultsHandler, method, path string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	rh.RegisterRoutes(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestGetAttempts(t *testing.T) {
	rh := NewResultsHandler(seededLedger(t, 2, 4, 6), palette.Default(), nil, nil)

	rec := serve(rh, http.MethodGet, "/api/attempts")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body AttemptsResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Summary.Attempts != 3 || body.Summary.Best != 6 || body.Summary.AverageRounded != 4 {
		t.Errorf("unexpected summary %+v", body.Summary)
	}
	if len(body.Attempts) != 3 || body.Attempts[2].RoundsReached != 6 {
		t.Errorf("unexpected attempts %+v", body.Attempts)
	}
	if len(body.Trend) != 3 || body.Trend[2].Accuracy != 40 {
		t.Errorf("unexpected trend %+v", body.Trend)
	}
	if len(body.Progress) != 3 || body.Progress[1].RoundsReached != 4 {
		t.Errorf("unexpected progress %+v", body.Progress)
	}
}

func TestDeleteAttempts(t *testing.T) {
	l := seededLedger(t, 3)
	rh := NewResultsHandler(l, palette.Default(), nil, nil)

	rec := serve(rh, http.MethodDelete, "/api/attempts")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if l.Len() != 0 {
		t.Fatalf("expected cleared ledger, got %d", l.Len())
	}

	// Ordinals restart after a clear.
	if err := l.Append(ledger.AttemptRecord{Attempt: 1, RoundsReached: 1, Timestamp: time.Now()}); err != nil {
		t.Fatalf("append after clear: %v", err)
	}
}

func TestLastAttempt(t *testing.T) {
	empty := NewResultsHandler(seededLedger(t), palette.Default(), nil, nil)
	if rec := serve(empty, http.MethodGet, "/api/attempts/last"); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for empty history, got %d", rec.Code)
	}

	rh := NewResultsHandler(seededLedger(t, 5, 7), palette.Default(), nil, nil)
	rec := serve(rh, http.MethodGet, "/api/attempts/last")
	var body LastResultResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Attempt != 2 || body.RoundsReached != 7 {
		t.Fatalf("unexpected last result %+v", body)
	}
}

func TestPaletteAndState(t *testing.T) {
	ctrl := &fakeController{state: engine.State{Phase: engine.PhaseAwaitingInput, Round: 3, Sequence: []string{"red", "red", "blue"}}}
	rh := NewResultsHandler(seededLedger(t), palette.Default(), ctrl, nil)

	rec := serve(rh, http.MethodGet, "/api/palette")
	var pal struct {
		Signals []palette.Signal `json:"signals"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&pal); err != nil {
		t.Fatalf("decode palette: %v", err)
	}
	if len(pal.Signals) != 4 || pal.Signals[0].ID != "red" || pal.Signals[3].ToneFrequencyHz != 440 {
		t.Fatalf("unexpected palette %+v", pal.Signals)
	}

	rec = serve(rh, http.MethodGet, "/api/state")
	var st engine.State
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if st.Phase != engine.PhaseAwaitingInput || st.Round != 3 || len(st.Sequence) != 3 {
		t.Fatalf("unexpected state %+v", st)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	rh := NewResultsHandler(seededLedger(t), palette.Default(), nil, nil)
	for _, path := range []string{"/api/attempts", "/api/attempts/last", "/api/palette", "/api/state"} {
		if rec := serve(rh, http.MethodPost, path); rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s: expected 405, got %d", path, rec.Code)
		}
	}
	if rec := serve(rh, http.MethodGet, "/api/state"); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 without a session, got %d", rec.Code)
	}
}
