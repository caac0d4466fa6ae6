// Package stats derives the results-view figures from a ledger snapshot:
// best round, average round, the per-attempt progress series and the
// running performance trend.
package stats

import (
	"math"

	"github.com/MRamiBalles/SimonSays/internal/ledger"
)

// PerfectRounds is the round count treated as 100% performance.
const PerfectRounds = 10

// Summary holds aggregate figures over every attempt.
type Summary struct {
	Attempts       int                   `json:"attempts"`
	Best           int                   `json:"best"`
	Average        float64               `json:"average"`
	AverageRounded int                   `json:"average_rounded"`
	Last           *ledger.AttemptRecord `json:"last,omitempty"`
}

// ProgressPoint is one bar of the rounds-per-attempt chart.
type ProgressPoint struct {
	Attempt       int `json:"attempt"`
	RoundsReached int `json:"roundsReached"`
}

// TrendPoint is one point of the running performance line.
type TrendPoint struct {
	Attempt  int     `json:"attempt"`
	Accuracy float64 `json:"accuracy"` // percent, 0-100
}

// Summarize computes best and average rounds. An empty history yields the
// zero Summary.
func Summarize(records []ledger.AttemptRecord) Summary {
	if len(records) == 0 {
		return Summary{}
	}

	total, best := 0, 0
	for _, r := range records {
		total += r.RoundsReached
		if r.RoundsReached > best {
			best = r.RoundsReached
		}
	}
	avg := float64(total) / float64(len(records))
	last := records[len(records)-1]

	return Summary{
		Attempts:       len(records),
		Best:           best,
		Average:        avg,
		AverageRounded: roundHalfUp(avg),
		Last:           &last,
	}
}

// Progress returns the rounds reached per attempt, in attempt order.
func Progress(records []ledger.AttemptRecord) []ProgressPoint {
	out := make([]ProgressPoint, len(records))
	for i, r := range records {
		out[i] = ProgressPoint{Attempt: r.Attempt, RoundsReached: r.RoundsReached}
	}
	return out
}

// Trend returns, for each prefix of the history, the mean rounds reached
// scaled against perfect and capped at 100. perfect <= 0 uses PerfectRounds.
func Trend(records []ledger.AttemptRecord, perfect int) []TrendPoint {
	if perfect <= 0 {
		perfect = PerfectRounds
	}

	out := make([]TrendPoint, len(records))
	total := 0
	for i, r := range records {
		total += r.RoundsReached
		mean := float64(total) / float64(i+1)
		out[i] = TrendPoint{
			Attempt:  r.Attempt,
			Accuracy: math.Min(100, mean*100/float64(perfect)),
		}
	}
	return out
}

// roundHalfUp rounds to the nearest integer with .5 going up.
func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}
