// Package replay grades executed and missed trades against their planned
// entries and exits.
package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	apperrors "intent-trader/internal/errors"
)

// Trade types.
const (
	TypeExecuted = "executed"
	TypeMissed   = "missed"
)

// Scoring.
const (
	ExecutedBaseScore = 100
	MissedScore       = 60
	Penalty           = 10
	HighLoad          = 7
)

var (
	maxEntryDeviation = decimal.NewFromInt(2)
	minExitPrecision  = decimal.NewFromInt(-2)
)

// Feedback messages.
const (
	FeedbackEntryDeviation = "Entry deviation > 2pts. Consider using earlier alerts."
	FeedbackEarlyExit      = "Exited too early. Review confidence/timing logic."
	FeedbackHighLoad       = "High cognitive load. Consider simplifying blueprint."
	FeedbackMissedPrefix   = "Missed A+ setup. Root cause: "
	FeedbackMissedLoad     = "High load caused setup to be ignored."
)

// CognitiveState is the trader's self-reported state during a setup.
type CognitiveState struct {
	Load *float64 `json:"load"`
}

// Trade is one entry of the trade log.
type Trade struct {
	SetupID        string          `json:"setupId"`
	Symbol         string          `json:"symbol"`
	Type           string          `json:"type"`
	Grade          string          `json:"grade"`
	EntryPlan      *float64        `json:"entryPlan"`
	ActualEntry    *float64        `json:"actualEntry"`
	PlannedExit    *float64        `json:"plannedExit"`
	ActualExit     *float64        `json:"actualExit"`
	ReasonMissed   string          `json:"reasonMissed"`
	CognitiveState *CognitiveState `json:"cognitiveState"`
}

func (t Trade) load() *float64 {
	if t.CognitiveState == nil {
		return nil
	}
	return t.CognitiveState.Load
}

func (t Trade) highLoad() bool {
	l := t.load()
	return l != nil && *l > HighLoad
}

// Summary is the graded replay of one trade.
type Summary struct {
	SetupID        string   `json:"setupId"`
	Symbol         string   `json:"symbol"`
	Type           string   `json:"type"`
	Grade          string   `json:"grade"`
	ReplayScore    *int     `json:"replayScore"`
	EntryDeviation *float64 `json:"entryDeviation"`
	ExitPrecision  *float64 `json:"exitPrecision"`
	MissedReason   *string  `json:"missedReason"`
	CognitiveLoad  *float64 `json:"cognitiveLoad"`
	Feedback       []string `json:"feedback"`
}

// HasIssues reports whether the replay produced any feedback.
func (s Summary) HasIssues() bool {
	return len(s.Feedback) > 0
}

// Grade replays a single trade. Trades of any other type get no score.
func Grade(t Trade) Summary {
	s := Summary{
		SetupID:       t.SetupID,
		Symbol:        t.Symbol,
		Type:          t.Type,
		Grade:         t.Grade,
		CognitiveLoad: t.load(),
		Feedback:      []string{},
	}
	if t.ReasonMissed != "" {
		reason := t.ReasonMissed
		s.MissedReason = &reason
	}

	switch t.Type {
	case TypeExecuted:
		score := ExecutedBaseScore
		if t.EntryPlan != nil && t.ActualEntry != nil {
			dev := decimal.NewFromFloat(*t.ActualEntry).Sub(decimal.NewFromFloat(*t.EntryPlan)).Abs()
			f := dev.InexactFloat64()
			s.EntryDeviation = &f
			if dev.GreaterThan(maxEntryDeviation) {
				s.Feedback = append(s.Feedback, FeedbackEntryDeviation)
				score -= Penalty
			}
		}
		if t.PlannedExit != nil && t.ActualExit != nil {
			prec := decimal.NewFromFloat(*t.ActualExit).Sub(decimal.NewFromFloat(*t.PlannedExit))
			f := prec.InexactFloat64()
			s.ExitPrecision = &f
			if prec.LessThan(minExitPrecision) {
				s.Feedback = append(s.Feedback, FeedbackEarlyExit)
				score -= Penalty
			}
		}
		if t.highLoad() {
			s.Feedback = append(s.Feedback, FeedbackHighLoad)
			score -= Penalty
		}
		s.ReplayScore = &score

	case TypeMissed:
		reason := t.ReasonMissed
		if reason == "" {
			reason = "unknown"
		}
		s.Feedback = append(s.Feedback, FeedbackMissedPrefix+reason)
		if t.highLoad() {
			s.Feedback = append(s.Feedback, FeedbackMissedLoad)
		}
		score := MissedScore
		s.ReplayScore = &score
	}
	return s
}

// Run grades every trade in order.
func Run(trades []Trade) []Summary {
	out := make([]Summary, 0, len(trades))
	for _, t := range trades {
		out = append(out, Grade(t))
	}
	return out
}

// Issues counts summaries with feedback.
func Issues(summaries []Summary) int {
	n := 0
	for _, s := range summaries {
		if s.HasIssues() {
			n++
		}
	}
	return n
}

// LoadTrades reads a JSON array of trades.
func LoadTrades(path string) ([]Trade, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewFileError("read", path, err)
	}
	var trades []Trade
	if err := json.Unmarshal(data, &trades); err != nil {
		return nil, fmt.Errorf("parsing trade log %s: %w", path, err)
	}
	return trades, nil
}

// WriteSummaries writes summaries as indented JSON.
func WriteSummaries(path string, summaries []Summary) error {
	data, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding replay summary: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return apperrors.NewFileError("write", path, err)
	}
	return nil
}
