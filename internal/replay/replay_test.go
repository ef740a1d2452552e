package replay

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func f64(v float64) *float64 { return &v }

func TestGradeExecuted(t *testing.T) {
	tests := []struct {
		name      string
		trade     Trade
		score     int
		feedback  []string
		deviation *float64
		precision *float64
	}{
		{
			name:      "clean",
			trade:     Trade{Type: TypeExecuted, EntryPlan: f64(5850), ActualEntry: f64(5851.5), PlannedExit: f64(5900), ActualExit: f64(5899)},
			score:     100,
			feedback:  []string{},
			deviation: f64(1.5),
			precision: f64(-1),
		},
		{
			name:      "late entry early exit high load",
			trade:     Trade{Type: TypeExecuted, EntryPlan: f64(100), ActualEntry: f64(97.5), PlannedExit: f64(110), ActualExit: f64(107.9), CognitiveState: &CognitiveState{Load: f64(8)}},
			score:     70,
			feedback:  []string{FeedbackEntryDeviation, FeedbackEarlyExit, FeedbackHighLoad},
			deviation: f64(2.5),
			precision: f64(-2.1),
		},
		{
			name:      "boundaries are not penalized",
			trade:     Trade{Type: TypeExecuted, EntryPlan: f64(10), ActualEntry: f64(12), PlannedExit: f64(20), ActualExit: f64(18), CognitiveState: &CognitiveState{Load: f64(7)}},
			score:     100,
			feedback:  []string{},
			deviation: f64(2),
			precision: f64(-2),
		},
		{
			name:     "no prices",
			trade:    Trade{Type: TypeExecuted},
			score:    100,
			feedback: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Grade(tt.trade)
			if s.ReplayScore == nil || *s.ReplayScore != tt.score {
				t.Errorf("score = %v, want %d", s.ReplayScore, tt.score)
			}
			if diff := cmp.Diff(tt.feedback, s.Feedback); diff != "" {
				t.Errorf("feedback (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.deviation, s.EntryDeviation); diff != "" {
				t.Errorf("deviation (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.precision, s.ExitPrecision); diff != "" {
				t.Errorf("precision (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGradeMissed(t *testing.T) {
	s := Grade(Trade{SetupID: "s1", Type: TypeMissed, CognitiveState: &CognitiveState{Load: f64(9)}})
	want := []string{FeedbackMissedPrefix + "unknown", FeedbackMissedLoad}
	if diff := cmp.Diff(want, s.Feedback); diff != "" {
		t.Errorf("feedback (-want +got):\n%s", diff)
	}
	if *s.ReplayScore != MissedScore || s.MissedReason != nil {
		t.Errorf("summary = %+v", s)
	}

	s = Grade(Trade{Type: TypeMissed, ReasonMissed: "distracted"})
	if s.Feedback[0] != "Missed A+ setup. Root cause: distracted" || *s.MissedReason != "distracted" {
		t.Errorf("summary = %+v", s)
	}
}

func TestGradeOtherTypeIsUnscored(t *testing.T) {
	s := Grade(Trade{Type: "planned", Symbol: "SPY"})
	if s.ReplayScore != nil || s.HasIssues() {
		t.Errorf("summary = %+v", s)
	}
}

func TestRoundTripFiles(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "replay-summary.json")
	summaries := Run([]Trade{
		{SetupID: "a", Type: TypeExecuted, EntryPlan: f64(1), ActualEntry: f64(5)},
		{SetupID: "b", Type: TypeMissed},
		{SetupID: "c", Type: TypeExecuted},
	})
	if Issues(summaries) != 2 {
		t.Errorf("issues = %d", Issues(summaries))
	}
	if err := WriteSummaries(out, summaries); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadTrades(out); err != nil {
		t.Errorf("summary file is not a JSON array: %v", err)
	}
	if _, err := LoadTrades(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing trade log")
	}
}

// Property: an executed trade scores between 70 and 100 in steps of 10, and
// each penalty has exactly one feedback line.
func TestProperty_ExecutedScoreBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("score = 100 - 10 * len(feedback)", prop.ForAll(
		func(plan, entry, exitPlan, exit, load float64) bool {
			s := Grade(Trade{
				Type:           TypeExecuted,
				EntryPlan:      &plan,
				ActualEntry:    &entry,
				PlannedExit:    &exitPlan,
				ActualExit:     &exit,
				CognitiveState: &CognitiveState{Load: &load},
			})
			if s.ReplayScore == nil {
				return false
			}
			score := *s.ReplayScore
			return score >= 70 && score <= 100 && score == ExecutedBaseScore-Penalty*len(s.Feedback)
		},
		gen.Float64Range(100, 6000),
		gen.Float64Range(100, 6000),
		gen.Float64Range(100, 6000),
		gen.Float64Range(100, 6000),
		gen.Float64Range(0, 10),
	))

	properties.TestingRun(t)
}
