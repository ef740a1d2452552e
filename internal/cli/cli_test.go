package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	apperrors "intent-trader/internal/errors"
	"intent-trader/internal/models"
)

const (
	testPlan = `{
  "tradePlan": {
    "date": "2025-05-15",
    "marketFramework": {"bias": "bullish", "catalysts": ["CPI"]},
    "tradeIdeas": {
      "primary": [{"ticker": "SPY", "direction": "long", "conviction": "high", "entry": {"min": 500, "max": 502}}],
      "secondary": [{"ticker": "NVDA", "direction": "short"}],
      "watchlist": [{"ticker": "AMD", "direction": "long"}]
    },
    "riskManagement": {"dailyRiskBudget": {"amount": 500, "percent": 0.5}}
  }
}`
	testPositions = `{
  "positions": [
    {"id": "p1", "symbol": "AAPL", "direction": "long", "status": "active",
     "entry": {"price": 190.5, "time": "2025-05-14T09:45:00Z"},
     "size": {"unit": "shares", "initial": 100},
     "history": [{"action": "created", "time": "2025-05-14T09:45:00Z", "details": "Bought AAPL"}]}
  ]
}`
	testManifest = `{"sessionId": "abc", "currentPhase": "execution"}`
)

type env struct {
	configDir string
	workDir   string
}

func newEnv(t *testing.T) env {
	t.Helper()
	e := env{configDir: t.TempDir(), workDir: t.TempDir()}
	t.Setenv("INTENT_TRADER_STORE", filepath.Join(e.configDir, "runs.db"))
	t.Setenv("INTENT_TRADER_WORKDIR", e.workDir)
	return e
}

func (e env) write(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(e.workDir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func (e env) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", e.configDir}, args...))
	err := cmd.Execute()
	return stdout.String(), err
}

func TestVersionJSON(t *testing.T) {
	e := newEnv(t)
	out, err := e.run(t, "version", "--json")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	var got map[string]string
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decoding %q: %v", out, err)
	}
	if got["version"] != Version || got["schema_version"] == "" {
		t.Errorf("version output = %v", got)
	}
}

func TestMigrateRecordsRun(t *testing.T) {
	e := newEnv(t)
	e.write(t, "trade-plan-state.json", testPlan)
	e.write(t, "my-positions.json", testPositions)
	e.write(t, "session-manifest.json", testManifest)

	out, err := e.run(t, "migrate", "--json")
	if err != nil {
		t.Fatalf("migrate: %v\n%s", err, out)
	}
	var res struct {
		RunID    string `json:"runId"`
		Success  bool   `json:"success"`
		Outcomes []struct {
			Name    string `json:"name"`
			Success bool   `json:"success"`
		} `json:"outcomes"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decoding %q: %v", out, err)
	}
	if !res.Success || res.RunID == "" || len(res.Outcomes) != 4 {
		t.Fatalf("migrate result = %+v", res)
	}
	for _, name := range []string{
		"trade-plan-state.canonical.json",
		"my-positions.canonical.json",
		"transaction-log.canonical.json",
		"conversation-context.json",
		"migration.log.json",
	} {
		if _, err := os.Stat(filepath.Join(e.workDir, name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}

	out, err = e.run(t, "runs", "list", "--json")
	if err != nil {
		t.Fatalf("runs list: %v", err)
	}
	var runs []models.MigrationRun
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		t.Fatalf("decoding %q: %v", out, err)
	}
	if len(runs) != 1 || runs[0].ID != res.RunID || !runs[0].Success {
		t.Fatalf("runs = %+v", runs)
	}

	out, err = e.run(t, "runs", "show", ShortID(res.RunID), "--json")
	if err != nil {
		t.Fatalf("runs show: %v", err)
	}
	var run models.MigrationRun
	if err := json.Unmarshal([]byte(out), &run); err != nil {
		t.Fatalf("decoding %q: %v", out, err)
	}
	if run.ID != res.RunID || len(run.Events) == 0 || len(run.Outcomes) != 4 {
		t.Errorf("run = %+v", run)
	}

	// The migrated positions validate against their definition.
	if _, err := e.run(t, "schema", "validate", "tradePosition", filepath.Join(e.workDir, "my-positions.canonical.json")); err != nil {
		t.Errorf("schema validate: %v", err)
	}
}

func TestMigrateWithoutInputsFails(t *testing.T) {
	e := newEnv(t)
	out, err := e.run(t, "migrate")
	if !errors.Is(err, errMigrationFailed) {
		t.Fatalf("migrate error = %v, want %v", err, errMigrationFailed)
	}
	if !strings.Contains(out, "Migration completed with failures") {
		t.Errorf("output missing failure line:\n%s", out)
	}

	// Failed runs are still recorded.
	out, err = e.run(t, "runs", "list", "--failed", "--json")
	if err != nil {
		t.Fatalf("runs list: %v", err)
	}
	var runs []models.MigrationRun
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		t.Fatalf("decoding %q: %v", out, err)
	}
	if len(runs) != 1 || runs[0].Success {
		t.Errorf("runs = %+v", runs)
	}
}

func TestRunsDisabledStore(t *testing.T) {
	e := newEnv(t)
	t.Setenv("INTENT_TRADER_STORE", "off")
	if _, err := e.run(t, "runs", "list"); err == nil {
		t.Error("runs list succeeded with the store disabled")
	}
}

func TestSchemaValidateReportsViolations(t *testing.T) {
	e := newEnv(t)
	path := e.write(t, "bad.json", `[{"symbol": "AAPL", "direction": "sideways"}]`)

	out, err := e.run(t, "schema", "validate", "tradePosition", path, "--json")
	if !errors.Is(err, apperrors.ErrValidationFailed) {
		t.Fatalf("error = %v, want ErrValidationFailed", err)
	}
	var reports []documentReport
	if err := json.Unmarshal([]byte(out), &reports); err != nil {
		t.Fatalf("decoding %q: %v", out, err)
	}
	if len(reports) != 1 || reports[0].Valid || reports[0].Index != 0 || len(reports[0].Violations) == 0 {
		t.Errorf("reports = %+v", reports)
	}
}

func TestSchemaInit(t *testing.T) {
	e := newEnv(t)
	path := filepath.Join(e.workDir, "canonical.schema.json")
	if _, err := e.run(t, "schema", "init", path); err != nil {
		t.Fatalf("schema init: %v", err)
	}
	if _, err := e.run(t, "schema", "init", path); err == nil {
		t.Error("schema init overwrote without --force")
	}
	if _, err := e.run(t, "--schema", path, "schema", "info"); err != nil {
		t.Errorf("schema info with written schema: %v", err)
	}
}

func TestPluginRun(t *testing.T) {
	e := newEnv(t)
	e.write(t, "session-manifest.json", testManifest)
	e.write(t, "plugin-registry.json", `[
  {"id": "analyze-dp", "type": "prompt", "phase": "premarket", "entryPoint": "prompts/analyze-dp.md"},
  {"id": "missing", "type": "script", "phase": "any", "entryPoint": "scripts/missing.js"}
]`)
	e.write(t, "prompts/analyze-dp.md", "---\ntitle: Analyze DP\ndescription: d\nphase: premarket\nroute: /dp\nversion: 1\n---\nBody\n")

	out, err := e.run(t, "plugin", "run", "analyze-dp", "ticker=SPY", "verbose")
	if err != nil {
		t.Fatalf("plugin run: %v", err)
	}
	var res struct {
		Success  bool     `json:"success"`
		Warnings []string `json:"warnings"`
		Result   struct {
			Parameters map[string]interface{} `json:"parameters"`
		} `json:"result"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decoding %q: %v", out, err)
	}
	if !res.Success || len(res.Warnings) != 1 {
		t.Errorf("result = %+v", res)
	}
	if res.Result.Parameters["ticker"] != "SPY" || res.Result.Parameters["verbose"] != true {
		t.Errorf("parameters = %v", res.Result.Parameters)
	}

	if _, err := e.run(t, "plugin", "run", "missing"); !errors.Is(err, apperrors.ErrEntryPointMissing) {
		t.Errorf("missing entry point error = %v", err)
	}
	if _, err := e.run(t, "plugin", "run", "nope"); !errors.Is(err, apperrors.ErrPluginNotFound) {
		t.Errorf("unknown command error = %v", err)
	}
	if _, err := e.run(t, "plugin", "lint"); err != nil {
		t.Errorf("plugin lint: %v", err)
	}
}

func TestReplayCommand(t *testing.T) {
	e := newEnv(t)
	e.write(t, "trade-log.json", `[
  {"setupId": "s1", "symbol": "SPY", "type": "executed", "entryPlan": 500, "actualEntry": 503,
   "plannedExit": 510, "actualExit": 510, "cognitiveState": {"load": 3}},
  {"setupId": "s2", "symbol": "NVDA", "type": "missed", "reasonMissed": "late alert"}
]`)

	out, err := e.run(t, "replay", "--json")
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	var res struct {
		Trades int `json:"trades"`
		Issues int `json:"issues"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decoding %q: %v", out, err)
	}
	if res.Trades != 2 || res.Issues != 2 {
		t.Errorf("replay = %+v", res)
	}
	if _, err := os.Stat(filepath.Join(e.workDir, "replay-summary.json")); err != nil {
		t.Errorf("summary not written: %v", err)
	}
}
