package plugins

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	apperrors "intent-trader/internal/errors"
)

const registryJSON = `[
  {"id": "analyze-dp", "type": "prompt", "phase": "premarket", "entryPoint": "prompts/analyze-dp.md", "dependsOn": ["create-plan", "ghost"]},
  {"id": "create-plan", "type": "script", "phase": "any", "entryPoint": "scripts/create-plan.js"},
  {"id": "gone", "type": "script", "phase": "any", "entryPoint": "scripts/gone.js"},
  {"id": "legacy", "type": "script", "phase": "any", "entryPoint": "scripts/legacy.py"}
]`

const promptWithHeader = `---
title: Analyze DP
description: Parse the morning call
phase: premarket
route: /analyze-dp
version: 0.5.2
---
# Analyze DP
`

func write(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
}

func setup(t *testing.T, phase string) *Dispatcher {
	t.Helper()
	root := t.TempDir()
	write(t, filepath.Join(root, "plugin-registry.json"), registryJSON)
	write(t, filepath.Join(root, "prompts", "analyze-dp.md"), promptWithHeader)
	write(t, filepath.Join(root, "scripts", "create-plan.js"), "module.exports = {}\n")
	write(t, filepath.Join(root, "scripts", "legacy.py"), "print('x')\n")

	reg, err := LoadRegistry(filepath.Join(root, "plugin-registry.json"))
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	now := func() time.Time { return time.Date(2025, 5, 15, 13, 30, 0, 0, time.UTC) }
	return NewDispatcher(reg, root, phase, WithClock(now))
}

func TestDispatchScript(t *testing.T) {
	d := setup(t, "intraday")
	res, err := d.Dispatch(context.Background(), "create-plan", ParseParams([]string{"date=2025-05-15", "dry-run"}))
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !res.Success || res.Message != "Successfully executed create-plan" {
		t.Errorf("result = %+v", res)
	}
	if res.Result.ExecutionTime != "2025-05-15T13:30:00.000Z" {
		t.Errorf("execution time = %s", res.Result.ExecutionTime)
	}
	want := map[string]interface{}{"date": "2025-05-15", "dry-run": true}
	if diff := cmp.Diff(want, res.Result.Parameters); diff != "" {
		t.Errorf("parameters (-want +got):\n%s", diff)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("phase any should not warn: %v", res.Warnings)
	}
}

func TestDispatchPromptWarnsOnPhaseAndMissingDependency(t *testing.T) {
	d := setup(t, "intraday")
	res, err := d.Dispatch(context.Background(), "analyze-dp", nil)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !res.Success || *res.Result.PromptLength != len(promptWithHeader) {
		t.Errorf("result = %+v", res)
	}
	if res.Result.FrontMatter.String("route") != "/analyze-dp" {
		t.Errorf("front matter = %v", res.Result.FrontMatter)
	}
	want := []string{
		"Command analyze-dp is designed for premarket phase, but current phase is intraday",
		"Dependency not found: ghost",
	}
	if diff := cmp.Diff(want, res.Warnings); diff != "" {
		t.Errorf("warnings (-want +got):\n%s", diff)
	}
}

func TestDispatchFailures(t *testing.T) {
	d := setup(t, "premarket")
	tests := []struct {
		command string
		want    error
		message string
	}{
		{"nope", apperrors.ErrPluginNotFound, "Command 'nope' not found in registry."},
		{"gone", apperrors.ErrEntryPointMissing, "Command 'gone' entry point not found at scripts/gone.js."},
		{"legacy", apperrors.ErrUnsupportedEntryPoint, "Unsupported entry point type for legacy: .py"},
	}
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			res, err := d.Dispatch(context.Background(), tt.command, nil)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
			var perr *apperrors.PluginError
			if !errors.As(err, &perr) || perr.Command != tt.command {
				t.Errorf("error %v is not a PluginError for %s", err, tt.command)
			}
			if res.Success || res.Message != tt.message {
				t.Errorf("result = %+v", res)
			}
		})
	}
}

func TestCurrentPhase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session-manifest.json")
	write(t, path, `{"currentPhase": "postmarket"}`)
	phase, err := CurrentPhase(path)
	if err != nil || phase != "postmarket" {
		t.Errorf("phase = %q, err = %v", phase, err)
	}
	if _, err := CurrentPhase(path + ".missing"); err == nil {
		t.Error("expected error for missing manifest")
	}
}

func TestParseParamsKeepsEqualsInValue(t *testing.T) {
	got := ParseParams([]string{"query=a=b"})
	if got["query"] != "a=b" {
		t.Errorf("query = %v", got["query"])
	}
}

func TestLintDir(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "a-good.md"), promptWithHeader)
	write(t, filepath.Join(root, "b-none.md"), "# no header\n")
	write(t, filepath.Join(root, "nested", "c-partial.md"), "---\ntitle: x\nphase: premarket\n---\nbody\n")
	write(t, filepath.Join(root, "d-broken.md"), "---\ntitle: [unclosed\n---\n")
	write(t, filepath.Join(root, "notes.txt"), "ignored")

	results, err := LintDir(root)
	if err != nil {
		t.Fatal(err)
	}
	got := map[string]string{}
	for _, r := range results {
		got[strings.TrimPrefix(r.Path, root+string(filepath.Separator))] = r.Reason
	}
	want := map[string]string{
		"a-good.md":                             "OK",
		"b-none.md":                             "Missing front matter",
		filepath.Join("nested", "c-partial.md"): "Missing description, route, version",
		"d-broken.md":                           "YAML parse error",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("lint (-want +got):\n%s", diff)
	}
}
