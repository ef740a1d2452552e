package models

import "time"

// Event kinds recorded for a migration run.
const (
	EventTransformation = "transformation"
	EventError          = "error"
	EventWarning        = "warning"
)

// MigrationRun is one recorded invocation of the migration pipeline.
type MigrationRun struct {
	ID              string       `json:"id"`
	StartedAt       time.Time    `json:"startedAt"`
	FinishedAt      time.Time    `json:"finishedAt"`
	Success         bool         `json:"success"`
	SchemaSource    string       `json:"schemaSource"`
	SchemaVersion   string       `json:"schemaVersion"`
	WorkDir         string       `json:"workDir"`
	LogPath         string       `json:"logPath"`
	Transformations int          `json:"transformations"`
	Errors          int          `json:"errors"`
	Warnings        int          `json:"warnings"`
	Outcomes        []RunOutcome `json:"outcomes"`
	Events          []RunEvent   `json:"events,omitempty"`
}

// Duration returns the wall time of the run.
func (r MigrationRun) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// RunOutcome is the per-file result of a run.
type RunOutcome struct {
	Name     string `json:"name"`
	Input    string `json:"input,omitempty"`
	Output   string `json:"output"`
	Success  bool   `json:"success"`
	Skipped  bool   `json:"skipped,omitempty"`
	Restored bool   `json:"restored,omitempty"`
	Records  int    `json:"records"`
	Backup   string `json:"backup,omitempty"`
	Error    string `json:"error,omitempty"`
}

// RunEvent is one transformation, error or warning of a run.
type RunEvent struct {
	Seq        int    `json:"seq"`
	Kind       string `json:"kind"`
	Timestamp  string `json:"timestamp"`
	SourceFile string `json:"sourceFile"`
	Message    string `json:"message"`
}
