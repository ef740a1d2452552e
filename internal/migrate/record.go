package migrate

import (
	"fmt"

	"intent-trader/internal/models"
)

// Record converts the result into a ledger entry. Events are ordered
// transformations first, then errors, then warnings.
func (r *Result) Record(id, schemaSource, schemaVersion, workDir string) models.MigrationRun {
	run := models.MigrationRun{
		ID:              id,
		StartedAt:       r.StartedAt,
		FinishedAt:      r.FinishedAt,
		Success:         r.Success,
		SchemaSource:    schemaSource,
		SchemaVersion:   schemaVersion,
		WorkDir:         workDir,
		LogPath:         r.LogPath,
		Transformations: r.Summary.Transformations,
		Errors:          r.Summary.Errors,
		Warnings:        r.Summary.Warnings,
		Outcomes:        make([]models.RunOutcome, 0, len(r.Outcomes)),
	}
	for _, o := range r.Outcomes {
		run.Outcomes = append(run.Outcomes, models.RunOutcome{
			Name:     o.Name,
			Input:    o.Input,
			Output:   o.Output,
			Success:  o.Success,
			Skipped:  o.Skipped,
			Restored: o.Restored,
			Records:  o.Records,
			Backup:   o.Backup,
			Error:    o.Error,
		})
	}

	if r.Log == nil {
		return run
	}
	seq := 0
	add := func(kind, ts, file, msg string) {
		seq++
		run.Events = append(run.Events, models.RunEvent{
			Seq:        seq,
			Kind:       kind,
			Timestamp:  ts,
			SourceFile: file,
			Message:    msg,
		})
	}
	for _, t := range r.Log.Transformations() {
		add(models.EventTransformation, t.Timestamp, t.SourceFile,
			fmt.Sprintf("%s -> %s: %s", t.SourceField, t.TargetField, t.Description))
	}
	for _, e := range r.Log.Errors() {
		add(models.EventError, e.Timestamp, e.SourceFile, e.Message)
	}
	for _, w := range r.Log.Warnings() {
		add(models.EventWarning, w.Timestamp, w.SourceFile, w.Message)
	}
	return run
}
