// Package translog records every mapping, error and warning of a migration run.
//
// A Log is scoped to one run and passed explicitly through the mappers and the
// orchestrator. Entries are append-only and never mutated once recorded.
package translog

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"intent-trader/internal/models"
)

// Transformation is one discrete mapping operation.
type Transformation struct {
	Timestamp   string `json:"timestamp"`
	SourceFile  string `json:"sourceFile"`
	SourceField string `json:"sourceField"`
	TargetField string `json:"targetField"`
	Description string `json:"description"`
}

// Issue is an error or warning tied to a source file.
type Issue struct {
	Timestamp  string `json:"timestamp"`
	SourceFile string `json:"sourceFile"`
	Message    string `json:"message"`
}

// Summary counts the entries of a log.
type Summary struct {
	Transformations int `json:"transformations"`
	Errors          int `json:"errors"`
	Warnings        int `json:"warnings"`
}

// Document is the serialized form written at the end of a run.
type Document struct {
	Timestamp       string           `json:"timestamp"`
	Summary         Summary          `json:"summary"`
	Transformations []Transformation `json:"transformations"`
	Errors          []Issue          `json:"errors"`
	Warnings        []Issue          `json:"warnings"`
}

// Log accumulates entries for a single run.
type Log struct {
	now             func() time.Time
	transformations []Transformation
	errors          []Issue
	warnings        []Issue
}

// New creates an empty log using the wall clock.
func New() *Log {
	return NewWithClock(time.Now)
}

// NewWithClock creates an empty log stamping entries with now.
func NewWithClock(now func() time.Time) *Log {
	if now == nil {
		now = time.Now
	}
	return &Log{
		now:             now,
		transformations: []Transformation{},
		errors:          []Issue{},
		warnings:        []Issue{},
	}
}

func (l *Log) stamp() string {
	return models.ISOTime(l.now())
}

// Transformation records a mapping from sourceField to targetField.
func (l *Log) Transformation(sourceFile, sourceField, targetField, description string) {
	l.transformations = append(l.transformations, Transformation{
		Timestamp:   l.stamp(),
		SourceFile:  sourceFile,
		SourceField: sourceField,
		TargetField: targetField,
		Description: description,
	})
}

// Error records an error against sourceFile.
func (l *Log) Error(sourceFile, message string) {
	l.errors = append(l.errors, Issue{Timestamp: l.stamp(), SourceFile: sourceFile, Message: message})
}

// Errorf records a formatted error against sourceFile.
func (l *Log) Errorf(sourceFile, format string, args ...interface{}) {
	l.Error(sourceFile, fmt.Sprintf(format, args...))
}

// Warning records a warning against sourceFile.
func (l *Log) Warning(sourceFile, message string) {
	l.warnings = append(l.warnings, Issue{Timestamp: l.stamp(), SourceFile: sourceFile, Message: message})
}

// Warningf records a formatted warning against sourceFile.
func (l *Log) Warningf(sourceFile, format string, args ...interface{}) {
	l.Warning(sourceFile, fmt.Sprintf(format, args...))
}

// Transformations returns a copy of the recorded transformations.
func (l *Log) Transformations() []Transformation {
	out := make([]Transformation, len(l.transformations))
	copy(out, l.transformations)
	return out
}

// Errors returns a copy of the recorded errors.
func (l *Log) Errors() []Issue {
	return copyIssues(l.errors)
}

// Warnings returns a copy of the recorded warnings.
func (l *Log) Warnings() []Issue {
	return copyIssues(l.warnings)
}

func copyIssues(in []Issue) []Issue {
	out := make([]Issue, len(in))
	copy(out, in)
	return out
}

// Summary returns entry counts.
func (l *Log) Summary() Summary {
	return Summary{
		Transformations: len(l.transformations),
		Errors:          len(l.errors),
		Warnings:        len(l.warnings),
	}
}

// Document snapshots the log for serialization.
func (l *Log) Document() Document {
	return Document{
		Timestamp:       l.stamp(),
		Summary:         l.Summary(),
		Transformations: l.Transformations(),
		Errors:          l.Errors(),
		Warnings:        l.Warnings(),
	}
}

// WriteFile serializes the whole log to path as indented JSON.
func (l *Log) WriteFile(path string) error {
	data, err := json.MarshalIndent(l.Document(), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding migration log: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("writing migration log: %w", err)
	}
	return nil
}
