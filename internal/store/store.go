// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"
	"time"

	"intent-trader/internal/models"
)

// ErrRunNotFound is returned when no run matches an id.
var ErrRunNotFound = errors.New("migration run not found")

// ErrAmbiguousRunID is returned when an id prefix matches several runs.
var ErrAmbiguousRunID = errors.New("run id prefix is ambiguous")

// RunStore defines the interface for the migration run ledger.
type RunStore interface {
	// Runs
	SaveRun(ctx context.Context, run *models.MigrationRun) error
	ListRuns(ctx context.Context, filter RunFilter) ([]models.MigrationRun, error)
	GetRun(ctx context.Context, id string) (*models.MigrationRun, error)
	DeleteRunsBefore(ctx context.Context, before time.Time) (int64, error)

	// Lifecycle
	Close() error
}

// RunFilter represents filters for querying runs.
type RunFilter struct {
	Since   time.Time
	Success *bool
	Limit   int
}
