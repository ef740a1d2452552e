package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"intent-trader/internal/models"
)

// SQLiteStore implements RunStore using SQLite.
type SQLiteStore struct {
	db    *sql.DB
	retry RetryConfig
}

// NewSQLiteStore creates a new SQLite-based run ledger.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db, retry: DefaultRetryConfig()}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- One row per migrate invocation
	CREATE TABLE IF NOT EXISTS migration_runs (
		id TEXT PRIMARY KEY,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL,
		success INTEGER NOT NULL,
		schema_source TEXT,
		schema_version TEXT,
		work_dir TEXT,
		log_path TEXT,
		transformations INTEGER NOT NULL DEFAULT 0,
		errors INTEGER NOT NULL DEFAULT 0,
		warnings INTEGER NOT NULL DEFAULT 0,
		outcomes TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Transformation log entries of each run
	CREATE TABLE IF NOT EXISTS migration_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		kind TEXT NOT NULL,
		timestamp TEXT,
		source_file TEXT,
		message TEXT NOT NULL,
		FOREIGN KEY (run_id) REFERENCES migration_runs(id) ON DELETE CASCADE,
		UNIQUE(run_id, seq)
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON migration_runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_events_run ON migration_events(run_id);
	CREATE INDEX IF NOT EXISTS idx_events_kind ON migration_events(kind);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ============================================================================
// Runs Methods
// ============================================================================

// SaveRun saves a run and its events in one transaction. An empty ID is
// filled with a new UUID.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *models.MigrationRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	outcomes, err := json.Marshal(run.Outcomes)
	if err != nil {
		return fmt.Errorf("failed to encode outcomes: %w", err)
	}
	return retry(ctx, s.retry, func() error {
		return s.saveRun(ctx, run, string(outcomes))
	})
}

func (s *SQLiteStore) saveRun(ctx context.Context, run *models.MigrationRun, outcomes string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO migration_runs (id, started_at, finished_at, success, schema_source, schema_version, work_dir, log_path, transformations, errors, warnings, outcomes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.StartedAt.UTC(), run.FinishedAt.UTC(), boolToInt(run.Success), run.SchemaSource, run.SchemaVersion,
		run.WorkDir, run.LogPath, run.Transformations, run.Errors, run.Warnings, outcomes)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	if len(run.Events) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO migration_events (run_id, seq, kind, timestamp, source_file, message)
			VALUES (?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, e := range run.Events {
			if _, err := stmt.ExecContext(ctx, run.ID, e.Seq, e.Kind, e.Timestamp, e.SourceFile, e.Message); err != nil {
				return fmt.Errorf("failed to insert event: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListRuns retrieves runs, newest first, without their events.
func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]models.MigrationRun, error) {
	query := "SELECT id, started_at, finished_at, success, schema_source, schema_version, work_dir, log_path, transformations, errors, warnings, outcomes FROM migration_runs WHERE 1=1"
	args := []interface{}{}

	if !filter.Since.IsZero() {
		query += " AND started_at >= ?"
		args = append(args, filter.Since.UTC())
	}
	if filter.Success != nil {
		query += " AND success = ?"
		args = append(args, boolToInt(*filter.Success))
	}

	query += " ORDER BY started_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := []models.MigrationRun{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

// GetRun retrieves a run with its events. id may be a unique prefix.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*models.MigrationRun, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, success, schema_source, schema_version, work_dir, log_path, transformations, errors, warnings, outcomes
		FROM migration_runs
		WHERE id = ? OR id LIKE ? || '%'
		ORDER BY id = ? DESC
		LIMIT 2
	`, id, id, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	defer rows.Close()

	var matches []*models.MigrationRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	rows.Close()

	switch {
	case len(matches) == 0:
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case len(matches) > 1 && matches[0].ID != id:
		return nil, fmt.Errorf("%w: %s", ErrAmbiguousRunID, id)
	}

	run := matches[0]
	events, err := s.getEvents(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	run.Events = events
	return run, nil
}

// DeleteRunsBefore removes runs started before the cutoff and returns how many went.
func (s *SQLiteStore) DeleteRunsBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM migration_runs WHERE started_at < ?`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete runs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted runs: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) getEvents(ctx context.Context, runID string) ([]models.RunEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, kind, timestamp, source_file, message
		FROM migration_events
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []models.RunEvent
	for rows.Next() {
		var e models.RunEvent
		var ts, file sql.NullString
		if err := rows.Scan(&e.Seq, &e.Kind, &ts, &file, &e.Message); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Timestamp = ts.String
		e.SourceFile = file.String
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}
	return events, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*models.MigrationRun, error) {
	var run models.MigrationRun
	var success int
	var source, version, workDir, logPath sql.NullString
	var outcomes string

	if err := row.Scan(&run.ID, &run.StartedAt, &run.FinishedAt, &success, &source, &version, &workDir, &logPath,
		&run.Transformations, &run.Errors, &run.Warnings, &outcomes); err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}
	run.Success = success == 1
	run.SchemaSource = source.String
	run.SchemaVersion = version.String
	run.WorkDir = workDir.String
	run.LogPath = logPath.String
	if err := json.Unmarshal([]byte(outcomes), &run.Outcomes); err != nil {
		return nil, fmt.Errorf("failed to decode outcomes of run %s: %w", run.ID, err)
	}
	return &run, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
