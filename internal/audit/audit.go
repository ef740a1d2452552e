// Package audit records destructive and restorative file operations as JSON lines.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/natefinch/lumberjack.v2"
)

// EventType represents the type of audit event.
type EventType string

const (
	BackupCreated    EventType = "BACKUP_CREATED"
	BackupRestored   EventType = "BACKUP_RESTORED"
	OutputWritten    EventType = "OUTPUT_WRITTEN"
	ValidationFailed EventType = "VALIDATION_FAILED"
)

// Event represents a single audit log entry.
type Event struct {
	Timestamp time.Time              `json:"timestamp"`
	EventType EventType              `json:"event_type"`
	Entity    string                 `json:"entity,omitempty"`
	Path      string                 `json:"path"`
	Related   string                 `json:"related,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Success   bool                   `json:"success"`
	ErrorMsg  string                 `json:"error,omitempty"`
	SessionID string                 `json:"session_id"`
	RunID     string                 `json:"run_id,omitempty"`
}

// runIDKey carries the current migration run id in a context.
type runIDKey struct{}

// WithRunID returns a context carrying the migration run id recorded on events.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// Logger writes audit events.
type Logger struct {
	writer    io.WriteCloser
	mu        sync.Mutex
	sessionID string
	now       func() time.Time
}

// Config holds audit logger configuration.
type Config struct {
	LogDir     string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
	Compress   bool
}

// DefaultConfig returns the default audit configuration.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		LogDir:     filepath.Join(home, ".config", "intent-trader", "audit"),
		MaxSize:    10,
		MaxBackups: 10,
		MaxAge:     365,
		Compress:   true,
	}
}

// New creates an audit logger writing to <LogDir>/audit.log.
func New(cfg Config) (*Logger, error) {
	if err := os.MkdirAll(cfg.LogDir, 0700); err != nil {
		return nil, fmt.Errorf("creating audit directory: %w", err)
	}

	writer := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.LogDir, "audit.log"),
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}
	return NewWithWriter(writer), nil
}

// NewWithWriter creates an audit logger over an arbitrary writer.
func NewWithWriter(w io.WriteCloser) *Logger {
	return &Logger{
		writer:    w,
		sessionID: uuid.NewString(),
		now:       time.Now,
	}
}

// SessionID identifies this logger's process session.
func (l *Logger) SessionID() string {
	return l.sessionID
}

// Log writes one event.
func (l *Logger) Log(ctx context.Context, event Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	event.Timestamp = l.now().UTC()
	event.SessionID = l.sessionID
	if runID, ok := ctx.Value(runIDKey{}).(string); ok {
		event.RunID = runID
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("serializing audit event: %w", err)
	}
	if _, err := l.writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing audit event: %w", err)
	}
	return nil
}

// BackupCreated records a snapshot of original.
func (l *Logger) BackupCreated(ctx context.Context, original, backupPath string) error {
	return l.Log(ctx, Event{
		EventType: BackupCreated,
		Path:      original,
		Related:   backupPath,
		Success:   true,
	})
}

// BackupRestored records a rollback of original from backupPath.
func (l *Logger) BackupRestored(ctx context.Context, backupPath, original string, restoreErr error) error {
	event := Event{
		EventType: BackupRestored,
		Path:      original,
		Related:   backupPath,
		Success:   restoreErr == nil,
	}
	if restoreErr != nil {
		event.ErrorMsg = restoreErr.Error()
	}
	return l.Log(ctx, event)
}

// OutputWritten records a canonical document written to path.
func (l *Logger) OutputWritten(ctx context.Context, entity, path string, records int) error {
	return l.Log(ctx, Event{
		EventType: OutputWritten,
		Entity:    entity,
		Path:      path,
		Success:   true,
		Details:   map[string]interface{}{"records": records},
	})
}

// ValidationFailed records a document rejected by the schema.
func (l *Logger) ValidationFailed(ctx context.Context, entity, path string, violations int) error {
	return l.Log(ctx, Event{
		EventType: ValidationFailed,
		Entity:    entity,
		Path:      path,
		Success:   false,
		Details:   map[string]interface{}{"violations": violations},
	})
}

// Close closes the underlying writer.
func (l *Logger) Close() error {
	return l.writer.Close()
}
