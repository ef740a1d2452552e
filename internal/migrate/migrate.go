// Package migrate sequences the migration of legacy trading state files into
// canonical documents: backup, read, map, validate, then write or roll back.
package migrate

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	apperrors "intent-trader/internal/errors"
	"intent-trader/internal/backup"
	"intent-trader/internal/logging"
	"intent-trader/internal/mapping"
	"intent-trader/internal/models"
	"intent-trader/internal/schema"
	"intent-trader/internal/translog"
)

// Migration names used in outcomes.
const (
	NameTradePlan           = "tradePlan"
	NamePositions           = "positions"
	NameTransactionLog      = "transactionLog"
	NameConversationContext = "conversationContext"
)

// Auditor receives file-level events.
type Auditor interface {
	BackupCreated(ctx context.Context, original, backupPath string) error
	BackupRestored(ctx context.Context, backupPath, original string, err error) error
	OutputWritten(ctx context.Context, entity, path string, records int) error
	ValidationFailed(ctx context.Context, entity, path string, violations int) error
}

// Options names the inputs and outputs of a run.
type Options struct {
	TradePlanInput            string `json:"tradePlanInput"`
	TradePlanOutput           string `json:"tradePlanOutput"`
	PositionsInput            string `json:"positionsInput"`
	PositionsOutput           string `json:"positionsOutput"`
	TransactionLogOutput      string `json:"transactionLogOutput"`
	SessionManifest           string `json:"sessionManifest"`
	ConversationContextOutput string `json:"conversationContextOutput"`
	LogPath                   string `json:"logPath"`
}

// DefaultOptions returns the conventional relative file names.
func DefaultOptions() Options {
	return Options{
		TradePlanInput:            "trade-plan-state.json",
		TradePlanOutput:           "trade-plan-state.canonical.json",
		PositionsInput:            "my-positions.json",
		PositionsOutput:           "my-positions.canonical.json",
		TransactionLogOutput:      "transaction-log.canonical.json",
		SessionManifest:           "session-manifest.json",
		ConversationContextOutput: "conversation-context.json",
		LogPath:                   "migration.log.json",
	}
}

// WithArgs overrides fields positionally in the order tradePlanInput,
// tradePlanOutput, positionsInput, positionsOutput, transactionLogOutput,
// sessionManifest, conversationContextOutput, logPath. Empty args are ignored.
func (o Options) WithArgs(args []string) Options {
	fields := []*string{
		&o.TradePlanInput,
		&o.TradePlanOutput,
		&o.PositionsInput,
		&o.PositionsOutput,
		&o.TransactionLogOutput,
		&o.SessionManifest,
		&o.ConversationContextOutput,
		&o.LogPath,
	}
	for i, arg := range args {
		if i >= len(fields) {
			break
		}
		if arg != "" {
			*fields[i] = arg
		}
	}
	return o
}

// InDir resolves every relative path against dir.
func (o Options) InDir(dir string) Options {
	if dir == "" {
		return o
	}
	for _, p := range []*string{
		&o.TradePlanInput, &o.TradePlanOutput, &o.PositionsInput, &o.PositionsOutput,
		&o.TransactionLogOutput, &o.SessionManifest, &o.ConversationContextOutput, &o.LogPath,
	} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
	return o
}

// Outcome is the result of one file-type migration.
type Outcome struct {
	Name     string        `json:"name"`
	Input    string        `json:"input,omitempty"`
	Output   string        `json:"output"`
	Success  bool          `json:"success"`
	Skipped  bool          `json:"skipped,omitempty"`
	Backup   string        `json:"backup,omitempty"`
	Restored bool          `json:"restored,omitempty"`
	Records  int           `json:"records"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Result is the outcome of a whole run.
type Result struct {
	Success    bool             `json:"success"`
	StartedAt  time.Time        `json:"startedAt"`
	FinishedAt time.Time        `json:"finishedAt"`
	Outcomes   []Outcome        `json:"outcomes"`
	Summary    translog.Summary `json:"summary"`
	LogPath    string           `json:"logPath"`

	Log *translog.Log `json:"-"`
}

// Migrator runs migrations against a schema registry.
type Migrator struct {
	registry *schema.Registry
	logger   zerolog.Logger
	auditor  Auditor
	now      func() time.Time
}

// Option configures a Migrator.
type Option func(*Migrator)

// WithLogger sets the progress logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Migrator) { m.logger = logger }
}

// WithAuditor records file operations to a.
func WithAuditor(a Auditor) Option {
	return func(m *Migrator) { m.auditor = a }
}

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(m *Migrator) { m.now = now }
}

// New creates a Migrator validating against registry.
func New(registry *schema.Registry, opts ...Option) *Migrator {
	m := &Migrator{
		registry: registry,
		logger:   zerolog.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run migrates the trade plan and positions, derives the transaction log and
// conversation context, and writes the migration log. Each file type succeeds
// or fails independently; the returned error is non-nil only when the
// migration log itself cannot be written.
func (m *Migrator) Run(ctx context.Context, opts Options) (*Result, error) {
	tl := translog.NewWithClock(m.now)
	res := &Result{
		StartedAt: m.now(),
		LogPath:   opts.LogPath,
		Log:       tl,
	}

	m.logger.Info().Msg("Starting schema migration")

	plan, _ := m.MigrateTradePlan(ctx, tl, opts.TradePlanInput, opts.TradePlanOutput)
	positions, _ := m.MigratePositions(ctx, tl, opts.PositionsInput, opts.PositionsOutput)
	txlog, _ := m.CreateTransactionLog(ctx, tl, opts.TransactionLogOutput, opts.PositionsInput)
	convo, _ := m.CreateConversationContext(ctx, tl, opts.ConversationContextOutput, opts.SessionManifest)

	res.Outcomes = []Outcome{plan, positions, txlog, convo}
	res.Success = true
	for _, o := range res.Outcomes {
		res.Success = res.Success && o.Success
	}
	res.Summary = tl.Summary()
	res.FinishedAt = m.now()

	m.logger.Info().
		Int("transformations", res.Summary.Transformations).
		Int("errors", res.Summary.Errors).
		Int("warnings", res.Summary.Warnings).
		Bool("success", res.Success).
		Msg("Migration summary")

	if opts.LogPath != "" {
		if err := tl.WriteFile(opts.LogPath); err != nil {
			return res, err
		}
	}
	return res, nil
}

// MigrateTradePlan migrates a legacy trade plan file into one canonical plan.
func (m *Migrator) MigrateTradePlan(ctx context.Context, tl *translog.Log, input, output string) (Outcome, error) {
	start := m.now()
	out := Outcome{Name: NameTradePlan, Input: input, Output: output}
	logger := logging.WithOperation(logging.WithFile(m.logger, input), NameTradePlan)

	if !fileExists(input) {
		tl.Warningf("migration", "Trade plan file not found at %s", input)
		return m.skip(logger, &out, start)
	}

	backupPath, err := m.snapshot(ctx, logger, input)
	if err != nil {
		tl.Errorf(input, "Backup failed: %v", err)
		return m.finish(logger, &out, start, err)
	}
	out.Backup = backupPath

	legacy, err := readLegacyPlan(input)
	if err != nil {
		tl.Errorf(input, "Migration failed: %v", err)
		return m.finish(logger, &out, start, err)
	}

	mp := mapping.New(tl, m.now)
	mp.PlanFile = filepath.Base(input)
	plan := mp.TradePlan(legacy)
	out.Records = len(plan.TradeIdeas)

	if verr := m.validate(ctx, logger, models.DefTradePlan, input, -1, plan); verr != nil {
		tl.Errorf(input, "Validation failed: %s", violationsJSON(verr.Violations))
		m.rollback(ctx, logger, tl, &out, backupPath, input)
		return m.finish(logger, &out, start, verr)
	}

	if err := writeJSON(output, plan); err != nil {
		tl.Errorf(input, "Write failed: %v", err)
		m.rollback(ctx, logger, tl, &out, backupPath, input)
		return m.finish(logger, &out, start, err)
	}
	m.written(ctx, logger, models.DefTradePlan, output, out.Records)
	tl.Transformation(input, "tradePlan", "tradePlan", "Migrated trade plan to canonical schema")
	return m.finish(logger, &out, start, nil)
}

// MigratePositions migrates a legacy positions file. Every position must
// validate; one invalid position aborts the whole file.
func (m *Migrator) MigratePositions(ctx context.Context, tl *translog.Log, input, output string) (Outcome, error) {
	start := m.now()
	out := Outcome{Name: NamePositions, Input: input, Output: output}
	logger := logging.WithOperation(logging.WithFile(m.logger, input), NamePositions)

	if !fileExists(input) {
		tl.Warningf("migration", "Positions file not found at %s", input)
		return m.skip(logger, &out, start)
	}

	backupPath, err := m.snapshot(ctx, logger, input)
	if err != nil {
		tl.Errorf(input, "Backup failed: %v", err)
		return m.finish(logger, &out, start, err)
	}
	out.Backup = backupPath

	legacy, err := readLegacyPositions(input)
	if err != nil {
		tl.Errorf(input, "Migration failed: %v", err)
		return m.finish(logger, &out, start, err)
	}

	mp := mapping.New(tl, m.now)
	mp.PositionsFile = filepath.Base(input)
	positions := mp.Positions(legacy)
	out.Records = len(positions)

	var failures []error
	for i, p := range positions {
		if verr := m.validate(ctx, logger, models.DefTradePosition, input, i, p); verr != nil {
			tl.Errorf(input, "Validation failed for position %d: %s", i, violationsJSON(verr.Violations))
			failures = append(failures, verr)
		}
	}
	if len(failures) > 0 {
		m.rollback(ctx, logger, tl, &out, backupPath, input)
		return m.finish(logger, &out, start, errors.Join(failures...))
	}

	if err := writeJSON(output, positions); err != nil {
		tl.Errorf(input, "Write failed: %v", err)
		m.rollback(ctx, logger, tl, &out, backupPath, input)
		return m.finish(logger, &out, start, err)
	}
	m.written(ctx, logger, models.DefTradePosition, output, out.Records)
	tl.Transformation(input, "positions", "positions",
		fmt.Sprintf("Migrated %d positions to canonical schema", len(positions)))
	return m.finish(logger, &out, start, nil)
}

// CreateTransactionLog derives a canonical transaction log from the legacy
// positions file, which is read but never modified.
func (m *Migrator) CreateTransactionLog(ctx context.Context, tl *translog.Log, output, positionsInput string) (Outcome, error) {
	start := m.now()
	out := Outcome{Name: NameTransactionLog, Input: positionsInput, Output: output}
	logger := logging.WithOperation(logging.WithFile(m.logger, output), NameTransactionLog)

	if !fileExists(positionsInput) {
		tl.Warningf("migration", "Positions file not found at %s, transaction log not created", positionsInput)
		return m.skip(logger, &out, start)
	}

	legacy, err := readLegacyPositions(positionsInput)
	if err != nil {
		tl.Errorf(output, "Creation failed: %v", err)
		return m.finish(logger, &out, start, err)
	}

	log := mapping.New(tl, m.now).TransactionLog(legacy)
	out.Records = len(log.Entries)

	if m.registry.Has(models.DefTransactionLog) {
		if verr := m.validate(ctx, logger, models.DefTransactionLog, output, -1, log); verr != nil {
			tl.Errorf(output, "Validation failed: %s", violationsJSON(verr.Violations))
			return m.finish(logger, &out, start, verr)
		}
	} else {
		tl.Warningf(output, "Schema has no %s definition, transaction log written unvalidated", models.DefTransactionLog)
	}

	if err := writeJSON(output, log); err != nil {
		tl.Errorf(output, "Creation failed: %v", err)
		return m.finish(logger, &out, start, err)
	}
	m.written(ctx, logger, models.DefTransactionLog, output, out.Records)
	tl.Transformation("new-file", filepath.Base(output), "transactionLog", "Created new transaction log file")
	return m.finish(logger, &out, start, nil)
}

// CreateConversationContext writes a fresh conversation context, seeded from
// the session manifest when it exists.
func (m *Migrator) CreateConversationContext(ctx context.Context, tl *translog.Log, output, manifestPath string) (Outcome, error) {
	start := m.now()
	out := Outcome{Name: NameConversationContext, Input: manifestPath, Output: output}
	logger := logging.WithOperation(logging.WithFile(m.logger, output), NameConversationContext)

	var manifest *models.SessionManifest
	if manifestPath != "" && fileExists(manifestPath) {
		mf, err := readManifest(manifestPath)
		if err != nil {
			tl.Errorf(output, "Creation failed: %v", err)
			return m.finish(logger, &out, start, err)
		}
		manifest = mf
	} else {
		tl.Warningf("migration", "Session manifest not found at %s, using defaults", manifestPath)
	}

	convo := mapping.New(tl, m.now).ConversationContext(manifest)
	out.Records = 1

	if verr := m.validate(ctx, logger, models.DefConversationContext, output, -1, convo); verr != nil {
		tl.Errorf(output, "Validation failed: %s", violationsJSON(verr.Violations))
		return m.finish(logger, &out, start, verr)
	}

	if err := writeJSON(output, convo); err != nil {
		tl.Errorf(output, "Creation failed: %v", err)
		return m.finish(logger, &out, start, err)
	}
	m.written(ctx, logger, models.DefConversationContext, output, out.Records)
	tl.Transformation("new-file", filepath.Base(output), "conversationContext", "Created new conversation context file")
	return m.finish(logger, &out, start, nil)
}

func (m *Migrator) snapshot(ctx context.Context, logger zerolog.Logger, path string) (string, error) {
	backupPath, err := backup.SnapshotAt(path, m.now())
	if err != nil {
		return "", err
	}
	logging.LogBackup(logger, path, backupPath)
	if m.auditor != nil {
		if aerr := m.auditor.BackupCreated(ctx, path, backupPath); aerr != nil {
			logger.Warn().Err(aerr).Msg("Audit write failed")
		}
	}
	return backupPath, nil
}

func (m *Migrator) rollback(ctx context.Context, logger zerolog.Logger, tl *translog.Log, out *Outcome, backupPath, original string) {
	err := backup.Restore(backupPath, original)
	logging.LogRestore(logger, backupPath, original, err)
	if err != nil {
		tl.Errorf(original, "Restore from %s failed: %v", backupPath, err)
	} else {
		out.Restored = true
	}
	if m.auditor != nil {
		if aerr := m.auditor.BackupRestored(ctx, backupPath, original, err); aerr != nil {
			logger.Warn().Err(aerr).Msg("Audit write failed")
		}
	}
}

// validate returns nil when v satisfies the definition.
func (m *Migrator) validate(ctx context.Context, logger zerolog.Logger, def, path string, index int, v interface{}) *apperrors.ValidationError {
	res, err := m.registry.Validate(def, v)
	if err != nil {
		res.Violations = []apperrors.Violation{{Rule: "definition", Message: err.Error()}}
	}
	logging.LogValidation(logger, def, len(res.Violations))
	if res.Valid && err == nil {
		return nil
	}
	if m.auditor != nil {
		if aerr := m.auditor.ValidationFailed(ctx, def, path, len(res.Violations)); aerr != nil {
			logger.Warn().Err(aerr).Msg("Audit write failed")
		}
	}
	return apperrors.NewValidationError(def, index, res.Violations)
}

func (m *Migrator) written(ctx context.Context, logger zerolog.Logger, def, path string, records int) {
	if m.auditor == nil {
		return
	}
	if err := m.auditor.OutputWritten(ctx, def, path, records); err != nil {
		logger.Warn().Err(err).Msg("Audit write failed")
	}
}

func (m *Migrator) skip(logger zerolog.Logger, out *Outcome, start time.Time) (Outcome, error) {
	out.Skipped = true
	logger.Warn().Msg("Input not found, skipping")
	return m.finish(logger, out, start, fmt.Errorf("%w: %s", apperrors.ErrInputMissing, out.Input))
}

func (m *Migrator) finish(logger zerolog.Logger, out *Outcome, start time.Time, err error) (Outcome, error) {
	out.Duration = m.now().Sub(start)
	out.Success = err == nil
	if err != nil {
		out.Error = err.Error()
	}
	logging.LogMigrationResult(logger, out.Name, out.Output, out.Success, out.Duration)
	return *out, err
}
