package cli

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"intent-trader/internal/audit"
	"intent-trader/internal/logging"
	"intent-trader/internal/migrate"
)

var errMigrationFailed = errors.New("migration completed with failures")

func addMigrateCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newMigrateCmd(app))
}

// migrateOptions returns the configured file names resolved against the work directory.
func (app *App) migrateOptions() migrate.Options {
	p := app.Config.Paths
	return migrate.Options{
		TradePlanInput:            p.TradePlanInput,
		TradePlanOutput:           p.TradePlanOutput,
		PositionsInput:            p.PositionsInput,
		PositionsOutput:           p.PositionsOutput,
		TransactionLogOutput:      p.TransactionLogOutput,
		SessionManifest:           p.SessionManifest,
		ConversationContextOutput: p.ConversationContextOutput,
		LogPath:                   p.MigrationLog,
	}.InDir(p.WorkDir)
}

func newMigrateCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate [tradePlanIn] [tradePlanOut] [positionsIn] [positionsOut] [transactionLogOut] [sessionManifest] [conversationContextOut] [logPath]",
		Short: "Migrate legacy state files to the canonical schema",
		Long: `Migrate the trade plan and positions files, derive the transaction log and
conversation context, and write the migration log.

Each argument is optional and positional; omitted ones fall back to the
configured file names under the work directory. Inputs are backed up to
<file>.bak.<epoch-millis> before migration and restored if validation or
writing fails.

Exits non-zero unless every file migrated successfully.`,
		Example: `  intent-trader migrate
  intent-trader migrate ./state/trade-plan-state.json ./out/trade-plan.json
  intent-trader migrate --workdir ./state --json`,
		Args: cobra.MaximumNArgs(8),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			if dir, _ := cmd.Flags().GetString("workdir"); dir != "" {
				app.Config.Paths.WorkDir = dir
			}

			registry, err := app.loadSchema()
			if err != nil {
				return err
			}

			opts := app.migrateOptions().WithArgs(args)
			runID := uuid.NewString()
			logger := logging.WithRun(app.Logger, runID)
			ctx := audit.WithRunID(cmd.Context(), runID)

			migOpts := []migrate.Option{migrate.WithLogger(logger)}
			auditor, err := app.openAuditor()
			if err != nil {
				logger.Warn().Err(err).Msg("Audit trail unavailable")
			} else if auditor != nil {
				defer auditor.Close()
				migOpts = append(migOpts, migrate.WithAuditor(auditor))
			}

			logger.Debug().
				Str("schema", registry.Source()).
				Str("schema_version", registry.Version()).
				Msg("Schema loaded")

			res, runErr := migrate.New(registry, migOpts...).Run(ctx, opts)

			record := res.Record(runID, registry.Source(), registry.Version(), app.Config.Paths.WorkDir)
			if s, err := app.openStore(); err != nil {
				logger.Warn().Err(err).Msg("Run ledger unavailable")
			} else if s != nil {
				if err := s.SaveRun(ctx, &record); err != nil {
					logger.Warn().Err(err).Msg("Failed to record run")
				}
				s.Close()
			}

			if output.IsJSON() {
				if err := output.JSON(struct {
					RunID string `json:"runId"`
					*migrate.Result
				}{runID, res}); err != nil {
					return err
				}
			} else {
				printMigrationResult(output, runID, res)
			}

			if runErr != nil {
				return fmt.Errorf("writing migration log: %w", runErr)
			}
			if !res.Success {
				return errMigrationFailed
			}
			return nil
		},
	}

	cmd.Flags().String("workdir", "", "directory the configured file names resolve against")
	return cmd
}

func printMigrationResult(output *Output, runID string, res *migrate.Result) {
	output.Bold("Schema Migration")
	output.Dim("Run %s", runID)
	output.Println()

	table := NewTable(output, "FILE", "STATUS", "RECORDS", "OUTPUT", "DETAIL")
	for _, o := range res.Outcomes {
		detail := ""
		switch {
		case o.Error != "":
			detail = TruncateString(o.Error, 60)
		case o.Backup != "":
			detail = "backup " + o.Backup
		}
		if o.Restored {
			detail = "restored; " + detail
		}
		table.AddRow(o.Name, output.Status(o.Success, o.Skipped), fmt.Sprintf("%d", o.Records), o.Output, detail)
	}
	table.Render()
	output.Println()

	output.Printf("Transformations: %d  Errors: %s  Warnings: %s  Duration: %s\n",
		res.Summary.Transformations,
		output.Count(res.Summary.Errors, ColorRed),
		output.Count(res.Summary.Warnings, ColorYellow),
		FormatDuration(res.FinishedAt.Sub(res.StartedAt)))
	if res.LogPath != "" {
		output.Dim("Migration log: %s", res.LogPath)
	}
	if res.Success {
		output.Success("✓ Migration completed successfully")
	} else {
		output.Error("✗ Migration completed with failures")
	}
}
