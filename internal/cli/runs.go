package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"intent-trader/internal/models"
	"intent-trader/internal/store"
)

func addRunsCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect recorded migration runs",
		Long:  "List, show and prune the migration runs recorded in the local run ledger.",
	}
	cmd.AddCommand(newRunsListCmd(app))
	cmd.AddCommand(newRunsShowCmd(app))
	cmd.AddCommand(newRunsPruneCmd(app))
	rootCmd.AddCommand(cmd)
}

func newRunsListCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			s, err := app.requireStore()
			if err != nil {
				return err
			}
			defer s.Close()

			filter := store.RunFilter{}
			filter.Limit, _ = cmd.Flags().GetInt("limit")
			if failed, _ := cmd.Flags().GetBool("failed"); failed {
				ok := false
				filter.Success = &ok
			}
			if since, _ := cmd.Flags().GetDuration("since"); since > 0 {
				filter.Since = time.Now().Add(-since)
			}

			runs, err := s.ListRuns(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(runs)
			}
			if len(runs) == 0 {
				output.Dim("No runs recorded")
				return nil
			}

			table := NewTable(output, "ID", "STARTED", "DURATION", "RESULT", "TRANSFORMS", "ERRORS", "WARNINGS")
			for _, r := range runs {
				table.AddRow(
					ShortID(r.ID),
					FormatDateTime(r.StartedAt),
					FormatDuration(r.Duration()),
					runResult(output, r),
					fmt.Sprintf("%d", r.Transformations),
					fmt.Sprintf("%d", r.Errors),
					fmt.Sprintf("%d", r.Warnings),
				)
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().Int("limit", 20, "maximum number of runs")
	cmd.Flags().Bool("failed", false, "only failed runs")
	cmd.Flags().Duration("since", 0, "only runs started within this duration (e.g. 24h)")
	return cmd
}

func newRunsShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one run with its transformation log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			s, err := app.requireStore()
			if err != nil {
				return err
			}
			defer s.Close()

			run, err := s.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(run)
			}

			output.Bold("Run %s", run.ID)
			output.Printf("  Started:  %s\n", FormatDateTime(run.StartedAt))
			output.Printf("  Duration: %s\n", FormatDuration(run.Duration()))
			output.Printf("  Result:   %s\n", runResult(output, *run))
			output.Printf("  Schema:   %s (v%s)\n", run.SchemaSource, run.SchemaVersion)
			output.Printf("  Log:      %s\n", run.LogPath)
			output.Println()

			table := NewTable(output, "FILE", "STATUS", "RECORDS", "INPUT", "OUTPUT")
			for _, o := range run.Outcomes {
				table.AddRow(o.Name, output.Status(o.Success, o.Skipped), fmt.Sprintf("%d", o.Records), o.Input, o.Output)
			}
			table.Render()
			output.Println()

			for _, e := range run.Events {
				line := fmt.Sprintf("  %3d %-14s %s: %s", e.Seq, e.Kind, e.SourceFile, e.Message)
				switch e.Kind {
				case models.EventError:
					output.Error("%s", line)
				case models.EventWarning:
					output.Warning("%s", line)
				default:
					output.Println(line)
				}
			}
			return nil
		},
	}
}

func newRunsPruneCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete runs older than a cutoff",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			s, err := app.requireStore()
			if err != nil {
				return err
			}
			defer s.Close()

			olderThan, _ := cmd.Flags().GetDuration("older-than")
			n, err := s.DeleteRunsBefore(cmd.Context(), time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]int64{"deleted": n})
			}
			output.Success("Deleted %d runs", n)
			return nil
		},
	}
	cmd.Flags().Duration("older-than", 30*24*time.Hour, "age of the oldest run to keep")
	return cmd
}

func runResult(output *Output, r models.MigrationRun) string {
	if r.Success {
		return output.Green("success")
	}
	return output.Red("failed")
}
