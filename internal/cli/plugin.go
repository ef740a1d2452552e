package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"intent-trader/internal/plugins"
)

func addPluginCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "plugin",
		Short: "Plugin registry commands",
	}
	cmd.AddCommand(newPluginRunCmd(app))
	cmd.AddCommand(newPluginListCmd(app))
	cmd.AddCommand(newPluginLintCmd(app))
	rootCmd.AddCommand(cmd)
}

func (app *App) loadPluginRegistry() (*plugins.Registry, error) {
	return plugins.LoadRegistry(app.Config.Resolve(app.Config.Plugins.Registry))
}

func newPluginRunCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "run <command> [key=value | flag]...",
		Short: "Dispatch a registered command",
		Long: `Dispatch a registered command to its entry point.

Script entry points are simulated; prompt entry points are read and their
front matter reported. Commands registered for another session phase still
run, with a warning.`,
		Example: `  intent-trader plugin run analyze-dp ticker=SPY verbose`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			reg, err := app.loadPluginRegistry()
			if err != nil {
				return err
			}

			manifest := app.Config.Resolve(app.Config.Plugins.Manifest)
			phase, err := plugins.CurrentPhase(manifest)
			if err != nil {
				app.Logger.Warn().Err(err).Str("manifest", manifest).Msg("Session phase unknown")
				phase = ""
			}

			d := plugins.NewDispatcher(reg, app.Config.Resolve(app.Config.Plugins.Root), phase,
				plugins.WithLogger(app.Logger))
			res, runErr := d.Dispatch(cmd.Context(), args[0], plugins.ParseParams(args[1:]))

			if err := output.JSON(res); err != nil {
				return err
			}
			return runErr
		},
	}
}

func newPluginListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			reg, err := app.loadPluginRegistry()
			if err != nil {
				return err
			}
			list := reg.Plugins()
			if output.IsJSON() {
				return output.JSON(list)
			}
			table := NewTable(output, "ID", "TYPE", "PHASE", "ENTRY POINT", "DESCRIPTION")
			for _, p := range list {
				table.AddRow(p.ID, p.Type, p.Phase, p.EntryPoint, TruncateString(p.Description, 40))
			}
			table.Render()
			return nil
		},
	}
}

var errLintFailed = errors.New("prompt lint failed")

func newPluginLintCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "lint [dir]",
		Short: "Check prompt front matter",
		Long:  "Check that every prompt file carries title, description, phase, route and version in its front matter.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			dir := app.Config.Resolve(app.Config.Plugins.Prompts)
			if len(args) == 1 {
				dir = args[0]
			}
			if _, err := os.Stat(dir); err != nil {
				return fmt.Errorf("prompt directory %s: %w", dir, err)
			}

			results, err := plugins.LintDir(dir)
			if err != nil {
				return err
			}

			failed := 0
			for _, r := range results {
				if !r.OK {
					failed++
				}
			}

			if output.IsJSON() {
				if err := output.JSON(results); err != nil {
					return err
				}
			} else {
				for _, r := range results {
					if r.OK {
						output.Success("✓ %s", r.Path)
					} else {
						output.Error("✗ %s: %s", r.Path, r.Reason)
					}
				}
				output.Println()
				output.Printf("%d files, %d failed\n", len(results), failed)
			}

			if failed > 0 {
				return fmt.Errorf("%w: %d of %d files", errLintFailed, failed, len(results))
			}
			return nil
		},
	}
}
