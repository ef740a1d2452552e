package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	apperrors "intent-trader/internal/errors"
	"intent-trader/internal/schema"
)

func addSchemaCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Canonical schema utilities",
	}
	cmd.AddCommand(newSchemaInfoCmd(app))
	cmd.AddCommand(newSchemaInitCmd())
	cmd.AddCommand(newSchemaValidateCmd(app))
	rootCmd.AddCommand(cmd)
}

func newSchemaInfoCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show the loaded schema and its definitions",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			reg, err := app.loadSchema()
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"source":      reg.Source(),
					"version":     reg.Version(),
					"definitions": reg.Definitions(),
				})
			}
			output.Printf("Source:  %s\n", reg.Source())
			output.Printf("Version: %s\n", reg.Version())
			output.Bold("Definitions")
			for _, d := range reg.Definitions() {
				output.Printf("  %s\n", d)
			}
			return nil
		},
	}
}

func newSchemaInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write the bundled canonical schema document",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			path := "canonical.schema.json"
			if len(args) == 1 {
				path = args[0]
			}
			force, _ := cmd.Flags().GetBool("force")
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := os.WriteFile(path, schema.Bundled(), 0644); err != nil {
				return apperrors.NewFileError("write", path, err)
			}
			if output.IsJSON() {
				return output.JSON(map[string]string{"path": path})
			}
			output.Success("Wrote canonical schema to %s", path)
			return nil
		},
	}
	cmd.Flags().Bool("force", false, "overwrite an existing file")
	return cmd
}

type documentReport struct {
	Index      int                   `json:"index"`
	Valid      bool                  `json:"valid"`
	Violations []apperrors.Violation `json:"violations"`
}

func newSchemaValidateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <definition> <file>",
		Short: "Validate a JSON document against a schema definition",
		Long: `Validate a JSON document against one definition of the canonical schema.
A top-level array is validated element by element.`,
		Example: `  intent-trader schema validate tradePlan trade-plan-state.canonical.json
  intent-trader schema validate tradePosition my-positions.canonical.json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			definition, path := args[0], args[1]

			reg, err := app.loadSchema()
			if err != nil {
				return err
			}
			validator, err := reg.CompileValidator(definition)
			if err != nil {
				return err
			}

			data, err := os.ReadFile(path)
			if err != nil {
				return apperrors.NewFileError("read", path, err)
			}
			var doc interface{}
			if err := json.Unmarshal(data, &doc); err != nil {
				return fmt.Errorf("parsing %s: %w", path, err)
			}

			var reports []documentReport
			if items, ok := doc.([]interface{}); ok {
				for i, item := range items {
					res := validator.Validate(item)
					reports = append(reports, documentReport{Index: i, Valid: res.Valid, Violations: res.Violations})
				}
			} else {
				res := validator.Validate(doc)
				reports = append(reports, documentReport{Index: -1, Valid: res.Valid, Violations: res.Violations})
			}

			invalid := 0
			for _, r := range reports {
				if !r.Valid {
					invalid++
				}
			}

			if output.IsJSON() {
				if err := output.JSON(reports); err != nil {
					return err
				}
			} else {
				for _, r := range reports {
					label := path
					if r.Index >= 0 {
						label = fmt.Sprintf("%s[%d]", path, r.Index)
					}
					if r.Valid {
						output.Success("✓ %s", label)
						continue
					}
					output.Error("✗ %s", label)
					for _, v := range r.Violations {
						output.Printf("    %s\n", v.String())
					}
				}
			}

			if invalid > 0 {
				return fmt.Errorf("%w: %d of %d documents invalid against %s", apperrors.ErrValidationFailed, invalid, len(reports), definition)
			}
			return nil
		},
	}
}
