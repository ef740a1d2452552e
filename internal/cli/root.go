// Package cli provides the command-line interface for the migration toolkit.
package cli

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"intent-trader/internal/audit"
	"intent-trader/internal/config"
	"intent-trader/internal/logging"
	"intent-trader/internal/schema"
	"intent-trader/internal/store"
)

// Version information
const (
	Version   = "0.5.2"
	BuildDate = "2025-05-15"
)

// App holds the application dependencies.
type App struct {
	Config    *config.Config
	ConfigDir string
	Logger    zerolog.Logger
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd() *cobra.Command {
	app := &App{Logger: zerolog.Nop()}

	rootCmd := &cobra.Command{
		Use:   "intent-trader",
		Short: "Intent Trader - trading state migration toolkit",
		Long: `Intent Trader migrates legacy trading state files (trade plan, positions,
session manifest) into documents conforming to the canonical schema.

Every input is backed up before it is touched, every mapped document is
validated before it is written, and every mapping decision is recorded in
the migration log.

Use 'intent-trader help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.init(cmd)
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/intent-trader)")
	rootCmd.PersistentFlags().String("schema", "", "canonical schema document (default: bundled)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	addCoreCommands(rootCmd, app)
	addMigrateCommands(rootCmd, app)
	addRunsCommands(rootCmd, app)
	addSchemaCommands(rootCmd, app)
	addPluginCommands(rootCmd, app)
	addReplayCommands(rootCmd, app)

	return rootCmd
}

func (app *App) init(cmd *cobra.Command) error {
	app.ConfigDir, _ = cmd.Flags().GetString("config")
	if app.ConfigDir == "" {
		app.ConfigDir = config.DefaultConfigDir()
	}

	cfg, err := config.Load(app.ConfigDir)
	if err != nil {
		return err
	}
	if schemaPath, _ := cmd.Flags().GetString("schema"); schemaPath != "" {
		cfg.Schema.Path = schemaPath
	}
	app.Config = cfg

	lc := cfg.LogConfig()
	lc.Out = cmd.ErrOrStderr()
	app.Logger = logging.NewLoggerWithConfig(lc)

	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		logging.SetDebugLevel()
		app.Logger = app.Logger.Level(zerolog.DebugLevel)
	}
	if cfg.File != "" {
		app.Logger.Debug().Str("file", cfg.File).Msg("Configuration loaded")
	}
	return nil
}

// loadSchema loads the configured canonical schema, or the bundled one.
func (app *App) loadSchema() (*schema.Registry, error) {
	if app.Config.Schema.Path == "" {
		return schema.Default()
	}
	return schema.Load(app.Config.Schema.Path)
}

// openStore opens the run ledger, or returns nil when it is disabled.
func (app *App) openStore() (*store.SQLiteStore, error) {
	if !app.Config.Store.Enabled {
		return nil, nil
	}
	s, err := store.NewSQLiteStore(app.Config.Store.Path)
	if err != nil {
		return nil, err
	}
	app.Logger.Debug().Str("path", app.Config.Store.Path).Msg("SQLite store initialized")
	return s, nil
}

// requireStore opens the run ledger and fails when it is disabled.
func (app *App) requireStore() (*store.SQLiteStore, error) {
	s, err := app.openStore()
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("run ledger is disabled (store.enabled = false)")
	}
	return s, nil
}

// openAuditor opens the audit trail, or returns nil when it is disabled.
func (app *App) openAuditor() (*audit.Logger, error) {
	if !app.Config.Audit.Enabled {
		return nil, nil
	}
	cfg := audit.DefaultConfig()
	cfg.LogDir = app.Config.Audit.Dir
	return audit.New(cfg)
}

// addCoreCommands adds core utility commands.
func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":        Version,
					"build_date":     BuildDate,
					"schema_version": schemaVersionOrUnknown(),
				})
			} else {
				output.Printf("Intent Trader v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
				output.Dim("Bundled schema: %s", schemaVersionOrUnknown())
			}
		},
	}
}

func schemaVersionOrUnknown() string {
	reg, err := schema.Default()
	if err != nil {
		return "unknown"
	}
	return reg.Version()
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and manage application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			return showConfig(output, app.Config)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			path := config.Path(app.ConfigDir)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": path})
			} else {
				output.Println(path)
			}
		},
	})

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a commented config template",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			force, _ := cmd.Flags().GetBool("force")
			path, err := config.Init(app.ConfigDir, force)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]string{"path": path})
			}
			output.Success("Created config template at %s", path)
			return nil
		},
	}
	initCmd.Flags().Bool("force", false, "overwrite an existing config file")
	cmd.AddCommand(initCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]bool{"valid": true})
			}
			output.Success("✓ Configuration is valid")
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) error {
	file := cfg.File
	if file == "" {
		file = "(defaults)"
	}
	output.Dim("Config file: %s", file)
	output.Println()

	output.Bold("Paths")
	output.Printf("  Work Dir:             %s\n", cfg.Paths.WorkDir)
	output.Printf("  Trade Plan:           %s -> %s\n", cfg.Paths.TradePlanInput, cfg.Paths.TradePlanOutput)
	output.Printf("  Positions:            %s -> %s\n", cfg.Paths.PositionsInput, cfg.Paths.PositionsOutput)
	output.Printf("  Transaction Log:      %s\n", cfg.Paths.TransactionLogOutput)
	output.Printf("  Session Manifest:     %s\n", cfg.Paths.SessionManifest)
	output.Printf("  Conversation Context: %s\n", cfg.Paths.ConversationContextOutput)
	output.Printf("  Migration Log:        %s\n", cfg.Paths.MigrationLog)
	output.Println()

	schemaPath := cfg.Schema.Path
	if schemaPath == "" {
		schemaPath = "(bundled)"
	}
	output.Bold("Schema")
	output.Printf("  Path:                 %s\n", schemaPath)
	output.Println()

	output.Bold("Logging")
	output.Printf("  Level:                %s\n", cfg.Logging.Level)
	output.Printf("  File:                 %v (%s)\n", cfg.Logging.File, cfg.Logging.FilePath)
	output.Println()

	output.Bold("Run Ledger & Audit")
	output.Printf("  Store:                %v (%s)\n", cfg.Store.Enabled, cfg.Store.Path)
	output.Printf("  Audit:                %v (%s)\n", cfg.Audit.Enabled, cfg.Audit.Dir)
	output.Println()

	output.Bold("Plugins")
	output.Printf("  Registry:             %s\n", cfg.Plugins.Registry)
	output.Printf("  Manifest:             %s\n", cfg.Plugins.Manifest)
	output.Printf("  Root:                 %s\n", cfg.Plugins.Root)
	output.Printf("  Prompts:              %s\n", cfg.Plugins.Prompts)

	return nil
}
