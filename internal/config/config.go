// Package config handles configuration loading and validation.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	apperrors "intent-trader/internal/errors"
	"intent-trader/internal/logging"
)

// FileName is the config file name inside the config directory.
const FileName = "config.toml"

// Environment overrides.
const (
	EnvSchema   = "INTENT_TRADER_SCHEMA"
	EnvLogLevel = "INTENT_TRADER_LOG_LEVEL"
	EnvStore    = "INTENT_TRADER_STORE"
	EnvWorkDir  = "INTENT_TRADER_WORKDIR"
)

// Config holds all application configuration.
type Config struct {
	Paths   PathsConfig   `mapstructure:"paths" json:"paths"`
	Schema  SchemaConfig  `mapstructure:"schema" json:"schema"`
	Logging LoggingConfig `mapstructure:"logging" json:"logging"`
	Store   StoreConfig   `mapstructure:"store" json:"store"`
	Audit   AuditConfig   `mapstructure:"audit" json:"audit"`
	Plugins PluginsConfig `mapstructure:"plugins" json:"plugins"`
	Replay  ReplayConfig  `mapstructure:"replay" json:"replay"`

	// File is the config file that was read, empty when defaults were used.
	File string `mapstructure:"-" json:"file"`
}

// PathsConfig holds the default migration file names, relative to WorkDir.
type PathsConfig struct {
	WorkDir                   string `mapstructure:"work_dir" json:"workDir"`
	TradePlanInput            string `mapstructure:"trade_plan_input" json:"tradePlanInput"`
	TradePlanOutput           string `mapstructure:"trade_plan_output" json:"tradePlanOutput"`
	PositionsInput            string `mapstructure:"positions_input" json:"positionsInput"`
	PositionsOutput           string `mapstructure:"positions_output" json:"positionsOutput"`
	TransactionLogOutput      string `mapstructure:"transaction_log_output" json:"transactionLogOutput"`
	SessionManifest           string `mapstructure:"session_manifest" json:"sessionManifest"`
	ConversationContextOutput string `mapstructure:"conversation_context_output" json:"conversationContextOutput"`
	MigrationLog              string `mapstructure:"migration_log" json:"migrationLog"`
}

// SchemaConfig selects the canonical schema document. An empty path uses the bundled one.
type SchemaConfig struct {
	Path string `mapstructure:"path" json:"path"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level      string `mapstructure:"level" json:"level"`
	File       bool   `mapstructure:"file" json:"file"`
	FilePath   string `mapstructure:"file_path" json:"filePath"`
	MaxSize    int    `mapstructure:"max_size" json:"maxSize"`
	MaxBackups int    `mapstructure:"max_backups" json:"maxBackups"`
	MaxAge     int    `mapstructure:"max_age" json:"maxAge"`
}

// StoreConfig holds the run ledger settings.
type StoreConfig struct {
	Enabled bool   `mapstructure:"enabled" json:"enabled"`
	Path    string `mapstructure:"path" json:"path"`
}

// AuditConfig holds the file audit trail settings.
type AuditConfig struct {
	Enabled bool   `mapstructure:"enabled" json:"enabled"`
	Dir     string `mapstructure:"dir" json:"dir"`
}

// PluginsConfig locates the plugin registry and prompts.
type PluginsConfig struct {
	Registry string `mapstructure:"registry" json:"registry"`
	Manifest string `mapstructure:"manifest" json:"manifest"`
	Root     string `mapstructure:"root" json:"root"`
	Prompts  string `mapstructure:"prompts" json:"prompts"`
}

// ReplayConfig holds the replay input and output files.
type ReplayConfig struct {
	TradeLog string `mapstructure:"trade_log" json:"tradeLog"`
	Output   string `mapstructure:"output" json:"output"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/intent-trader"
	}
	return filepath.Join(home, ".config", "intent-trader")
}

// Path returns the config file path inside configDir.
func Path(configDir string) string {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}
	return filepath.Join(configDir, FileName)
}

func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("paths.work_dir", ".")
	v.SetDefault("paths.trade_plan_input", "trade-plan-state.json")
	v.SetDefault("paths.trade_plan_output", "trade-plan-state.canonical.json")
	v.SetDefault("paths.positions_input", "my-positions.json")
	v.SetDefault("paths.positions_output", "my-positions.canonical.json")
	v.SetDefault("paths.transaction_log_output", "transaction-log.canonical.json")
	v.SetDefault("paths.session_manifest", "session-manifest.json")
	v.SetDefault("paths.conversation_context_output", "conversation-context.json")
	v.SetDefault("paths.migration_log", "migration.log.json")

	v.SetDefault("schema.path", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", false)
	v.SetDefault("logging.file_path", filepath.Join(configDir, "logs", "intent-trader.log"))
	v.SetDefault("logging.max_size", 10)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age", 30)

	v.SetDefault("store.enabled", true)
	v.SetDefault("store.path", filepath.Join(configDir, "runs.db"))

	v.SetDefault("audit.enabled", true)
	v.SetDefault("audit.dir", filepath.Join(configDir, "audit"))

	v.SetDefault("plugins.registry", "plugin-registry.json")
	v.SetDefault("plugins.manifest", "session-manifest.json")
	v.SetDefault("plugins.root", ".")
	v.SetDefault("plugins.prompts", "prompts")

	v.SetDefault("replay.trade_log", "trade-log.json")
	v.SetDefault("replay.output", "replay-summary.json")
}

// Load reads config.toml from configDir, applying defaults for anything it
// does not set. A missing file is not an error. Environment variables, after
// loading .env from the working directory, override the file.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := viper.New()
	v.SetConfigName(strings.TrimSuffix(FileName, filepath.Ext(FileName)))
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v, configDir)

	cfg := &Config{}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("loading %s: %w", FileName, err)
		}
	} else {
		cfg.File = v.ConfigFileUsed()
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", FileName, err)
	}

	_ = godotenv.Load()
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvSchema); v != "" {
		cfg.Schema.Path = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv(EnvStore); v != "" {
		switch strings.ToLower(v) {
		case "off", "false", "0":
			cfg.Store.Enabled = false
		default:
			cfg.Store.Enabled = true
			cfg.Store.Path = v
		}
	}
	if v := os.Getenv(EnvWorkDir); v != "" {
		cfg.Paths.WorkDir = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	required := map[string]string{
		"paths.trade_plan_input":            c.Paths.TradePlanInput,
		"paths.trade_plan_output":           c.Paths.TradePlanOutput,
		"paths.positions_input":             c.Paths.PositionsInput,
		"paths.positions_output":            c.Paths.PositionsOutput,
		"paths.transaction_log_output":      c.Paths.TransactionLogOutput,
		"paths.conversation_context_output": c.Paths.ConversationContextOutput,
		"paths.migration_log":               c.Paths.MigrationLog,
	}
	for _, key := range sortedKeys(required) {
		if strings.TrimSpace(required[key]) == "" {
			return fmt.Errorf("%w: %s must not be empty", apperrors.ErrConfigInvalid, key)
		}
	}

	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("%w: invalid log level: %s (must be debug, info, warn or error)", apperrors.ErrConfigInvalid, c.Logging.Level)
	}
	if c.Logging.File && c.Logging.FilePath == "" {
		return fmt.Errorf("%w: logging.file_path is required when file logging is on", apperrors.ErrConfigInvalid)
	}
	if c.Store.Enabled && c.Store.Path == "" {
		return fmt.Errorf("%w: store.path is required when the store is enabled", apperrors.ErrConfigInvalid)
	}
	if c.Audit.Enabled && c.Audit.Dir == "" {
		return fmt.Errorf("%w: audit.dir is required when auditing is enabled", apperrors.ErrConfigInvalid)
	}
	return nil
}

// LogConfig converts the logging section for the logger.
func (c *Config) LogConfig() logging.LogConfig {
	lc := logging.DefaultLogConfig()
	lc.Level = c.Logging.Level
	lc.File = c.Logging.File
	if c.Logging.FilePath != "" {
		lc.FilePath = c.Logging.FilePath
	}
	if c.Logging.MaxSize > 0 {
		lc.MaxSize = c.Logging.MaxSize
	}
	if c.Logging.MaxBackups > 0 {
		lc.MaxBackups = c.Logging.MaxBackups
	}
	if c.Logging.MaxAge > 0 {
		lc.MaxAge = c.Logging.MaxAge
	}
	return lc
}

// Resolve joins a relative path onto the work directory.
func (c *Config) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || c.Paths.WorkDir == "" {
		return path
	}
	return filepath.Join(c.Paths.WorkDir, path)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
