package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Intent Trader Configuration

[paths]
# Directory the relative file names below resolve against
work_dir = "."
trade_plan_input = "trade-plan-state.json"
trade_plan_output = "trade-plan-state.canonical.json"
positions_input = "my-positions.json"
positions_output = "my-positions.canonical.json"
transaction_log_output = "transaction-log.canonical.json"
# Optional; defaults are used when it does not exist
session_manifest = "session-manifest.json"
conversation_context_output = "conversation-context.json"
migration_log = "migration.log.json"

[schema]
# Canonical schema document; empty uses the bundled schema
path = ""

[logging]
# Level: debug, info, warn, error
level = "info"
# Also write a rotated log file
file = false
# file_path = "~/.config/intent-trader/logs/intent-trader.log"
max_size = 10
max_backups = 5
max_age = 30

[store]
# Record every migrate run in a local SQLite ledger
enabled = true
# path = "~/.config/intent-trader/runs.db"

[audit]
# JSON-lines audit of backups, restores and written outputs
enabled = true
# dir = "~/.config/intent-trader/audit"

[plugins]
registry = "plugin-registry.json"
manifest = "session-manifest.json"
root = "."
prompts = "prompts"

[replay]
trade_log = "trade-log.json"
output = "replay-summary.json"
`

// Template returns the commented default config file.
func Template() string {
	return configTemplate
}

// Init writes the config template into configDir and returns its path. An
// existing file is kept unless force is set.
func Init(configDir string, force bool) (string, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, FileName)
	if _, err := os.Stat(path); err == nil && !force {
		return path, fmt.Errorf("config file already exists at %s", path)
	}
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return "", fmt.Errorf("writing config template: %w", err)
	}
	return path, nil
}
