// Package plugins dispatches registered commands to their entry points by
// session phase.
package plugins

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	apperrors "intent-trader/internal/errors"
	"intent-trader/internal/models"
)

// PhaseAny matches every session phase.
const PhaseAny = "any"

// Plugin is one registry entry.
type Plugin struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"`
	Phase       string   `json:"phase"`
	EntryPoint  string   `json:"entryPoint"`
	DependsOn   []string `json:"dependsOn,omitempty"`
	Description string   `json:"description,omitempty"`
}

// Registry is the set of known plugins.
type Registry struct {
	plugins []Plugin
	byID    map[string]int
}

// NewRegistry indexes plugins by id. Later duplicates win.
func NewRegistry(plugins []Plugin) *Registry {
	r := &Registry{plugins: plugins, byID: make(map[string]int, len(plugins))}
	for i, p := range plugins {
		r.byID[p.ID] = i
	}
	return r
}

// LoadRegistry reads a JSON array of plugins.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewFileError("read", path, err)
	}
	var plugins []Plugin
	if err := json.Unmarshal(data, &plugins); err != nil {
		return nil, fmt.Errorf("parsing plugin registry %s: %w", path, err)
	}
	return NewRegistry(plugins), nil
}

// Find returns the plugin with id.
func (r *Registry) Find(id string) (Plugin, bool) {
	i, ok := r.byID[id]
	if !ok {
		return Plugin{}, false
	}
	return r.plugins[i], true
}

// Plugins returns every registered plugin in file order.
func (r *Registry) Plugins() []Plugin {
	out := make([]Plugin, len(r.plugins))
	copy(out, r.plugins)
	return out
}

// CurrentPhase reads currentPhase from a session manifest.
func CurrentPhase(manifestPath string) (string, error) {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return "", apperrors.NewFileError("read", manifestPath, err)
	}
	var m models.SessionManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return "", fmt.Errorf("parsing %s: %w", manifestPath, err)
	}
	return m.CurrentPhase, nil
}

// ParseParams turns CLI arguments into parameters: key=value pairs become
// strings and bare words become true.
func ParseParams(args []string) map[string]interface{} {
	params := make(map[string]interface{}, len(args))
	for _, arg := range args {
		if key, value, ok := strings.Cut(arg, "="); ok {
			params[key] = value
		} else {
			params[arg] = true
		}
	}
	return params
}

// Execution is the payload of a successful dispatch.
type Execution struct {
	ExecutionTime string                 `json:"executionTime,omitempty"`
	PromptLength  *int                   `json:"promptLength,omitempty"`
	FrontMatter   FrontMatter            `json:"frontMatter,omitempty"`
	Parameters    map[string]interface{} `json:"parameters"`
}

// Result is the outcome of a dispatch.
type Result struct {
	Success  bool       `json:"success"`
	Command  string     `json:"command"`
	Result   *Execution `json:"result,omitempty"`
	Message  string     `json:"message"`
	Warnings []string   `json:"warnings,omitempty"`
}

// Dispatcher executes commands from a registry.
type Dispatcher struct {
	registry *Registry
	root     string
	phase    string
	logger   zerolog.Logger
	now      func() time.Time
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithLogger sets the dispatcher logger.
func WithLogger(logger zerolog.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.logger = logger }
}

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) { d.now = now }
}

// NewDispatcher resolves entry points under root and checks plugins against phase.
func NewDispatcher(registry *Registry, root, phase string, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		root:     root,
		phase:    phase,
		logger:   zerolog.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch runs command with params. The result is always populated; the
// error is non-nil exactly when the result reports failure.
func (d *Dispatcher) Dispatch(ctx context.Context, command string, params map[string]interface{}) (*Result, error) {
	if params == nil {
		params = map[string]interface{}{}
	}
	res := &Result{Command: command}
	logger := d.logger.With().Str("command", command).Logger()

	plugin, ok := d.registry.Find(command)
	if !ok {
		logger.Error().Msg("Command not found")
		res.Message = fmt.Sprintf("Command '%s' not found in registry.", command)
		return res, apperrors.NewPluginError(command, "lookup", apperrors.ErrPluginNotFound)
	}

	if plugin.Phase != PhaseAny && plugin.Phase != d.phase {
		w := fmt.Sprintf("Command %s is designed for %s phase, but current phase is %s", command, plugin.Phase, d.phase)
		logger.Warn().Str("phase", d.phase).Str("plugin_phase", plugin.Phase).Msg("Phase mismatch")
		res.Warnings = append(res.Warnings, w)
	}

	for _, dep := range plugin.DependsOn {
		if _, ok := d.registry.Find(dep); !ok {
			logger.Warn().Str("dependency", dep).Msg("Dependency not found")
			res.Warnings = append(res.Warnings, "Dependency not found: "+dep)
			continue
		}
		logger.Debug().Str("dependency", dep).Msg("Validating dependency")
	}

	if err := ctx.Err(); err != nil {
		res.Message = fmt.Sprintf("Error executing %s: %v", command, err)
		return res, apperrors.NewPluginError(command, "cancelled", err)
	}

	entryPath := plugin.EntryPoint
	if !filepath.IsAbs(entryPath) {
		entryPath = filepath.Join(d.root, entryPath)
	}
	if _, err := os.Stat(entryPath); err != nil {
		logger.Error().Str("entry_point", plugin.EntryPoint).Msg("Entry point missing")
		res.Message = fmt.Sprintf("Command '%s' entry point not found at %s.", command, plugin.EntryPoint)
		return res, apperrors.NewPluginError(command, plugin.EntryPoint, apperrors.ErrEntryPointMissing)
	}

	logger.Info().Str("type", plugin.Type).Msg("Executing plugin")

	switch ext := filepath.Ext(entryPath); ext {
	case ".js":
		res.Success = true
		res.Result = &Execution{
			ExecutionTime: models.ISOTime(d.now()),
			Parameters:    params,
		}
		res.Message = "Successfully executed " + command
		return res, nil

	case ".md":
		content, err := os.ReadFile(entryPath)
		if err != nil {
			res.Message = fmt.Sprintf("Error processing prompt %s: %v", command, err)
			return res, apperrors.NewPluginError(command, "read prompt", err)
		}
		length := len(content)
		exec := &Execution{PromptLength: &length, Parameters: params}
		if fm, err := ParseFrontMatter(content); err == nil {
			exec.FrontMatter = fm
		} else {
			res.Warnings = append(res.Warnings, fmt.Sprintf("Prompt %s: %v", plugin.EntryPoint, err))
		}
		logger.Info().Int("prompt_length", length).Msg("Loaded prompt")
		res.Success = true
		res.Result = exec
		res.Message = fmt.Sprintf("Successfully processed %s prompt", command)
		return res, nil

	default:
		logger.Error().Str("ext", ext).Msg("Unsupported entry point type")
		res.Message = fmt.Sprintf("Unsupported entry point type for %s: %s", command, ext)
		return res, apperrors.NewPluginError(command, ext, apperrors.ErrUnsupportedEntryPoint)
	}
}
