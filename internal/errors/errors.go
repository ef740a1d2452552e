// Package errors provides custom error types for migration and dispatch errors.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Standard sentinel errors
var (
	ErrSchemaUnavailable     = errors.New("canonical schema unavailable")
	ErrSchemaDefinition      = errors.New("schema definition not found")
	ErrInvalidStructure      = errors.New("invalid legacy structure")
	ErrValidationFailed      = errors.New("schema validation failed")
	ErrInputMissing          = errors.New("input file not found")
	ErrBackupFailed          = errors.New("backup failed")
	ErrRestoreFailed         = errors.New("restore failed")
	ErrPluginNotFound        = errors.New("command not found in registry")
	ErrEntryPointMissing     = errors.New("entry point not found")
	ErrUnsupportedEntryPoint = errors.New("unsupported entry point type")
	ErrConfigInvalid         = errors.New("invalid configuration")
)

// StructureError reports a legacy file whose expected top-level container is absent.
type StructureError struct {
	File string
	Key  string
	Kind string
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("invalid %s structure in %s: missing %s", e.Kind, e.File, e.Key)
}

func (e *StructureError) Unwrap() error {
	return ErrInvalidStructure
}

// NewStructureError creates a new StructureError.
func NewStructureError(file, kind, key string) *StructureError {
	return &StructureError{
		File: file,
		Key:  key,
		Kind: kind,
	}
}

// Violation is a single violated schema constraint.
type Violation struct {
	Path    string `json:"path"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	path := v.Path
	if path == "" {
		path = "/"
	}
	return fmt.Sprintf("%s [%s]: %s", path, v.Rule, v.Message)
}

// ValidationError represents a mapped document that failed schema validation.
// Index is -1 for single documents and the element position for lists.
type ValidationError struct {
	Entity     string
	Index      int
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.String())
	}
	if e.Index >= 0 {
		return fmt.Sprintf("validation failed for %s %d: %s", e.Entity, e.Index, strings.Join(parts, "; "))
	}
	return fmt.Sprintf("validation failed for %s: %s", e.Entity, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// NewValidationError creates a new ValidationError.
func NewValidationError(entity string, index int, violations []Violation) *ValidationError {
	return &ValidationError{
		Entity:     entity,
		Index:      index,
		Violations: violations,
	}
}

// FileError represents a failed filesystem operation.
type FileError struct {
	Op   string
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// NewFileError creates a new FileError.
func NewFileError(op, path string, err error) *FileError {
	return &FileError{
		Op:   op,
		Path: path,
		Err:  err,
	}
}

// PluginError represents an error while dispatching a plugin command.
type PluginError struct {
	Command string
	Reason  string
	Err     error
}

func (e *PluginError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("plugin error [%s]: %s: %v", e.Command, e.Reason, e.Err)
	}
	return fmt.Sprintf("plugin error [%s]: %s", e.Command, e.Reason)
}

func (e *PluginError) Unwrap() error {
	return e.Err
}

// NewPluginError creates a new PluginError.
func NewPluginError(command, reason string, err error) *PluginError {
	return &PluginError{
		Command: command,
		Reason:  reason,
		Err:     err,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
