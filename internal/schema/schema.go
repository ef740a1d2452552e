// Package schema loads the canonical JSON Schema document and compiles
// validators for its named definitions.
package schema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	apperrors "intent-trader/internal/errors"
	"intent-trader/internal/models"
)

// documentURL is the resource name the schema document is registered under.
const documentURL = "https://intent-trader.local/canonical.schema.json"

//go:embed canonical.schema.json
var bundled []byte

// Bundled returns a copy of the schema document shipped with the binary.
func Bundled() []byte {
	out := make([]byte, len(bundled))
	copy(out, bundled)
	return out
}

// RequiredDefinitions must be present in every schema document.
var RequiredDefinitions = []string{
	models.DefTradePlan,
	models.DefTradePosition,
	models.DefConversationContext,
}

// Result is the outcome of validating one object.
type Result struct {
	Valid      bool                  `json:"valid"`
	Violations []apperrors.Violation `json:"violations,omitempty"`
}

// Validator checks objects against one compiled definition.
type Validator struct {
	name   string
	schema *jsonschema.Schema
}

// Name returns the definition the validator was compiled from.
func (v *Validator) Name() string {
	return v.name
}

// Registry holds a parsed schema document and its compiled validators.
type Registry struct {
	source      string
	version     string
	definitions []string
	compiler    *jsonschema.Compiler

	mu         sync.Mutex
	validators map[string]*Validator
}

type document struct {
	Version     string                     `json:"version"`
	Definitions map[string]json.RawMessage `json:"definitions"`
}

// Load reads and compiles the schema document at path. A missing or
// malformed document is reported as ErrSchemaUnavailable.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrSchemaUnavailable, apperrors.NewFileError("read", path, err))
	}
	return LoadBytes(path, data)
}

// Default compiles the bundled schema document.
func Default() (*Registry, error) {
	return LoadBytes("bundled", bundled)
}

// LoadBytes compiles a schema document held in memory. source names the
// document in errors.
func LoadBytes(source string, data []byte) (*Registry, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", apperrors.ErrSchemaUnavailable, source, err)
	}
	if len(doc.Definitions) == 0 {
		return nil, fmt.Errorf("%w: %s has no definitions", apperrors.ErrSchemaUnavailable, source)
	}

	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft7
	if err := c.AddResource(documentURL, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("%w: loading %s: %v", apperrors.ErrSchemaUnavailable, source, err)
	}

	defs := make([]string, 0, len(doc.Definitions))
	for name := range doc.Definitions {
		defs = append(defs, name)
	}
	sort.Strings(defs)

	r := &Registry{
		source:      source,
		version:     doc.Version,
		definitions: defs,
		compiler:    c,
		validators:  make(map[string]*Validator),
	}

	// Required definitions are compiled eagerly so a broken document fails at startup.
	for _, name := range RequiredDefinitions {
		if _, err := r.CompileValidator(name); err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrSchemaUnavailable, err)
		}
	}
	return r, nil
}

// Source returns where the document was loaded from.
func (r *Registry) Source() string {
	return r.source
}

// Version returns the document's declared version, if any.
func (r *Registry) Version() string {
	return r.version
}

// Definitions lists the definition names in the document, sorted.
func (r *Registry) Definitions() []string {
	out := make([]string, len(r.definitions))
	copy(out, r.definitions)
	return out
}

// Has reports whether the document defines name.
func (r *Registry) Has(name string) bool {
	i := sort.SearchStrings(r.definitions, name)
	return i < len(r.definitions) && r.definitions[i] == name
}

// CompileValidator returns the validator for a named definition, compiling it
// on first use.
func (r *Registry) CompileValidator(name string) (*Validator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if v, ok := r.validators[name]; ok {
		return v, nil
	}
	if !r.Has(name) {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrSchemaDefinition, name)
	}

	sch, err := r.compiler.Compile(documentURL + "#/definitions/" + name)
	if err != nil {
		return nil, fmt.Errorf("compiling definition %s: %w", name, err)
	}
	v := &Validator{name: name, schema: sch}
	r.validators[name] = v
	return v, nil
}

// Validate checks obj against the named definition.
func (r *Registry) Validate(name string, obj interface{}) (Result, error) {
	v, err := r.CompileValidator(name)
	if err != nil {
		return Result{}, err
	}
	return v.Validate(obj), nil
}

// Validate checks obj, which may be any JSON-encodable value.
func (v *Validator) Validate(obj interface{}) Result {
	data, err := json.Marshal(obj)
	if err != nil {
		return Result{Violations: []apperrors.Violation{{Rule: "encoding", Message: err.Error()}}}
	}
	var inst interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err = dec.Decode(&inst); err != nil {
		return Result{Violations: []apperrors.Violation{{Rule: "encoding", Message: err.Error()}}}
	}

	err = v.schema.Validate(inst)
	if err == nil {
		return Result{Valid: true}
	}

	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return Result{Violations: []apperrors.Violation{{Rule: "validate", Message: err.Error()}}}
	}
	return Result{Violations: violations(ve)}
}

// violations flattens the leaves of a validation error tree.
func violations(root *jsonschema.ValidationError) []apperrors.Violation {
	var out []apperrors.Violation
	seen := make(map[string]bool)

	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) > 0 {
			for _, c := range e.Causes {
				walk(c)
			}
			return
		}
		vi := apperrors.Violation{
			Path:    e.InstanceLocation,
			Rule:    rule(e.KeywordLocation),
			Message: e.Message,
		}
		key := vi.String()
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, vi)
	}
	walk(root)

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Rule < out[j].Rule
	})
	return out
}

// rule extracts the keyword name from a keyword location such as
// "/allOf/1/properties/symbol/minLength".
func rule(keywordLocation string) string {
	loc := strings.TrimRight(keywordLocation, "/")
	if i := strings.LastIndex(loc, "/"); i >= 0 {
		loc = loc[i+1:]
	}
	if loc == "" {
		return "schema"
	}
	return loc
}
