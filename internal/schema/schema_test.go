package schema

import (
	"os"
	"path/filepath"
	"testing"

	apperrors "intent-trader/internal/errors"
	"intent-trader/internal/models"
)

func validPosition() models.TradePosition {
	shares := 100.0
	return models.TradePosition{
		Envelope: models.Envelope{
			SchemaVersion: models.SchemaVersion,
			ID:            "pos-AAPL-20250515",
			Source:        models.SourceManual,
			Timestamp:     "2025-05-15T13:30:00.000Z",
			Origin:        &models.Origin{SourceCommand: "/migrate-schema", CreatedBy: "schema-migrator"},
		},
		Symbol:     "AAPL",
		Direction:  "long",
		Entry:      models.PositionEntry{Price: 190.5, Date: "2025-05-15", Shares: &shares},
		Status:     "open",
		Conviction: models.Conviction{Level: "medium"},
	}
}

func TestDefaultCompilesRequiredDefinitions(t *testing.T) {
	r, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	for _, name := range append(RequiredDefinitions, models.DefTransactionLog) {
		if !r.Has(name) {
			t.Errorf("bundled schema lacks %s", name)
		}
		if _, err := r.CompileValidator(name); err != nil {
			t.Errorf("CompileValidator(%s): %v", name, err)
		}
	}
	if r.Version() != models.SchemaVersion {
		t.Errorf("version = %q, want %q", r.Version(), models.SchemaVersion)
	}
}

func TestValidatorAcceptsValidPosition(t *testing.T) {
	r, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	res, err := r.Validate(models.DefTradePosition, validPosition())
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !res.Valid {
		t.Fatalf("expected valid position, got %v", res.Violations)
	}
}

func TestValidatorReportsPathAndRule(t *testing.T) {
	r, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	v, err := r.CompileValidator(models.DefTradePosition)
	if err != nil {
		t.Fatalf("CompileValidator: %v", err)
	}

	pos := validPosition()
	pos.Symbol = ""
	pos.Direction = "sideways"

	res := v.Validate(pos)
	if res.Valid {
		t.Fatal("expected invalid position")
	}

	found := map[string]string{}
	for _, vi := range res.Violations {
		found[vi.Path] = vi.Rule
	}
	if found["/symbol"] != "minLength" {
		t.Errorf("symbol violation = %q, all: %v", found["/symbol"], res.Violations)
	}
	if found["/direction"] != "enum" {
		t.Errorf("direction violation = %q, all: %v", found["/direction"], res.Violations)
	}
}

func TestValidatorChecksNumbers(t *testing.T) {
	r, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}

	res, err := r.Validate(models.DefTradePosition, validPosition())
	if err != nil || !res.Valid {
		t.Fatalf("valid position rejected: %v %v", err, res.Violations)
	}

	pos := validPosition()
	pos.Entry.Price = -1
	res, err = r.Validate(models.DefTradePosition, pos)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if res.Valid {
		t.Fatal("negative entry price accepted")
	}
	found := false
	for _, vi := range res.Violations {
		if vi.Path == "/entry/price" && vi.Rule == "minimum" {
			found = true
		}
		if vi.Rule == "encoding" {
			t.Errorf("instance not decoded: %v", vi)
		}
	}
	if !found {
		t.Errorf("missing /entry/price minimum violation, all: %v", res.Violations)
	}
}

func TestUnknownDefinition(t *testing.T) {
	r, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if _, err := r.CompileValidator("noSuchThing"); !apperrors.Is(err, apperrors.ErrSchemaDefinition) {
		t.Fatalf("expected ErrSchemaDefinition, got %v", err)
	}
}

func TestLoadFailsFast(t *testing.T) {
	dir := t.TempDir()

	if _, err := Load(filepath.Join(dir, "missing.json")); !apperrors.Is(err, apperrors.ErrSchemaUnavailable) {
		t.Errorf("missing file: expected ErrSchemaUnavailable, got %v", err)
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); !apperrors.Is(err, apperrors.ErrSchemaUnavailable) {
		t.Errorf("malformed file: expected ErrSchemaUnavailable, got %v", err)
	}

	partial := filepath.Join(dir, "partial.json")
	doc := `{"definitions": {"tradePlan": {"type": "object"}}}`
	if err := os.WriteFile(partial, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(partial); !apperrors.Is(err, apperrors.ErrSchemaUnavailable) {
		t.Errorf("partial document: expected ErrSchemaUnavailable, got %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.json")
	if err := os.WriteFile(path, Bundled(), 0644); err != nil {
		t.Fatal(err)
	}
	r, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if r.Source() != path {
		t.Errorf("source = %q", r.Source())
	}
}

func TestRule(t *testing.T) {
	cases := map[string]string{
		"/allOf/1/properties/symbol/minLength": "minLength",
		"/required":                            "required",
		"":                                     "schema",
	}
	for in, want := range cases {
		if got := rule(in); got != want {
			t.Errorf("rule(%q) = %q, want %q", in, got, want)
		}
	}
}
