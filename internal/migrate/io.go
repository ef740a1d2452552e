package migrate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	apperrors "intent-trader/internal/errors"
	"intent-trader/internal/models"
)

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// readContainer decodes a legacy file and returns the raw value under key.
// A missing or null key is a structural error.
func readContainer(path, kind, key string) (json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewFileError("read", path, err)
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	raw, ok := top[key]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, apperrors.NewStructureError(path, kind, key)
	}
	return raw, nil
}

func readLegacyPlan(path string) (models.LegacyTradePlan, error) {
	var plan models.LegacyTradePlan
	raw, err := readContainer(path, "trade plan", "tradePlan")
	if err != nil {
		return plan, err
	}
	if err := json.Unmarshal(raw, &plan); err != nil {
		return plan, fmt.Errorf("decoding tradePlan in %s: %w", path, err)
	}
	return plan, nil
}

func readLegacyPositions(path string) ([]models.LegacyPosition, error) {
	raw, err := readContainer(path, "positions", "positions")
	if err != nil {
		return nil, err
	}
	if t := bytes.TrimSpace(raw); len(t) == 0 || t[0] != '[' {
		return nil, apperrors.NewStructureError(path, "positions", "positions array")
	}
	var positions []models.LegacyPosition
	if err := json.Unmarshal(raw, &positions); err != nil {
		return nil, fmt.Errorf("decoding positions in %s: %w", path, err)
	}
	return positions, nil
}

func readManifest(path string) (*models.SessionManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewFileError("read", path, err)
	}
	var m models.SessionManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &m, nil
}

// writeJSON writes v as indented JSON through a temporary file in the target
// directory so a failed write never leaves a partial document behind.
func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return apperrors.NewFileError("mkdir", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return apperrors.NewFileError("create", path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return apperrors.NewFileError("write", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return apperrors.NewFileError("write", path, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return apperrors.NewFileError("chmod", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return apperrors.NewFileError("rename", path, err)
	}
	return nil
}

func violationsJSON(v []apperrors.Violation) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
