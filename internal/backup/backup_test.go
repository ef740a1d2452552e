package backup

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	apperrors "intent-trader/internal/errors"
)

func TestSnapshotAndRestore(t *testing.T) {
	dir := t.TempDir()
	original := filepath.Join(dir, "trade-plan-state.json")
	content := []byte("{\n  \"tradePlan\": {\"date\": \"2025-05-15\"}\n}\n")
	if err := os.WriteFile(original, content, 0644); err != nil {
		t.Fatal(err)
	}

	at := time.UnixMilli(1747315800123)
	backupPath, err := SnapshotAt(original, at)
	if err != nil {
		t.Fatalf("SnapshotAt: %v", err)
	}
	if want := original + ".bak.1747315800123"; backupPath != want {
		t.Errorf("backup path = %q, want %q", backupPath, want)
	}

	if err := os.WriteFile(original, []byte("clobbered"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := Restore(backupPath, original); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	got, _ := os.ReadFile(original)
	if !bytes.Equal(got, content) {
		t.Errorf("restored content = %q, want %q", got, content)
	}

	// backups are never removed
	if _, err := os.Stat(backupPath); err != nil {
		t.Errorf("backup should remain on disk: %v", err)
	}
}

func TestSnapshotNeverOverwrites(t *testing.T) {
	dir := t.TempDir()
	original := filepath.Join(dir, "my-positions.json")
	os.WriteFile(original, []byte("v1"), 0644)

	at := time.UnixMilli(1000)
	first, err := SnapshotAt(original, at)
	if err != nil {
		t.Fatal(err)
	}

	os.WriteFile(original, []byte("v2"), 0644)
	second, err := SnapshotAt(original, at)
	if err != nil {
		t.Fatal(err)
	}

	if first == second {
		t.Fatalf("second snapshot reused %s", first)
	}
	if !strings.HasSuffix(second, ".bak.1001") {
		t.Errorf("second snapshot = %s, want .bak.1001 suffix", second)
	}
	if b, _ := os.ReadFile(first); string(b) != "v1" {
		t.Errorf("first backup changed to %q", b)
	}
}

func TestSnapshotMissingFile(t *testing.T) {
	_, err := Snapshot(filepath.Join(t.TempDir(), "absent.json"))
	if !apperrors.Is(err, apperrors.ErrBackupFailed) {
		t.Fatalf("expected ErrBackupFailed, got %v", err)
	}
	if !apperrors.Is(err, os.ErrNotExist) {
		t.Errorf("expected wrapped not-exist cause, got %v", err)
	}
}

func TestRestoreMissingBackup(t *testing.T) {
	dir := t.TempDir()
	err := Restore(filepath.Join(dir, "x.bak.1"), filepath.Join(dir, "x"))
	if !apperrors.Is(err, apperrors.ErrRestoreFailed) {
		t.Fatalf("expected ErrRestoreFailed, got %v", err)
	}
}
