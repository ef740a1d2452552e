// Package backup snapshots source files before they are overwritten and restores them verbatim.
package backup

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	apperrors "intent-trader/internal/errors"
)

// maxCollisions bounds how many later millisecond slots are tried when a backup name is taken.
const maxCollisions = 1000

// Path returns the backup path of original for the given instant.
func Path(original string, at time.Time) string {
	return fmt.Sprintf("%s.bak.%d", original, at.UnixMilli())
}

// Snapshot copies path to path.bak.<epoch-millis> and returns the backup path.
func Snapshot(path string) (string, error) {
	return SnapshotAt(path, time.Now())
}

// SnapshotAt is Snapshot with an explicit instant. An existing backup is never
// overwritten; the next free millisecond is used instead.
func SnapshotAt(path string, at time.Time) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", apperrors.ErrBackupFailed, apperrors.NewFileError("open", path, err))
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return "", fmt.Errorf("%w: %w", apperrors.ErrBackupFailed, apperrors.NewFileError("stat", path, err))
	}

	for i := 0; i < maxCollisions; i++ {
		target := Path(path, at.Add(time.Duration(i)*time.Millisecond))
		dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("%w: %w", apperrors.ErrBackupFailed, apperrors.NewFileError("create", target, err))
		}
		if err := copyAndClose(dst, src); err != nil {
			os.Remove(target)
			return "", fmt.Errorf("%w: %w", apperrors.ErrBackupFailed, apperrors.NewFileError("copy", target, err))
		}
		return target, nil
	}
	return "", fmt.Errorf("%w: no free backup name for %s", apperrors.ErrBackupFailed, path)
}

// Restore copies backupPath over originalPath byte for byte.
func Restore(backupPath, originalPath string) error {
	src, err := os.Open(backupPath)
	if err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrRestoreFailed, apperrors.NewFileError("open", backupPath, err))
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrRestoreFailed, apperrors.NewFileError("stat", backupPath, err))
	}

	dst, err := os.OpenFile(originalPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrRestoreFailed, apperrors.NewFileError("open", originalPath, err))
	}
	if err := copyAndClose(dst, src); err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrRestoreFailed, apperrors.NewFileError("copy", originalPath, err))
	}
	return nil
}

func copyAndClose(dst *os.File, src io.Reader) error {
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	if err := dst.Sync(); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}
