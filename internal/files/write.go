package files

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oukeidos/mdtrans/internal/logger"
)

// maxExclusiveTries bounds the numbered names AtomicWriteExclusive tries
// after the requested one.
const maxExclusiveTries = 9

// commitFunc moves a fully written temp file to its destination.
type commitFunc func(tmpPath, dst string) error

// AtomicWrite replaces path with data. Readers see either the old content
// or the new content, never a partial file.
func AtomicWrite(path string, data []byte, perms os.FileMode) error {
	return writeVia(path, data, perms, renameAtomic)
}

// AtomicWriteExclusive writes data to path, or to the first of path_1 to
// path_9 that does not exist yet. Existing files are never replaced. It
// returns the path that was written.
func AtomicWriteExclusive(path string, data []byte, perms os.FileMode) (string, error) {
	var lastErr error
	for i := 0; i <= maxExclusiveTries; i++ {
		candidate := path
		if i > 0 {
			candidate = WithSuffix(path, fmt.Sprint(i))
		}
		err := writeVia(candidate, data, perms, linkNoReplace)
		if err == nil {
			return candidate, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return "", err
		}
		lastErr = err
	}
	return "", fmt.Errorf("no free file name next to %s: %w", path, lastErr)
}

func writeVia(path string, data []byte, perms os.FileMode, commit commitFunc) error {
	if err := RejectSymlinkPath(path); err != nil {
		return err
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if err := fill(tmp, data, perms); err != nil {
		return err
	}
	if err := commit(tmpPath, path); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", filepath.Base(path), err)
	}
	committed = true

	if err := syncDir(dir); err != nil {
		logger.Warn("Directory sync failed", "path", dir, "error", err)
	}
	return nil
}

// fill writes data to f, flushes it to disk and closes it.
func fill(f *os.File, data []byte, perms os.FileMode) error {
	if err := f.Chmod(perms); err != nil {
		return fmt.Errorf("failed to set file permissions: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	return f.Close()
}
