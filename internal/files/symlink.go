package files

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// RejectSymlinkPath fails when path, or any existing directory above it, is
// a symlink or a Windows reparse point. Components that do not exist yet are
// ignored.
func RejectSymlinkPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("path is empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	for p := abs; ; {
		if err := checkComponent(abs, p); err != nil {
			return err
		}
		parent := filepath.Dir(p)
		if parent == p {
			return nil
		}
		p = parent
	}
}

func checkComponent(target, p string) error {
	info, err := os.Lstat(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to access path: %w", err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return fmt.Errorf("refusing to write to symlink path: %s (symlink detected at %s)", target, p)
	}
	reparse, err := isReparsePoint(p)
	if err != nil {
		return fmt.Errorf("failed to check reparse point: %w", err)
	}
	if reparse {
		return fmt.Errorf("refusing to write to symlink path: %s (reparse point detected at %s)", target, p)
	}
	return nil
}
