//go:build !windows

package files

import (
	"errors"
	"os"
)

func renameAtomic(oldPath, newPath string) error {
	return os.Rename(oldPath, newPath)
}

// linkNoReplace publishes tmpPath at dst unless dst exists. Filesystems
// without hard links fall back to a checked rename.
func linkNoReplace(tmpPath, dst string) error {
	err := os.Link(tmpPath, dst)
	if err == nil {
		return os.Remove(tmpPath)
	}
	if errors.Is(err, os.ErrExist) {
		return err
	}
	if _, statErr := os.Lstat(dst); statErr == nil {
		return &os.LinkError{Op: "link", Old: tmpPath, New: dst, Err: os.ErrExist}
	}
	return os.Rename(tmpPath, dst)
}

func isReparsePoint(string) (bool, error) {
	return false, nil
}

func syncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
