//go:build windows

package files

import (
	"fmt"

	"golang.org/x/sys/windows"
)

func renameAtomic(oldPath, newPath string) error {
	return moveFile(oldPath, newPath, windows.MOVEFILE_REPLACE_EXISTING|windows.MOVEFILE_WRITE_THROUGH)
}

// linkNoReplace fails with ERROR_ALREADY_EXISTS, which matches os.ErrExist,
// when dst is taken.
func linkNoReplace(tmpPath, dst string) error {
	return moveFile(tmpPath, dst, windows.MOVEFILE_WRITE_THROUGH)
}

func moveFile(from, to string, flags uint32) error {
	fromPtr, err := windows.UTF16PtrFromString(from)
	if err != nil {
		return fmt.Errorf("invalid source path: %w", err)
	}
	toPtr, err := windows.UTF16PtrFromString(to)
	if err != nil {
		return fmt.Errorf("invalid destination path: %w", err)
	}
	return windows.MoveFileEx(fromPtr, toPtr, flags)
}

func isReparsePoint(path string) (bool, error) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return false, err
	}
	attrs, err := windows.GetFileAttributes(p)
	if err != nil {
		return false, err
	}
	return attrs&windows.FILE_ATTRIBUTE_REPARSE_POINT != 0, nil
}

// Directory handles cannot be flushed on Windows; MOVEFILE_WRITE_THROUGH
// covers the rename.
func syncDir(string) error {
	return nil
}
