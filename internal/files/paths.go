package files

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// WithSuffix inserts "_"+suffix between the name and extension of path:
// WithSuffix("a/post.md", "2") is "a/post_2.md".
func WithSuffix(path, suffix string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_" + suffix + ext
}

// FreePath returns path itself when nothing exists there. Otherwise it
// tries numbered variants from first up to 9 and finally a variant carrying
// a time-ordered UUID.
func FreePath(path string, first int) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path is empty")
	}
	free, err := notExists(path)
	if err != nil || free {
		return path, err
	}
	for i := first; i <= 9; i++ {
		candidate := WithSuffix(path, fmt.Sprint(i))
		free, err := notExists(candidate)
		if err != nil {
			return "", err
		}
		if free {
			return candidate, nil
		}
	}
	return WithSuffix(path, uniqueSuffix()), nil
}

// SafePath is FreePath starting at _1. The flag reports whether the
// returned path differs from path.
func SafePath(path string) (string, bool, error) {
	got, err := FreePath(path, 1)
	if err != nil {
		return "", false, err
	}
	return got, got != path, nil
}

func notExists(path string) (bool, error) {
	_, err := os.Lstat(path)
	switch {
	case err == nil:
		return false, nil
	case errors.Is(err, os.ErrNotExist):
		return true, nil
	default:
		return false, err
	}
}

func uniqueSuffix() string {
	if u, err := uuid.NewV7(); err == nil {
		return u.String()
	}
	return uuid.NewString()
}
