package document

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/oukeidos/mdtrans/internal/files"
)

// MaxDocumentBytes caps the size of a document read from disk.
const MaxDocumentBytes = 8 * 1024 * 1024

// FileStore reads documents from the local filesystem. The document ID is
// a path, resolved against Root when it is relative and Root is set.
type FileStore struct {
	Root string
}

var _ Fetcher = FileStore{}

// Path resolves id to a filesystem path.
func (s FileStore) Path(id string) string {
	if s.Root == "" || filepath.IsAbs(id) {
		return id
	}
	return filepath.Join(s.Root, id)
}

func (s FileStore) FetchDocument(ctx context.Context, id string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := s.Path(id)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to stat document: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("document path is a directory: %s", path)
	}
	if info.Size() > MaxDocumentBytes {
		return nil, fmt.Errorf("document too large: %d bytes (limit %d)", info.Size(), MaxDocumentBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	return Parse(id, data)
}

// Save renders d and writes it atomically to path.
func Save(path string, d *Document) error {
	data, err := Render(d)
	if err != nil {
		return err
	}
	return files.AtomicWrite(path, data, 0644)
}
