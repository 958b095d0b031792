package files

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestRejectSymlinkPath(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink not permitted on Windows")
	}
	tmp := t.TempDir()
	realDir := filepath.Join(tmp, "real", "nested")
	if err := os.MkdirAll(realDir, 0700); err != nil {
		t.Fatal(err)
	}
	target := filepath.Join(tmp, "target.md")
	if err := os.WriteFile(target, []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}
	fileLink := filepath.Join(tmp, "out.md")
	if err := os.Symlink(target, fileLink); err != nil {
		t.Fatal(err)
	}
	dirLink := filepath.Join(tmp, "link")
	if err := os.Symlink(filepath.Join(tmp, "real"), dirLink); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		path    string
		wantErr string
	}{
		{name: "plain file", path: filepath.Join(realDir, "out.md")},
		{name: "missing components", path: filepath.Join(tmp, "new", "dir", "out.md")},
		{name: "empty", path: "  ", wantErr: "path is empty"},
		{name: "file symlink", path: fileLink, wantErr: "symlink detected at " + fileLink},
		{name: "parent symlink", path: filepath.Join(dirLink, "out.md"), wantErr: "symlink detected at " + dirLink},
		{name: "ancestor symlink", path: filepath.Join(dirLink, "nested", "out.md"), wantErr: "symlink detected at " + dirLink},
		{name: "missing below symlink", path: filepath.Join(dirLink, "nope", "out.md"), wantErr: "symlink detected at " + dirLink},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RejectSymlinkPath(tt.path)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("RejectSymlinkPath() = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("RejectSymlinkPath() = %v, want %q", err, tt.wantErr)
			}
		})
	}
}
