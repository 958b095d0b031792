package version

import "fmt"

// Version is the release version embedded in the binary.
// It can be overridden at build time via:
// go build -ldflags "-X github.com/oukeidos/mdtrans/internal/version.Version=0.1.0"
var Version = "0.1.0"

// Commit and BuildDate are set the same way (RFC3339 for BuildDate).
var (
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Info returns a multi-line version string for CLI output.
func Info() string {
	return fmt.Sprintf("mdtrans %s\ncommit: %s\nbuild: %s", Version, Commit, BuildDate)
}
