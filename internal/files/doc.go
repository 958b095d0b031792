// Package files writes output files without leaving partial content behind
// and without following symlinks planted in the destination path.
package files
