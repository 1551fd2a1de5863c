package bundle

import (
	"errors"
	"fmt"
)

var (
	ErrTooSmall          = errors.New("bundle: buffer too small for header")
	ErrBadMagic          = errors.New("bundle: invalid magic")
	ErrUnsupportedFormat = errors.New("bundle: unsupported format version")
	ErrTruncatedTable    = errors.New("bundle: truncated file table")
	ErrTruncatedPath     = errors.New("bundle: truncated file path")
	ErrTruncatedSize     = errors.New("bundle: truncated file size")
	ErrTruncatedHash     = errors.New("bundle: truncated file hash")
	ErrTruncatedData     = errors.New("bundle: truncated file data")
	ErrDecompress        = errors.New("bundle: decompression failed")
	ErrSizeMismatch      = errors.New("bundle: decompressed size mismatch")
)

// HashMismatchError reports a file whose stored hash does not match its
// actual contents. Both digests are carried so the caller can log them
// without re-parsing the bundle.
type HashMismatchError struct {
	Path     string
	Expected string
	Actual   string
}

func (e *HashMismatchError) Error() string {
	return fmt.Sprintf("bundle: hash mismatch for %s: expected %s, got %s", e.Path, e.Expected, e.Actual)
}
