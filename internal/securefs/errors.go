// Package securefs provides a sandboxed view of a directory built on os.Root,
// used to store and serve spectrogram segments.
package securefs

import (
	"github.com/tphakala/batprep/internal/errors"
)

// Sentinel errors for the securefs package.
var (
	// ErrPathTraversal indicates an attempt to access a path outside the base directory.
	ErrPathTraversal = errors.NewStd("security error: path attempts to traverse outside base directory")

	// ErrInvalidPath indicates an invalid path specification.
	ErrInvalidPath = errors.NewStd("security error: invalid path specification")

	// ErrNotRegularFile indicates an attempt to read or serve something that is not a regular file.
	ErrNotRegularFile = errors.NewStd("security error: not a regular file")

	// ErrFileTooLarge is returned when a file exceeds the configured read limit.
	ErrFileTooLarge = errors.NewStd("file size exceeds maximum allowed size")
)
