package myaudio

import (
	"github.com/tphakala/batprep/internal/errors"
)

var (
	// ErrEmptyAudio is returned when a file decodes to zero samples
	ErrEmptyAudio = errors.NewStd("audio contains no samples")

	// ErrUnsupportedFormat is returned for file extensions other than .wav and .flac
	ErrUnsupportedFormat = errors.NewStd("unsupported audio file format")
)

// newAudioError builds a myaudio error with the given category and file context.
func newAudioError(err error, category errors.ErrorCategory, path, operation string) error {
	return errors.New(err).
		Component("myaudio").
		Category(category).
		FileContext(path, 0).
		Context("operation", operation).
		Build()
}
