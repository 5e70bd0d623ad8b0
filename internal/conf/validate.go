package conf

import (
	"fmt"
	"net"
	"slices"
	"strings"

	"github.com/tphakala/batprep/internal/errors"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("validation errors: %s", strings.Join(ve.Errors, "; "))
}

// ErrorCategory marks validation failures as configuration errors.
func (ve ValidationError) ErrorCategory() errors.ErrorCategory {
	return errors.CategoryConfiguration
}

var (
	validSpecScales = []string{"log", "none"}
	validColormaps  = []string{"inferno", "gray"}
	validBitDepths  = []int{8, 16, 24, 32}
)

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	for _, validate := range []func(*Settings) error{
		func(s *Settings) error { return validateAudioSettings(&s.Audio) },
		func(s *Settings) error { return validateSpectrogramSettings(&s.Spectrogram) },
		func(s *Settings) error { return validatePrepareSettings(&s.Prepare) },
		func(s *Settings) error { return validateWebServerSettings(&s.WebServer) },
	} {
		if err := validate(settings); err != nil {
			ve.Errors = append(ve.Errors, err.Error())
		}
	}

	if len(ve.Errors) > 0 {
		return errors.New(ve).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("error_count", len(ve.Errors)).
			Build()
	}

	return nil
}

func validateAudioSettings(s *AudioSettings) error {
	var errs []error

	if s.PlaybackTimeExpansion <= 0 {
		errs = append(errs, fmt.Errorf("audio.playbacktimeexpansion must be positive, got %g", s.PlaybackTimeExpansion))
	}
	if s.TargetSampleRate < 0 {
		errs = append(errs, fmt.Errorf("audio.targetsamplerate must not be negative, got %d", s.TargetSampleRate))
	}
	if s.MaxDuration < 0 {
		errs = append(errs, fmt.Errorf("audio.maxduration must not be negative, got %g", s.MaxDuration))
	}
	if !slices.Contains(validBitDepths, s.ClipBitDepth) {
		errs = append(errs, fmt.Errorf("audio.clipbitdepth must be one of %v, got %d", validBitDepths, s.ClipBitDepth))
	}

	return errors.Join(errs...)
}

func validateSpectrogramSettings(s *SpectrogramSettings) error {
	var errs []error

	if s.DataDir == "" {
		errs = append(errs, errors.NewStd("spectrogram.datadir must be set"))
	}
	if s.FFTWinLength <= 0 {
		errs = append(errs, fmt.Errorf("spectrogram.fftwinlength must be positive, got %g", s.FFTWinLength))
	}
	if s.FFTOverlap < 0 || s.FFTOverlap >= 1 {
		errs = append(errs, fmt.Errorf("spectrogram.fftoverlap must be in [0, 1), got %g", s.FFTOverlap))
	}
	if s.MinFreq < 0 || s.MaxFreq <= s.MinFreq {
		errs = append(errs, fmt.Errorf("spectrogram frequency range invalid: min %d, max %d", s.MinFreq, s.MaxFreq))
	}
	if !slices.Contains(validSpecScales, s.SpecScale) {
		errs = append(errs, fmt.Errorf("spectrogram.specscale must be one of %v, got %q", validSpecScales, s.SpecScale))
	}
	if !slices.Contains(validColormaps, s.Colormap) {
		errs = append(errs, fmt.Errorf("spectrogram.colormap must be one of %v, got %q", validColormaps, s.Colormap))
	}
	if s.Segments < 1 {
		errs = append(errs, fmt.Errorf("spectrogram.segments must be at least 1, got %d", s.Segments))
	}
	if s.JPEGQuality < 1 || s.JPEGQuality > 100 {
		errs = append(errs, fmt.Errorf("spectrogram.jpegquality must be in [1, 100], got %d", s.JPEGQuality))
	}

	return errors.Join(errs...)
}

func validatePrepareSettings(s *PrepareSettings) error {
	var errs []error

	if s.Workers < 0 {
		errs = append(errs, fmt.Errorf("prepare.workers must not be negative, got %d", s.Workers))
	}
	if s.QueueSize < 1 {
		errs = append(errs, fmt.Errorf("prepare.queuesize must be at least 1, got %d", s.QueueSize))
	}

	return errors.Join(errs...)
}

func validateWebServerSettings(s *WebServerSettings) error {
	var errs []error

	if _, _, err := net.SplitHostPort(s.Listen); err != nil {
		errs = append(errs, fmt.Errorf("webserver.listen %q is not host:port: %w", s.Listen, err))
	}
	if s.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("webserver.ratelimit must not be negative, got %g", s.RateLimit))
	}
	if s.RateLimit > 0 && s.RateBurst < 1 {
		errs = append(errs, fmt.Errorf("webserver.rateburst must be at least 1 when rate limiting, got %d", s.RateBurst))
	}

	return errors.Join(errs...)
}
