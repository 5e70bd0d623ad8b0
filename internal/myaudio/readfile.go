package myaudio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tphakala/batprep/internal/errors"
	"github.com/tphakala/batprep/internal/logger"
)

// AudioData is a decoded mono recording.
type AudioData struct {
	SampleRate  int       // true acquisition rate in Hz
	Samples     []float32 // normalized to [-1, 1]
	BitDepth    int       // bit depth of the source file
	NumChannels int       // channel count of the source file
}

// Duration returns the recording length in seconds.
func (a *AudioData) Duration() float64 {
	if a == nil || a.SampleRate <= 0 {
		return 0
	}
	return float64(len(a.Samples)) / float64(a.SampleRate)
}

// LoadOptions tunes LoadAudioFile post-processing. The zero value disables all of it.
type LoadOptions struct {
	TargetSampleRate int     // resample to this true rate, 0 disables
	MaxDuration      float64 // crop to this many seconds, 0 disables
	Scale            bool    // remove DC offset and peak-normalize
}

// AudioInfo describes a file without decoding its samples.
type AudioInfo struct {
	SampleRate   int
	TotalSamples int
	NumChannels  int
	BitDepth     int
}

// decodedAudio is the raw output of a format reader, samples interleaved.
type decodedAudio struct {
	info    AudioInfo
	samples []float32
}

// LoadAudioFile reads a .wav or .flac recording and returns its first channel.
// timeExp is the time-expansion factor the recording was stored with; the
// returned sample rate is the file rate multiplied by it.
func LoadAudioFile(path string, timeExp float64, opts LoadOptions) (*AudioData, error) {
	if timeExp <= 0 {
		timeExp = 1
	}

	file, err := os.Open(path) //nolint:gosec // path is resolved from annotation files
	if err != nil {
		category := errors.CategoryFileIO
		if os.IsNotExist(err) {
			category = errors.CategoryNotFound
		}
		return nil, newAudioError(err, category, path, "open-audio")
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			GetLogger().Warn("failed to close audio file", logger.String("path", path), logger.Error(cerr))
		}
	}()

	var decoded *decodedAudio
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".wav":
		decoded, err = readWAV(file)
	case ".flac":
		decoded, err = readFLAC(file)
	default:
		return nil, newAudioError(fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext), errors.CategoryValidation, path, "detect-format")
	}
	if err != nil {
		return nil, newAudioError(err, errors.CategoryFileParsing, path, "decode-audio")
	}

	if decoded.info.NumChannels > 1 {
		GetLogger().Warn("multi-channel recording, using first channel",
			logger.String("path", path),
			logger.Int("channels", decoded.info.NumChannels))
	}

	samples := firstChannel(decoded.samples, decoded.info.NumChannels)
	if len(samples) == 0 {
		return nil, newAudioError(ErrEmptyAudio, errors.CategoryValidation, path, "decode-audio")
	}

	sampleRate := int(float64(decoded.info.SampleRate) * timeExp)

	samples, sampleRate, err = postProcess(samples, sampleRate, opts)
	if err != nil {
		return nil, newAudioError(err, errors.CategoryAudio, path, "post-process")
	}

	GetLogger().Debug("audio loaded",
		logger.String("path", path),
		logger.Int("sample_rate", sampleRate),
		logger.Int("samples", len(samples)),
		logger.Int("bit_depth", decoded.info.BitDepth),
		logger.Float64("time_expansion", timeExp))

	return &AudioData{
		SampleRate:  sampleRate,
		Samples:     samples,
		BitDepth:    decoded.info.BitDepth,
		NumChannels: decoded.info.NumChannels,
	}, nil
}

// postProcess applies resampling, cropping and scaling in that order.
func postProcess(samples []float32, sampleRate int, opts LoadOptions) ([]float32, int, error) {
	if opts.TargetSampleRate > 0 && opts.TargetSampleRate != sampleRate {
		resampled, err := ResampleAudio(samples, sampleRate, opts.TargetSampleRate)
		if err != nil {
			return nil, 0, fmt.Errorf("error resampling audio: %w", err)
		}
		samples = resampled
		sampleRate = opts.TargetSampleRate
	}

	if opts.MaxDuration > 0 {
		maxSamples := int(opts.MaxDuration * float64(sampleRate))
		if maxSamples < len(samples) {
			samples = samples[:maxSamples]
		}
	}

	if opts.Scale {
		samples = ScaleAudio(samples)
	}

	return samples, sampleRate, nil
}

// ReadAudioInfo returns format information for a .wav or .flac file.
func ReadAudioInfo(path string) (AudioInfo, error) {
	file, err := os.Open(path) //nolint:gosec // path is resolved from annotation files
	if err != nil {
		return AudioInfo{}, newAudioError(err, errors.CategoryFileIO, path, "open-audio")
	}
	defer file.Close() //nolint:errcheck // read-only

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return readWAVInfo(file)
	case ".flac":
		return readFLACInfo(file)
	default:
		return AudioInfo{}, newAudioError(ErrUnsupportedFormat, errors.CategoryValidation, path, "detect-format")
	}
}
