// Package spectrogram turns audio samples into a colorized spectrogram split
// into fixed-width JPEG segments, and caches the segments on disk keyed by a
// recording reference.
package spectrogram

import (
	"fmt"
	"math"

	"github.com/tphakala/batprep/internal/conf"
	"github.com/tphakala/batprep/internal/errors"
)

// Spectrogram amplitude scaling modes.
const (
	ScaleLog  = "log"
	ScaleNone = "none"
)

// Supported colormap names.
const (
	ColormapInferno = "inferno"
	ColormapGray    = "gray"
)

// Params controls the STFT, post-processing and segmenting of a spectrogram.
type Params struct {
	FFTWinLength   float64 // window length in seconds
	FFTOverlap     float64 // fraction of the window shared by consecutive frames, [0, 1)
	MinFreq        int     // Hz, lowest frequency kept
	MaxFreq        int     // Hz, highest frequency kept
	SpecScale      string  // ScaleLog or ScaleNone
	DenoiseSpecAvg bool    // subtract the per-frequency mean and clip at zero
	MaxScaleSpec   bool    // divide by the maximum after denoising
	Colormap       string  // ColormapInferno or ColormapGray
	Segments       int     // number of horizontal image tiles
	JPEGQuality    int     // 1-100
}

// DefaultParams returns the parameters used for bat recordings.
func DefaultParams() Params {
	return Params{
		FFTWinLength:   conf.DefaultFFTWinLength,
		FFTOverlap:     conf.DefaultFFTOverlap,
		MinFreq:        conf.DefaultMinFreq,
		MaxFreq:        conf.DefaultMaxFreq,
		SpecScale:      ScaleLog,
		DenoiseSpecAvg: true,
		MaxScaleSpec:   false,
		Colormap:       ColormapInferno,
		Segments:       conf.DefaultSegments,
		JPEGQuality:    conf.DefaultJPEGQuality,
	}
}

// ParamsFromSettings copies the spectrogram section of the configuration.
func ParamsFromSettings(s *conf.SpectrogramSettings) Params {
	return Params{
		FFTWinLength:   s.FFTWinLength,
		FFTOverlap:     s.FFTOverlap,
		MinFreq:        s.MinFreq,
		MaxFreq:        s.MaxFreq,
		SpecScale:      s.SpecScale,
		DenoiseSpecAvg: s.DenoiseSpecAvg,
		MaxScaleSpec:   s.MaxScaleSpec,
		Colormap:       s.Colormap,
		Segments:       s.Segments,
		JPEGQuality:    s.JPEGQuality,
	}
}

// Validate checks the parameters independently of any sample rate.
func (p Params) Validate() error {
	var problem string
	switch {
	case p.FFTWinLength <= 0 || math.IsNaN(p.FFTWinLength):
		problem = fmt.Sprintf("fft window length must be positive, got %v", p.FFTWinLength)
	case p.FFTOverlap < 0 || p.FFTOverlap >= 1 || math.IsNaN(p.FFTOverlap):
		problem = fmt.Sprintf("fft overlap must be in [0, 1), got %v", p.FFTOverlap)
	case p.MinFreq < 0:
		problem = fmt.Sprintf("min frequency must not be negative, got %d", p.MinFreq)
	case p.MaxFreq <= p.MinFreq:
		problem = fmt.Sprintf("max frequency %d must be above min frequency %d", p.MaxFreq, p.MinFreq)
	case p.SpecScale != ScaleLog && p.SpecScale != ScaleNone:
		problem = fmt.Sprintf("unknown spectrogram scale %q", p.SpecScale)
	case p.Colormap != ColormapInferno && p.Colormap != ColormapGray:
		problem = fmt.Sprintf("unknown colormap %q", p.Colormap)
	case p.Segments < 1:
		problem = fmt.Sprintf("segment count must be at least 1, got %d", p.Segments)
	case p.JPEGQuality < 1 || p.JPEGQuality > 100:
		problem = fmt.Sprintf("jpeg quality must be in 1-100, got %d", p.JPEGQuality)
	default:
		return nil
	}

	return errors.Newf("invalid spectrogram parameters: %s", problem).
		Component("spectrogram").
		Category(errors.CategoryValidation).
		Context("operation", "validate_params").
		Build()
}

// windowSize returns the FFT length in samples for a sample rate.
func (p Params) windowSize(sampleRate int) int {
	return int(p.FFTWinLength * float64(sampleRate))
}

// hopSize returns the frame advance in samples for an FFT length.
func (p Params) hopSize(nfft int) int {
	return nfft - int(p.FFTOverlap*float64(nfft))
}

// freqBin maps a frequency to its STFT row, bin = round(freq * window length).
// Halves round to even.
func (p Params) freqBin(freq int) int {
	return int(math.RoundToEven(float64(freq) * p.FFTWinLength))
}
