package myaudio

import (
	"fmt"
	"math"
)

// getAudioDivisor returns the value that maps a signed PCM sample of the given
// bit depth into [-1, 1).
func getAudioDivisor(bitDepth int) (float32, error) {
	switch bitDepth {
	case 8:
		return 128.0, nil
	case 16:
		return 32768.0, nil
	case 24:
		return 8388608.0, nil
	case 32:
		return 2147483648.0, nil
	default:
		return 0, fmt.Errorf("unsupported audio bit depth: %d", bitDepth)
	}
}

// firstChannel extracts channel 0 from interleaved samples.
func firstChannel(interleaved []float32, numChannels int) []float32 {
	if numChannels <= 1 {
		return interleaved
	}

	frames := len(interleaved) / numChannels
	mono := make([]float32, frames)
	for i := range frames {
		mono[i] = interleaved[i*numChannels]
	}
	return mono
}

// ScaleAudio removes the DC offset and divides by the peak absolute value.
// The small epsilon keeps silent input finite.
func ScaleAudio(samples []float32) []float32 {
	if len(samples) == 0 {
		return samples
	}

	var sum float64
	for _, s := range samples {
		sum += float64(s)
	}
	mean := sum / float64(len(samples))

	scaled := make([]float32, len(samples))
	var peak float64
	for i, s := range samples {
		v := float64(s) - mean
		scaled[i] = float32(v)
		peak = math.Max(peak, math.Abs(v))
	}

	div := float32(peak + 1e-5)
	for i := range scaled {
		scaled[i] /= div
	}
	return scaled
}

// floatToPCM converts a sample in [-1, 1] to an integer PCM value for bitDepth.
// Values are clipped; 8-bit output is unsigned as WAV requires.
func floatToPCM(sample float32, bitDepth int) int {
	maxVal := float64(int64(1)<<(bitDepth-1)) - 1
	v := math.Round(float64(sample) * maxVal)
	v = math.Max(-maxVal-1, math.Min(maxVal, v))

	if bitDepth == 8 {
		return int(v) + 128
	}
	return int(v)
}
