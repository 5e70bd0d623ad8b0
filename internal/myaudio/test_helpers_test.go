package myaudio

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/require"
)

// writeTestWAV writes interleaved integer PCM data to dir/name and returns the path.
func writeTestWAV(t *testing.T, dir, name string, sampleRate, bitDepth, channels int, data []int) string {
	t.Helper()

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)

	enc := wav.NewEncoder(f, sampleRate, bitDepth, channels, 1)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{SampleRate: sampleRate, NumChannels: channels},
		SourceBitDepth: bitDepth,
	}))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())

	return path
}

// sineInts returns n samples of a sine wave at freq Hz scaled to amplitude.
func sineInts(n, sampleRate int, freq, amplitude float64) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = int(math.Round(amplitude * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))))
	}
	return out
}
