package myaudio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/batprep/internal/errors"
)

func TestLoadAudioFileWAV16(t *testing.T) {
	dir := t.TempDir()
	path := writeTestWAV(t, dir, "rec.wav", 25600, 16, 1, []int{0, 16384, -16384, 32767, -32768})

	data, err := LoadAudioFile(path, 10, LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, 256000, data.SampleRate, "rate must be multiplied by the time expansion factor")
	assert.Equal(t, 16, data.BitDepth)
	assert.Equal(t, 1, data.NumChannels)
	require.Len(t, data.Samples, 5)
	assert.InDelta(t, 0.0, data.Samples[0], 1e-6)
	assert.InDelta(t, 0.5, data.Samples[1], 1e-6)
	assert.InDelta(t, -0.5, data.Samples[2], 1e-6)
	assert.InDelta(t, -1.0, data.Samples[4], 1e-6)
	assert.InDelta(t, 5.0/256000, data.Duration(), 1e-12)
}

func TestLoadAudioFileBitDepths(t *testing.T) {
	tests := []struct {
		name     string
		bitDepth int
		value    int
		want     float32
	}{
		{"8 bit unsigned", 8, 192, 0.5},
		{"24 bit", 24, 4194304, 0.5},
		{"32 bit", 32, -1073741824, -0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTestWAV(t, t.TempDir(), "rec.wav", 8000, tt.bitDepth, 1, []int{tt.value, tt.value})

			data, err := LoadAudioFile(path, 1, LoadOptions{})
			require.NoError(t, err)
			require.Len(t, data.Samples, 2)
			assert.InDelta(t, tt.want, data.Samples[0], 1e-6)
			assert.Equal(t, tt.bitDepth, data.BitDepth)
		})
	}
}

func TestLoadAudioFileStereoUsesFirstChannel(t *testing.T) {
	path := writeTestWAV(t, t.TempDir(), "stereo.wav", 8000, 16, 2, []int{100, -5, 200, -5, 300, -5})

	data, err := LoadAudioFile(path, 1, LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, 2, data.NumChannels)
	require.Len(t, data.Samples, 3)
	assert.InDelta(t, 200.0/32768, data.Samples[1], 1e-7)
}

func TestLoadAudioFileOptions(t *testing.T) {
	samples := sineInts(8000, 8000, 440, 8000)
	path := writeTestWAV(t, t.TempDir(), "tone.wav", 8000, 16, 1, samples)

	t.Run("resample", func(t *testing.T) {
		data, err := LoadAudioFile(path, 1, LoadOptions{TargetSampleRate: 16000})
		require.NoError(t, err)
		assert.Equal(t, 16000, data.SampleRate)
		assert.Len(t, data.Samples, 16000)
	})

	t.Run("resample uses true rate", func(t *testing.T) {
		// stored at 8 kHz with 2x expansion, so the true rate is already 16 kHz
		data, err := LoadAudioFile(path, 2, LoadOptions{TargetSampleRate: 16000})
		require.NoError(t, err)
		assert.Equal(t, 16000, data.SampleRate)
		assert.Len(t, data.Samples, 8000)
	})

	t.Run("crop", func(t *testing.T) {
		data, err := LoadAudioFile(path, 1, LoadOptions{MaxDuration: 0.25})
		require.NoError(t, err)
		assert.Len(t, data.Samples, 2000)
	})

	t.Run("scale", func(t *testing.T) {
		data, err := LoadAudioFile(path, 1, LoadOptions{Scale: true})
		require.NoError(t, err)

		var peak float32
		for _, s := range data.Samples {
			peak = max(peak, s, -s)
		}
		assert.InDelta(t, 1.0, peak, 1e-3)
	})
}

func TestLoadAudioFileErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadAudioFile(filepath.Join(dir, "missing.wav"), 1, LoadOptions{})
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))

	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("x"), 0o600))
	_, err = LoadAudioFile(txt, 1, LoadOptions{})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	corrupt := filepath.Join(dir, "corrupt.wav")
	require.NoError(t, os.WriteFile(corrupt, []byte("RIFFnotreallyawave"), 0o600))
	_, err = LoadAudioFile(corrupt, 1, LoadOptions{})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileParsing))

	emptyFLAC := filepath.Join(dir, "empty.flac")
	require.NoError(t, os.WriteFile(emptyFLAC, nil, 0o600))
	_, err = LoadAudioFile(emptyFLAC, 1, LoadOptions{})
	require.Error(t, err)
}

func TestReadAudioInfo(t *testing.T) {
	path := writeTestWAV(t, t.TempDir(), "info.wav", 44100, 24, 2, make([]int, 20))

	info, err := ReadAudioInfo(path)
	require.NoError(t, err)
	assert.Equal(t, 44100, info.SampleRate)
	assert.Equal(t, 2, info.NumChannels)
	assert.Equal(t, 24, info.BitDepth)
	assert.Equal(t, 10, info.TotalSamples)
}

func TestDecodeLESample(t *testing.T) {
	assert.Equal(t, int32(-1), decodeLESample([]byte{0xff}))
	assert.Equal(t, int32(-2), decodeLESample([]byte{0xfe, 0xff}))
	assert.Equal(t, int32(-8388608), decodeLESample([]byte{0x00, 0x00, 0x80}))
	assert.Equal(t, int32(8388607), decodeLESample([]byte{0xff, 0xff, 0x7f}))
	assert.Equal(t, int32(1), decodeLESample([]byte{1, 0, 0, 0}))
}
