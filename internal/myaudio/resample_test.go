package myaudio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResampleAudio(t *testing.T) {
	in := make([]float32, 1000)
	for i := range in {
		in[i] = float32(i) / 1000
	}

	same, err := ResampleAudio(in, 48000, 48000)
	require.NoError(t, err)
	assert.Equal(t, in, same)

	up, err := ResampleAudio(in, 48000, 96000)
	require.NoError(t, err)
	assert.Len(t, up, 2000)
	// a linear ramp is reproduced by cubic interpolation away from the edges
	assert.InDelta(t, in[500], up[1000], 1e-5)
	assert.InDelta(t, (in[500]+in[501])/2, up[1001], 1e-5)

	down, err := ResampleAudio(in, 48000, 24000)
	require.NoError(t, err)
	assert.Len(t, down, 500)

	short, err := ResampleAudio([]float32{1, 2}, 1000, 2000)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 1, 2, 2}, short)

	_, err = ResampleAudio(in, 0, 1000)
	assert.Error(t, err)
}

func TestScaleAudio(t *testing.T) {
	out := ScaleAudio([]float32{1, 2, 3})
	assert.InDelta(t, -1.0, out[0], 1e-4)
	assert.InDelta(t, 0.0, out[1], 1e-6)
	assert.InDelta(t, 1.0, out[2], 1e-4)

	silent := ScaleAudio([]float32{0, 0})
	assert.Equal(t, []float32{0, 0}, silent)

	assert.Empty(t, ScaleAudio(nil))
}
