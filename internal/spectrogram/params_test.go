package spectrogram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/batprep/internal/conf"
	"github.com/tphakala/batprep/internal/errors"
)

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()
	require.NoError(t, p.Validate())

	assert.InDelta(t, 0.02, p.FFTWinLength, 0)
	assert.InDelta(t, 0.75, p.FFTOverlap, 0)
	assert.Equal(t, 10000, p.MinFreq)
	assert.Equal(t, 120000, p.MaxFreq)
	assert.Equal(t, ScaleLog, p.SpecScale)
	assert.True(t, p.DenoiseSpecAvg)
	assert.False(t, p.MaxScaleSpec)
	assert.Equal(t, ColormapInferno, p.Colormap)
	assert.Equal(t, 16, p.Segments)
	assert.Equal(t, 90, p.JPEGQuality)

	// 384 kHz is a common bat detector rate
	assert.Equal(t, 7680, p.windowSize(384000))
	assert.Equal(t, 1920, p.hopSize(7680))
	assert.Equal(t, 200, p.freqBin(p.MinFreq))
	assert.Equal(t, 2400, p.freqBin(p.MaxFreq))
}

func TestFreqBinRoundsHalfToEven(t *testing.T) {
	p := DefaultParams()
	p.FFTWinLength = 0.001

	assert.Equal(t, 0, p.freqBin(500))
	assert.Equal(t, 2, p.freqBin(1500))
	assert.Equal(t, 2, p.freqBin(2500))
	assert.Equal(t, 4, p.freqBin(3500))
	assert.Equal(t, 3, p.freqBin(2600))
}

func TestParamsFromSettings(t *testing.T) {
	s := &conf.SpectrogramSettings{
		FFTWinLength: 0.01, FFTOverlap: 0.5, MinFreq: 1000, MaxFreq: 4000,
		SpecScale: ScaleNone, DenoiseSpecAvg: false, MaxScaleSpec: true,
		Colormap: ColormapGray, Segments: 8, JPEGQuality: 75,
	}
	p := ParamsFromSettings(s)

	assert.Equal(t, Params{
		FFTWinLength: 0.01, FFTOverlap: 0.5, MinFreq: 1000, MaxFreq: 4000,
		SpecScale: ScaleNone, DenoiseSpecAvg: false, MaxScaleSpec: true,
		Colormap: ColormapGray, Segments: 8, JPEGQuality: 75,
	}, p)
	require.NoError(t, p.Validate())
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Params)
	}{
		{"zero window", func(p *Params) { p.FFTWinLength = 0 }},
		{"overlap of one", func(p *Params) { p.FFTOverlap = 1 }},
		{"negative overlap", func(p *Params) { p.FFTOverlap = -0.1 }},
		{"negative min freq", func(p *Params) { p.MinFreq = -1 }},
		{"max below min", func(p *Params) { p.MaxFreq = p.MinFreq }},
		{"unknown scale", func(p *Params) { p.SpecScale = "pcen" }},
		{"unknown colormap", func(p *Params) { p.Colormap = "viridis" }},
		{"no segments", func(p *Params) { p.Segments = 0 }},
		{"quality too high", func(p *Params) { p.JPEGQuality = 101 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.mutate(&p)
			err := p.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsValidation(err), "expected validation category, got %v", err)
		})
	}
}
