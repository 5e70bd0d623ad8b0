package conf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSettings() *Settings {
	return &Settings{
		Audio: AudioSettings{PlaybackTimeExpansion: 10, ClipBitDepth: 16},
		Spectrogram: SpectrogramSettings{
			DataDir:      "data",
			FFTWinLength: 0.02,
			FFTOverlap:   0.75,
			MinFreq:      10000,
			MaxFreq:      120000,
			SpecScale:    "log",
			Colormap:     "inferno",
			Segments:     16,
			JPEGQuality:  90,
		},
		Prepare:   PrepareSettings{QueueSize: 1},
		WebServer: WebServerSettings{Listen: ":8080", RateLimit: 5, RateBurst: 10},
	}
}

func TestValidateSettings(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr string
	}{
		{"valid", func(*Settings) {}, ""},
		{"zero playback", func(s *Settings) { s.Audio.PlaybackTimeExpansion = 0 }, "playbacktimeexpansion"},
		{"bit depth", func(s *Settings) { s.Audio.ClipBitDepth = 12 }, "clipbitdepth"},
		{"overlap one", func(s *Settings) { s.Spectrogram.FFTOverlap = 1 }, "fftoverlap"},
		{"freq order", func(s *Settings) { s.Spectrogram.MaxFreq = 5000 }, "frequency range"},
		{"spec scale", func(s *Settings) { s.Spectrogram.SpecScale = "pcen" }, "specscale"},
		{"quality", func(s *Settings) { s.Spectrogram.JPEGQuality = 101 }, "jpegquality"},
		{"workers", func(s *Settings) { s.Prepare.Workers = -1 }, "prepare.workers"},
		{"listen", func(s *Settings) { s.WebServer.Listen = "8080" }, "webserver.listen"},
		{"burst", func(s *Settings) { s.WebServer.RateBurst = 0 }, "rateburst"},
		{"no limiter no burst", func(s *Settings) { s.WebServer.RateLimit = 0; s.WebServer.RateBurst = 0 }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSettings()
			tt.mutate(s)

			err := ValidateSettings(s)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
