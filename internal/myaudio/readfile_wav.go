package myaudio

import (
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/tphakala/batprep/internal/errors"
)

// wavReadChunk is the number of interleaved samples decoded per PCMBuffer call
const wavReadChunk = 64 * 1024

func newWAVDecoder(r io.ReadSeeker) (*wav.Decoder, error) {
	decoder := wav.NewDecoder(r)
	decoder.ReadInfo()

	if !decoder.IsValidFile() {
		return nil, errors.NewStd("invalid WAV file format")
	}

	if _, err := getAudioDivisor(int(decoder.BitDepth)); err != nil {
		return nil, err
	}

	if decoder.NumChans == 0 {
		return nil, errors.NewStd("WAV file declares zero channels")
	}

	return decoder, nil
}

func readWAVInfo(r io.ReadSeeker) (AudioInfo, error) {
	decoder, err := newWAVDecoder(r)
	if err != nil {
		return AudioInfo{}, err
	}

	if err := decoder.FwdToPCM(); err != nil {
		return AudioInfo{}, fmt.Errorf("error locating PCM data: %w", err)
	}

	bytesPerFrame := int64(decoder.BitDepth/8) * int64(decoder.NumChans)
	totalSamples := 0
	if bytesPerFrame > 0 {
		totalSamples = int(decoder.PCMLen() / bytesPerFrame)
	}

	return AudioInfo{
		SampleRate:   int(decoder.SampleRate),
		TotalSamples: totalSamples,
		NumChannels:  int(decoder.NumChans),
		BitDepth:     int(decoder.BitDepth),
	}, nil
}

// readWAV decodes the full PCM payload into interleaved float32 samples.
func readWAV(r io.ReadSeeker) (*decodedAudio, error) {
	decoder, err := newWAVDecoder(r)
	if err != nil {
		return nil, err
	}

	bitDepth := int(decoder.BitDepth)
	divisor, err := getAudioDivisor(bitDepth)
	if err != nil {
		return nil, err
	}

	// 8-bit WAV is unsigned
	var offset int
	if bitDepth == 8 {
		offset = 128
	}

	buf := &audio.IntBuffer{
		Data:   make([]int, wavReadChunk),
		Format: &audio.Format{SampleRate: int(decoder.SampleRate), NumChannels: int(decoder.NumChans)},
	}

	var samples []float32
	for {
		n, err := decoder.PCMBuffer(buf)
		if err != nil {
			return nil, fmt.Errorf("error reading PCM data: %w", err)
		}
		if n == 0 {
			break
		}

		for _, sample := range buf.Data[:n] {
			samples = append(samples, float32(sample-offset)/divisor)
		}
	}

	return &decodedAudio{
		info: AudioInfo{
			SampleRate:   int(decoder.SampleRate),
			TotalSamples: len(samples) / int(decoder.NumChans),
			NumChannels:  int(decoder.NumChans),
			BitDepth:     bitDepth,
		},
		samples: samples,
	}, nil
}
