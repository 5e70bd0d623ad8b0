package myaudio

import (
	"encoding/binary"
	"io"

	"github.com/tphakala/flac"

	"github.com/tphakala/batprep/internal/errors"
)

func readFLACInfo(r io.Reader) (AudioInfo, error) {
	decoder, err := flac.NewDecoder(r)
	if err != nil {
		return AudioInfo{}, err
	}

	return AudioInfo{
		SampleRate:   decoder.SampleRate,
		TotalSamples: int(decoder.TotalSamples),
		NumChannels:  decoder.NChannels,
		BitDepth:     decoder.BitsPerSample,
	}, nil
}

// readFLAC decodes all frames into interleaved float32 samples.
func readFLAC(r io.Reader) (*decodedAudio, error) {
	decoder, err := flac.NewDecoder(r)
	if err != nil {
		return nil, err
	}

	divisor, err := getAudioDivisor(decoder.BitsPerSample)
	if err != nil {
		return nil, err
	}
	if decoder.NChannels < 1 {
		return nil, errors.NewStd("FLAC stream declares zero channels")
	}

	bytesPerSample := decoder.BitsPerSample / 8
	samples := make([]float32, 0, int(decoder.TotalSamples)*decoder.NChannels)

	for {
		frame, err := decoder.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		for i := 0; i+bytesPerSample <= len(frame); i += bytesPerSample {
			samples = append(samples, float32(decodeLESample(frame[i:i+bytesPerSample]))/divisor)
		}
	}

	return &decodedAudio{
		info: AudioInfo{
			SampleRate:   decoder.SampleRate,
			TotalSamples: len(samples) / decoder.NChannels,
			NumChannels:  decoder.NChannels,
			BitDepth:     decoder.BitsPerSample,
		},
		samples: samples,
	}, nil
}

// decodeLESample decodes one signed little-endian sample of 1 to 4 bytes.
func decodeLESample(b []byte) int32 {
	switch len(b) {
	case 1:
		return int32(int8(b[0]))
	case 2:
		return int32(int16(binary.LittleEndian.Uint16(b)))
	case 3:
		v := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
		// sign-extend from 24 bits
		return (v << 8) >> 8
	case 4:
		return int32(binary.LittleEndian.Uint32(b))
	default:
		return 0
	}
}
