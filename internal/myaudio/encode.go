package myaudio

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/tphakala/batprep/internal/errors"
)

// DefaultClipBitDepth is the PCM bit depth used when EncodeWAV gets 0
const DefaultClipBitDepth = 16

// wavFormatPCM is the WAVE_FORMAT_PCM audio format tag
const wavFormatPCM = 1

// seekableBuffer is an in-memory io.WriteSeeker for the WAV encoder, which seeks
// back to patch chunk sizes on Close.
type seekableBuffer struct {
	buf []byte
	pos int64
}

func (s *seekableBuffer) Write(p []byte) (int, error) {
	end := s.pos + int64(len(p))
	if end > int64(len(s.buf)) {
		s.buf = append(s.buf, make([]byte, end-int64(len(s.buf)))...)
	}
	copy(s.buf[s.pos:end], p)
	s.pos = end
	return len(p), nil
}

func (s *seekableBuffer) Seek(offset int64, whence int) (int64, error) {
	var newPos int64
	switch whence {
	case io.SeekStart:
		newPos = offset
	case io.SeekCurrent:
		newPos = s.pos + offset
	case io.SeekEnd:
		newPos = int64(len(s.buf)) + offset
	default:
		return 0, fmt.Errorf("invalid whence: %d", whence)
	}
	if newPos < 0 {
		return 0, errors.NewStd("negative seek position")
	}
	s.pos = newPos
	return newPos, nil
}

func (s *seekableBuffer) Bytes() []byte {
	return s.buf
}

// EncodeWAV writes mono samples into a PCM WAV container held in memory.
// bitDepth 0 selects DefaultClipBitDepth.
func EncodeWAV(samples []float32, sampleRate, bitDepth int) ([]byte, error) {
	if bitDepth == 0 {
		bitDepth = DefaultClipBitDepth
	}
	if _, err := getAudioDivisor(bitDepth); err != nil {
		return nil, errors.New(err).
			Component("myaudio").
			Category(errors.CategoryValidation).
			Context("bit_depth", bitDepth).
			Build()
	}
	if sampleRate <= 0 {
		return nil, errors.Newf("invalid sample rate: %d", sampleRate).
			Component("myaudio").
			Category(errors.CategoryValidation).
			Build()
	}

	ws := &seekableBuffer{}
	if err := writeWAV(ws, samples, sampleRate, bitDepth); err != nil {
		return nil, errors.New(err).
			Component("myaudio").
			Category(errors.CategoryAudio).
			Context("operation", "encode-wav").
			Build()
	}

	return ws.Bytes(), nil
}

// EncodeWAVBase64 returns the standard base64 encoding of EncodeWAV's output.
func EncodeWAVBase64(samples []float32, sampleRate, bitDepth int) (string, error) {
	data, err := EncodeWAV(samples, sampleRate, bitDepth)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// SaveWAV writes samples as a PCM WAV file, creating parent directories.
func SaveWAV(filePath string, samples []float32, sampleRate, bitDepth int) error {
	data, err := EncodeWAV(samples, sampleRate, bitDepth)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0o750); err != nil {
		return newAudioError(fmt.Errorf("failed to create directories: %w", err), errors.CategoryFileIO, filePath, "save-wav")
	}

	if err := os.WriteFile(filePath, data, 0o600); err != nil {
		return newAudioError(err, errors.CategoryFileIO, filePath, "save-wav")
	}
	return nil
}

func writeWAV(ws io.WriteSeeker, samples []float32, sampleRate, bitDepth int) error {
	enc := wav.NewEncoder(ws, sampleRate, bitDepth, 1, wavFormatPCM)

	intSamples := make([]int, len(samples))
	for i, s := range samples {
		intSamples[i] = floatToPCM(s, bitDepth)
	}

	buf := &audio.IntBuffer{
		Data:           intSamples,
		Format:         &audio.Format{SampleRate: sampleRate, NumChannels: 1},
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("failed to write to WAV encoder: %w", err)
	}

	return enc.Close()
}

// DecodeWAV decodes an in-memory WAV container produced by EncodeWAV or any
// other PCM WAV writer. The sample rate is returned as stored.
func DecodeWAV(data []byte) (*AudioData, error) {
	decoded, err := readWAV(bytes.NewReader(data))
	if err != nil {
		return nil, errors.New(err).
			Component("myaudio").
			Category(errors.CategoryFileParsing).
			Context("operation", "decode-wav").
			Build()
	}

	return &AudioData{
		SampleRate:  decoded.info.SampleRate,
		Samples:     firstChannel(decoded.samples, decoded.info.NumChannels),
		BitDepth:    decoded.info.BitDepth,
		NumChannels: decoded.info.NumChannels,
	}, nil
}

var _ io.WriteSeeker = (*seekableBuffer)(nil)
