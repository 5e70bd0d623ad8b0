// Package clip builds the playback clip the labeling GUI plays: the recording
// encoded as a base64 WAV whose sample rate is slowed down by a time expansion
// factor so ultrasonic calls become audible.
package clip

import (
	"context"
	"time"

	"github.com/tphakala/batprep/internal/annotation"
	"github.com/tphakala/batprep/internal/conf"
	"github.com/tphakala/batprep/internal/errors"
	"github.com/tphakala/batprep/internal/logger"
	"github.com/tphakala/batprep/internal/myaudio"
	"github.com/tphakala/batprep/internal/observability/metrics"
)

// GetLogger returns the clip logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("clip")
}

// AudioResult is a loaded recording together with its playback clip.
type AudioResult struct {
	SampleRate            int       // true sample rate of Samples
	Samples               []float32 // mono samples in [-1, 1]
	WAVBase64             string    // playback clip, standard base64
	Duration              float64   // true-time seconds
	PlaybackRate          int       // sample rate written into the clip header
	PlaybackTimeExpansion float64   // factor the clip is slowed down by
}

// clipRecorder is implemented by recorders that also track encoded clips.
type clipRecorder interface {
	RecordClip(bitDepth int, timeExpansion, durationSeconds float64)
}

// Encoder loads recordings and encodes playback clips.
type Encoder struct {
	playbackTimeExpansion float64
	bitDepth              int
	loadOptions           myaudio.LoadOptions
	recorder              metrics.Recorder
	logger                logger.Logger
}

// NewEncoder creates an encoder from the audio settings. A nil recorder
// disables metrics.
func NewEncoder(settings *conf.AudioSettings, recorder metrics.Recorder) *Encoder {
	if recorder == nil {
		recorder = metrics.NewNoOpRecorder()
	}
	te := settings.PlaybackTimeExpansion
	if te <= 0 {
		te = conf.DefaultPlaybackTimeExpansion
	}
	return &Encoder{
		playbackTimeExpansion: te,
		bitDepth:              settings.ClipBitDepth,
		loadOptions: myaudio.LoadOptions{
			TargetSampleRate: settings.TargetSampleRate,
			MaxDuration:      settings.MaxDuration,
			Scale:            settings.Scale,
		},
		recorder: recorder,
		logger:   GetLogger(),
	}
}

// ComputeAudioData loads the recording of ann with default load options and a
// 16-bit clip.
func ComputeAudioData(ctx context.Context, ann *annotation.Annotation, audioDir string, playbackTimeExpansion float64) (*AudioResult, error) {
	e := NewEncoder(&conf.AudioSettings{PlaybackTimeExpansion: playbackTimeExpansion}, nil)
	return e.ComputeAudioData(ctx, ann, audioDir)
}

// ComputeAudioData resolves and loads the recording of ann and encodes its
// playback clip.
func (e *Encoder) ComputeAudioData(ctx context.Context, ann *annotation.Annotation, audioDir string) (*AudioResult, error) {
	if ann == nil {
		return nil, errors.Newf("annotation is required").
			Component("clip").
			Category(errors.CategoryValidation).
			Context("operation", "compute_audio_data").
			Build()
	}

	fileTimeExp := ann.TimeExp
	if fileTimeExp <= 0 {
		fileTimeExp = 1
	}
	listen, err := ListenTimeExpansion(fileTimeExp, e.playbackTimeExpansion)
	if err != nil {
		return nil, err
	}
	if fileTimeExp != 1 {
		e.logger.Info("Correct time expansion already used",
			logger.String("recording", ann.FileName),
			logger.Float64("time_expansion", fileTimeExp))
	}

	start := time.Now()
	data, err := e.Load(ctx, ann, audioDir)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, cancelled(err, ann)
	}

	res, err := e.Encode(data.Samples, data.SampleRate, listen)
	if err != nil {
		e.recordCategory(metrics.OpClipEncode, err)
		return nil, err
	}

	e.logger.Debug("Playback clip encoded",
		logger.String("recording", ann.FileName),
		logger.Int("sample_rate", res.SampleRate),
		logger.Int("playback_rate", res.PlaybackRate),
		logger.Float64("duration", res.Duration),
		logger.Duration("elapsed", time.Since(start)))
	return res, nil
}

// Load resolves the recording of ann inside audioDir and decodes it at its
// true sample rate.
func (e *Encoder) Load(ctx context.Context, ann *annotation.Annotation, audioDir string) (*myaudio.AudioData, error) {
	if ann == nil {
		return nil, errors.Newf("annotation is required").
			Component("clip").
			Category(errors.CategoryValidation).
			Context("operation", "load").
			Build()
	}
	if err := ctx.Err(); err != nil {
		return nil, cancelled(err, ann)
	}

	start := time.Now()
	data, err := myaudio.LoadAudioFile(ann.AudioPath(audioDir), ann.TimeExp, e.loadOptions)
	if err != nil {
		e.recorder.RecordOperation(metrics.OpAudioLoad, metrics.StatusError)
		e.recordCategory(metrics.OpAudioLoad, err)
		return nil, err
	}
	e.recorder.RecordOperation(metrics.OpAudioLoad, metrics.StatusSuccess)
	e.recorder.RecordDuration(metrics.OpAudioLoad, time.Since(start).Seconds())
	return data, nil
}

// Encode builds the playback clip for samples at their true sampleRate,
// slowed down by listen.
func (e *Encoder) Encode(samples []float32, sampleRate int, listen float64) (*AudioResult, error) {
	if sampleRate <= 0 || len(samples) == 0 {
		return nil, errors.Newf("cannot encode clip of %d samples at %d Hz", len(samples), sampleRate).
			Component("clip").
			Category(errors.CategoryValidation).
			Context("operation", "encode_clip").
			Build()
	}

	playbackRate := int(float64(sampleRate) / listen)
	if playbackRate < 1 {
		return nil, errors.Newf("playback rate of %d Hz / %v is below 1 Hz", sampleRate, listen).
			Component("clip").
			Category(errors.CategoryValidation).
			Context("operation", "encode_clip").
			Build()
	}

	start := time.Now()
	encoded, err := myaudio.EncodeWAVBase64(samples, playbackRate, e.bitDepth)
	if err != nil {
		e.recorder.RecordOperation(metrics.OpClipEncode, metrics.StatusError)
		return nil, err
	}
	e.recorder.RecordOperation(metrics.OpClipEncode, metrics.StatusSuccess)
	e.recorder.RecordDuration(metrics.OpClipEncode, time.Since(start).Seconds())

	duration := float64(len(samples)) / float64(sampleRate)
	if cr, ok := e.recorder.(clipRecorder); ok {
		bitDepth := e.bitDepth
		if bitDepth == 0 {
			bitDepth = myaudio.DefaultClipBitDepth
		}
		cr.RecordClip(bitDepth, listen, duration)
	}

	return &AudioResult{
		SampleRate:            sampleRate,
		Samples:               samples,
		WAVBase64:             encoded,
		Duration:              duration,
		PlaybackRate:          playbackRate,
		PlaybackTimeExpansion: listen,
	}, nil
}

// ListenTimeExpansion decides the slow-down applied to the playback clip.
// Real-time recordings (fileTimeExp 1) are slowed by playback. Recordings
// already stored time-expanded by exactly playback keep that factor. Any
// other stored factor is rejected.
func ListenTimeExpansion(fileTimeExp, playback float64) (float64, error) {
	switch {
	case playback <= 0:
		return 0, errors.Newf("playback time expansion must be positive, got %v", playback).
			Component("clip").
			Category(errors.CategoryValidation).
			Context("operation", "listen_time_expansion").
			Build()
	case fileTimeExp == 1:
		return playback, nil
	case fileTimeExp == playback:
		return fileTimeExp, nil
	default:
		return 0, errors.Newf("unsupported time expansion factor %v (expected 1 or %v)", fileTimeExp, playback).
			Component("clip").
			Category(errors.CategoryValidation).
			Context("operation", "listen_time_expansion").
			Context("time_expansion", fileTimeExp).
			Context("playback_time_expansion", playback).
			Build()
	}
}

func (e *Encoder) recordCategory(operation string, err error) {
	var ee *errors.EnhancedError
	if errors.As(err, &ee) {
		e.recorder.RecordError(operation, ee.GetCategory())
		return
	}
	e.recorder.RecordError(operation, string(errors.CategoryGeneric))
}

func cancelled(err error, ann *annotation.Annotation) error {
	return errors.New(err).
		Component("clip").
		Category(errors.CategoryCancellation).
		Context("operation", "compute_audio_data").
		Context("recording", ann.FileName).
		Build()
}
