// Package prepare turns annotated recordings into everything the labeling GUI
// shows: the playback clip and the segmented spectrogram.
package prepare

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/tphakala/batprep/internal/annotation"
	"github.com/tphakala/batprep/internal/clip"
	"github.com/tphakala/batprep/internal/errors"
	"github.com/tphakala/batprep/internal/logger"
	"github.com/tphakala/batprep/internal/observability/metrics"
	"github.com/tphakala/batprep/internal/spectrogram"
)

// annotationExt is the suffix of annotation files.
const annotationExt = ".json"

// idPattern matches recording IDs accepted from clients.
var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_\-.]+$`)

// GetLogger returns the prepare logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("prepare")
}

// Recording is a prepared recording.
type Recording struct {
	ID         string                   // annotation file name without ".json"
	Annotation *annotation.Annotation   // parsed annotation
	AudioPath  string                   // resolved recording path
	Audio      *clip.AudioResult        // samples and playback clip
	Image      *spectrogram.ImageResult // spectrogram segments
}

// Entry summarizes an annotation for listings.
type Entry struct {
	ID        string  `json:"id"`
	FileName  string  `json:"file_name"`
	TimeExp   float64 `json:"time_exp"`
	Annotated bool    `json:"annotated"`
}

// Service prepares recordings described by annotation files.
type Service struct {
	annotationDir string
	audioDir      string
	clips         *clip.Encoder
	images        *spectrogram.Generator
	recorder      metrics.Recorder
	logger        logger.Logger
}

// NewService creates a service reading annotations from annotationDir and
// recordings from audioDir. A nil recorder disables metrics.
func NewService(annotationDir, audioDir string, clips *clip.Encoder, images *spectrogram.Generator, recorder metrics.Recorder) (*Service, error) {
	if clips == nil || images == nil {
		return nil, errors.Newf("prepare service requires a clip encoder and a spectrogram generator").
			Component("prepare").
			Category(errors.CategoryConfiguration).
			Context("operation", "new_service").
			Build()
	}
	if recorder == nil {
		recorder = metrics.NewNoOpRecorder()
	}
	return &Service{
		annotationDir: annotationDir,
		audioDir:      audioDir,
		clips:         clips,
		images:        images,
		recorder:      recorder,
		logger:        GetLogger(),
	}, nil
}

// AnnotationDir returns the directory annotations are listed from.
func (s *Service) AnnotationDir() string {
	return s.annotationDir
}

// AudioDir returns the directory recordings are resolved in.
func (s *Service) AudioDir() string {
	return s.audioDir
}

// Generator returns the spectrogram generator.
func (s *Service) Generator() *spectrogram.Generator {
	return s.images
}

// ID returns the recording ID of an annotation file path.
func ID(annotationPath string) string {
	return strings.TrimSuffix(filepath.Base(annotationPath), annotationExt)
}

// ValidateID reports whether id is safe to resolve inside the annotation directory.
func ValidateID(id string) error {
	if !idPattern.MatchString(id) || id == "." || id == ".." {
		return errors.Newf("invalid recording id %q", id).
			Component("prepare").
			Category(errors.CategoryValidation).
			Context("operation", "validate_id").
			Build()
	}
	return nil
}

// AnnotationPath resolves a recording ID to its annotation file.
func (s *Service) AnnotationPath(id string) (string, error) {
	if err := ValidateID(id); err != nil {
		return "", err
	}
	return filepath.Join(s.annotationDir, id+annotationExt), nil
}

// List summarizes every readable annotation in the annotation directory.
// Unreadable files are logged and left out.
func (s *Service) List() ([]Entry, error) {
	paths, err := annotation.List(s.annotationDir)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(paths))
	for _, p := range paths {
		ann, err := annotation.Load(p)
		if err != nil {
			s.logger.Warn("skipping unreadable annotation", logger.String("path", p), logger.Error(err))
			continue
		}
		entries = append(entries, Entry{
			ID:        ID(p),
			FileName:  ann.FileName,
			TimeExp:   ann.TimeExp,
			Annotated: ann.Annotated,
		})
	}
	return entries, nil
}

// Load reads the annotation of recording id.
func (s *Service) Load(id string) (*annotation.Annotation, error) {
	path, err := s.AnnotationPath(id)
	if err != nil {
		return nil, err
	}
	return annotation.Load(path)
}

// Audio computes the playback clip of recording id.
func (s *Service) Audio(ctx context.Context, id string) (*clip.AudioResult, error) {
	ann, err := s.Load(id)
	if err != nil {
		return nil, err
	}
	return s.clips.ComputeAudioData(ctx, ann, s.audioDir)
}

// Spectrogram returns the spectrogram segments of recording id, loading the
// recording only on a cache miss.
func (s *Service) Spectrogram(ctx context.Context, id string) (*spectrogram.ImageResult, error) {
	ann, err := s.Load(id)
	if err != nil {
		return nil, err
	}
	return s.ImageData(ctx, ann)
}

// ImageData returns the spectrogram segments of ann's recording, loading the
// recording only on a cache miss.
func (s *Service) ImageData(ctx context.Context, ann *annotation.Annotation) (*spectrogram.ImageResult, error) {
	ref := ann.AudioPath(s.audioDir)
	if res, ok, err := s.images.Lookup(ref); err == nil && ok {
		return res, nil
	}
	data, err := s.clips.Load(ctx, ann, s.audioDir)
	if err != nil {
		return nil, err
	}
	return s.images.ComputeImageData(ctx, data.Samples, data.SampleRate, ref)
}

// PrepareRecording loads the annotation at annotationPath, computes the
// playback clip and then the spectrogram of its recording.
func (s *Service) PrepareRecording(ctx context.Context, annotationPath string) (*Recording, error) {
	ann, err := annotation.Load(annotationPath)
	if err != nil {
		s.recorder.RecordOperation(metrics.OpPrepare, metrics.StatusError)
		s.recordCategory(err)
		return nil, err
	}
	return s.Prepare(ctx, ann)
}

// Prepare computes the clip and spectrogram of an already parsed annotation.
func (s *Service) Prepare(ctx context.Context, ann *annotation.Annotation) (*Recording, error) {
	start := time.Now()

	rec, err := s.prepare(ctx, ann)
	if err != nil {
		s.recorder.RecordOperation(metrics.OpPrepare, metrics.StatusError)
		s.recordCategory(err)
		return nil, err
	}

	s.recorder.RecordOperation(metrics.OpPrepare, metrics.StatusSuccess)
	s.recorder.RecordDuration(metrics.OpPrepare, time.Since(start).Seconds())
	s.logger.Debug("Recording prepared",
		logger.String("id", rec.ID),
		logger.String("audio_path", rec.AudioPath),
		logger.Bool("cached", rec.Image.Cached),
		logger.Duration("elapsed", time.Since(start)))
	return rec, nil
}

func (s *Service) prepare(ctx context.Context, ann *annotation.Annotation) (*Recording, error) {
	audio, err := s.clips.ComputeAudioData(ctx, ann, s.audioDir)
	if err != nil {
		return nil, err
	}

	audioPath := ann.AudioPath(s.audioDir)
	image, err := s.images.ComputeImageData(ctx, audio.Samples, audio.SampleRate, audioPath)
	if err != nil {
		return nil, err
	}

	id := ID(ann.Source)
	if ann.Source == "" {
		id = ann.Reference()
	}
	return &Recording{
		ID:         id,
		Annotation: ann,
		AudioPath:  audioPath,
		Audio:      audio,
		Image:      image,
	}, nil
}

// Job returns a background pre-render job for ann. The recording is read
// only when a worker picks the job up.
func (s *Service) Job(ann *annotation.Annotation) *spectrogram.Job {
	return &spectrogram.Job{
		Reference: ann.AudioPath(s.audioDir),
		Load: func(ctx context.Context) ([]float32, int, error) {
			data, err := s.clips.Load(ctx, ann, s.audioDir)
			if err != nil {
				return nil, 0, err
			}
			return data.Samples, data.SampleRate, nil
		},
	}
}

// Warm queues a pre-render job for every readable annotation and returns the
// number queued or skipped. It waits for queue space while the pre-renderer
// is busy and stops early only when ctx ends or the pre-renderer stops.
func (s *Service) Warm(ctx context.Context, pr *spectrogram.PreRenderer) (int, error) {
	anns, err := annotation.LoadDir(s.annotationDir)
	if err != nil && len(anns) == 0 {
		return 0, err
	}

	submitted := 0
	for _, ann := range anns {
		if _, statErr := os.Stat(ann.AudioPath(s.audioDir)); statErr != nil {
			s.logger.Debug("recording missing, not pre-rendering",
				logger.String("annotation", ann.Source),
				logger.Error(statErr))
			continue
		}
		if err := pr.SubmitWait(ctx, s.Job(ann)); err != nil {
			return submitted, err
		}
		submitted++
	}
	return submitted, nil
}

func (s *Service) recordCategory(err error) {
	var ee *errors.EnhancedError
	if errors.As(err, &ee) {
		s.recorder.RecordError(metrics.OpPrepare, ee.GetCategory())
		return
	}
	s.recorder.RecordError(metrics.OpPrepare, string(errors.CategoryGeneric))
}
