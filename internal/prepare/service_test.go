package prepare

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/batprep/internal/clip"
	"github.com/tphakala/batprep/internal/conf"
	"github.com/tphakala/batprep/internal/errors"
	"github.com/tphakala/batprep/internal/myaudio"
	"github.com/tphakala/batprep/internal/observability/metrics"
	"github.com/tphakala/batprep/internal/securefs"
	"github.com/tphakala/batprep/internal/spectrogram"
)

const fixtureRate = 8000

type fixture struct {
	annotationDir string
	audioDir      string
	dataDir       string
	recorder      *metrics.TestRecorder
	service       *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	f := &fixture{
		annotationDir: filepath.Join(root, "annotations"),
		audioDir:      filepath.Join(root, "audio"),
		dataDir:       filepath.Join(root, "data"),
		recorder:      metrics.NewTestRecorder(),
	}
	require.NoError(t, os.MkdirAll(f.annotationDir, 0o750))
	require.NoError(t, os.MkdirAll(f.audioDir, 0o750))

	sfs, err := securefs.New(f.dataDir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sfs.Close() })

	params := spectrogram.DefaultParams()
	params.FFTWinLength = 0.01
	params.MinFreq = 500
	params.MaxFreq = 3500
	params.Segments = 4

	gen, err := spectrogram.NewGenerator(params, sfs, nil, spectrogram.WithRecorder(f.recorder))
	require.NoError(t, err)

	enc := clip.NewEncoder(&conf.AudioSettings{PlaybackTimeExpansion: 10, ClipBitDepth: 16}, f.recorder)
	f.service, err = NewService(f.annotationDir, f.audioDir, enc, gen, f.recorder)
	require.NoError(t, err)
	return f
}

// addRecording writes a half-second chirp and its annotation; it returns the annotation path.
func (f *fixture) addRecording(t *testing.T, name string, timeExp float64, annotated bool) string {
	t.Helper()
	samples := make([]float32, fixtureRate/2)
	for i := range samples {
		x := float64(i) / fixtureRate
		samples[i] = float32(0.5 * math.Sin(2*math.Pi*(1000+2000*x)*x))
	}
	require.NoError(t, myaudio.SaveWAV(filepath.Join(f.audioDir, name), samples, fixtureRate, 16))
	return f.addAnnotation(t, name, timeExp, annotated)
}

func (f *fixture) addAnnotation(t *testing.T, name string, timeExp float64, annotated bool) string {
	t.Helper()
	doc := fmt.Sprintf(`{"id": %q, "file_name": %q, "time_exp": "%v", "annotated": %v, "issues": false,
		"annotation": [{"start_time": 0.1, "end_time": 0.2, "low_freq": 1000, "high_freq": 3000, "class": "Myotis", "event": "Echolocation", "individual": "0"}]}`,
		name, name, timeExp, annotated)
	path := filepath.Join(f.annotationDir, name+".json")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
	return path
}

func TestNewServiceRequiresComponents(t *testing.T) {
	_, err := NewService("a", "b", nil, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestPrepareRecording(t *testing.T) {
	f := newFixture(t)
	path := f.addRecording(t, "rec1.wav", 1, true)

	rec, err := f.service.PrepareRecording(t.Context(), path)
	require.NoError(t, err)

	assert.Equal(t, "rec1.wav", rec.ID)
	assert.Equal(t, filepath.Join(f.audioDir, "rec1.wav"), rec.AudioPath)
	assert.Equal(t, fixtureRate, rec.Audio.SampleRate)
	assert.Equal(t, fixtureRate/10, rec.Audio.PlaybackRate)
	assert.NotEmpty(t, rec.Audio.WAVBase64)
	assert.False(t, rec.Image.Cached)
	assert.Len(t, rec.Image.Paths, 4)
	for _, p := range rec.Image.Paths {
		assert.FileExists(t, p)
		assert.Equal(t, f.dataDir, filepath.Dir(p))
	}
	assert.Equal(t, 1, f.recorder.GetOperationCount(metrics.OpPrepare, metrics.StatusSuccess))

	again, err := f.service.PrepareRecording(t.Context(), path)
	require.NoError(t, err)
	assert.True(t, again.Image.Cached)
	assert.Equal(t, rec.Image.Paths, again.Image.Paths)
}

func TestPrepareRecordingErrors(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.PrepareRecording(t.Context(), filepath.Join(f.annotationDir, "missing.wav.json"))
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
	assert.Equal(t, 1, f.recorder.GetErrorCount(metrics.OpPrepare, string(errors.CategoryNotFound)))

	// annotation without its recording
	orphan := f.addAnnotation(t, "orphan.wav", 1, false)
	_, err = f.service.PrepareRecording(t.Context(), orphan)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))

	// stored time expansion that is neither 1 nor the playback factor
	odd := f.addRecording(t, "odd.wav", 5, false)
	_, err = f.service.PrepareRecording(t.Context(), odd)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.Equal(t, 3, f.recorder.GetOperationCount(metrics.OpPrepare, metrics.StatusError))
}

func TestServiceList(t *testing.T) {
	f := newFixture(t)
	f.addRecording(t, "b.wav", 10, false)
	f.addRecording(t, "a.wav", 1, true)
	require.NoError(t, os.WriteFile(filepath.Join(f.annotationDir, "broken.json"), []byte("{"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(f.annotationDir, "notes.txt"), []byte("x"), 0o600))

	entries, err := f.service.List()
	require.NoError(t, err)
	assert.Equal(t, []Entry{
		{ID: "a.wav", FileName: "a.wav", TimeExp: 1, Annotated: true},
		{ID: "b.wav", FileName: "b.wav", TimeExp: 10, Annotated: false},
	}, entries)
}

func TestValidateID(t *testing.T) {
	tests := []struct {
		id      string
		wantErr bool
	}{
		{"rec_01-a.wav", false},
		{"20190810_221043", false},
		{"", true},
		{"..", true},
		{".", true},
		{"../etc/passwd", true},
		{"a b", true},
		{"a/b", true},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			err := ValidateID(tt.id)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsValidation(err))
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestServiceAudioAndSpectrogram(t *testing.T) {
	f := newFixture(t)
	f.addRecording(t, "rec.wav", 10, true)

	audio, err := f.service.Audio(t.Context(), "rec.wav")
	require.NoError(t, err)
	// stored time-expanded: true rate is the file rate times ten
	assert.Equal(t, fixtureRate*10, audio.SampleRate)
	assert.Equal(t, fixtureRate, audio.PlaybackRate)

	img, err := f.service.Spectrogram(t.Context(), "rec.wav")
	require.NoError(t, err)
	assert.False(t, img.Cached)

	loads := f.recorder.GetOperationCount(metrics.OpAudioLoad, metrics.StatusSuccess)
	img, err = f.service.Spectrogram(t.Context(), "rec.wav")
	require.NoError(t, err)
	assert.True(t, img.Cached)
	assert.Equal(t, loads, f.recorder.GetOperationCount(metrics.OpAudioLoad, metrics.StatusSuccess),
		"cached spectrogram must not reload the recording")

	_, err = f.service.Spectrogram(t.Context(), "nope.wav")
	assert.True(t, errors.IsNotFound(err))
	_, err = f.service.Audio(t.Context(), "../x")
	assert.True(t, errors.IsValidation(err))
}

func TestServiceSpectrogramRecomputesVanishedSegments(t *testing.T) {
	f := newFixture(t)
	f.addRecording(t, "rec.wav", 1, false)

	first, err := f.service.Spectrogram(t.Context(), "rec.wav")
	require.NoError(t, err)
	require.Len(t, first.Paths, 4)

	require.NoError(t, os.Remove(first.Paths[1]))

	again, err := f.service.Spectrogram(t.Context(), "rec.wav")
	require.NoError(t, err)
	assert.False(t, again.Cached)
	assert.Equal(t, first.Paths, again.Paths)
	assert.FileExists(t, first.Paths[1])
}
