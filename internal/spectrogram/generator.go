package spectrogram

import (
	"context"
	"path/filepath"
	"slices"
	"time"

	"github.com/gofrs/flock"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/tphakala/batprep/internal/errors"
	"github.com/tphakala/batprep/internal/logger"
	"github.com/tphakala/batprep/internal/observability/metrics"
	"github.com/tphakala/batprep/internal/securefs"
)

const (
	// defaultMemoTTL bounds how long a manifest stays in the in-memory memo.
	defaultMemoTTL = 10 * time.Minute

	// lockRetryDelay is the polling interval while another process holds a reference lock.
	lockRetryDelay = 50 * time.Millisecond
)

// ImageResult describes the segments of a computed or cached spectrogram.
type ImageResult struct {
	Reference string   // cache key
	Paths     []string // segment files, left to right
	Height    int      // pixels, frequency axis
	Width     int      // pixels, time axis
	Cached    bool     // true when no computation was needed
}

// segmentRecorder is implemented by recorders that also track stored segments.
type segmentRecorder interface {
	RecordSegmentWritten(sizeBytes int)
}

// Generator computes spectrogram segments and caches them on disk.
// It is safe for concurrent use; concurrent requests for the same reference
// share one computation, and a file lock per reference keeps separate
// processes from writing the same segments.
type Generator struct {
	params   Params
	cmap     *Colormap
	cache    *Cache
	memo     *gocache.Cache
	group    singleflight.Group
	recorder metrics.Recorder
	logger   logger.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(g *Generator) {
		if r != nil {
			g.recorder = r
		}
	}
}

// WithMemoTTL sets how long manifests stay memoized in memory, 0 keeps the default.
func WithMemoTTL(ttl time.Duration) Option {
	return func(g *Generator) {
		if ttl > 0 {
			g.memo = gocache.New(ttl, 2*ttl)
		}
	}
}

// NewGenerator creates a generator writing into the sandbox sfs.
func NewGenerator(params Params, sfs *securefs.SecureFS, log logger.Logger, opts ...Option) (*Generator, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	cmap, err := ColormapByName(params.Colormap)
	if err != nil {
		return nil, err
	}
	if sfs == nil {
		return nil, errors.Newf("spectrogram generator requires a data directory").
			Component("spectrogram").
			Category(errors.CategoryConfiguration).
			Context("operation", "new_generator").
			Build()
	}
	if log == nil {
		log = GetLogger()
	}

	g := &Generator{
		params:   params,
		cmap:     cmap,
		cache:    NewCache(sfs, params.Segments),
		memo:     gocache.New(defaultMemoTTL, 2*defaultMemoTTL),
		recorder: metrics.NewNoOpRecorder(),
		logger:   log,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Params returns the generator's parameters.
func (g *Generator) Params() Params {
	return g.params
}

// Cache returns the on-disk cache.
func (g *Generator) Cache() *Cache {
	return g.cache
}

// ComputeImageData returns the spectrogram segments for reference, computing
// them from samples recorded at sampleRate (true rate) on a cache miss.
func (g *Generator) ComputeImageData(ctx context.Context, samples []float32, sampleRate int, reference string) (*ImageResult, error) {
	ref, err := ReferenceName(reference)
	if err != nil {
		return nil, err
	}

	res, err := g.lookup(ref)
	if err != nil {
		return nil, err
	}
	if res != nil {
		return res, nil
	}
	g.recorder.RecordOperation(metrics.OpCacheLookup, metrics.StatusMiss)

	v, err, shared := g.group.Do(ref, func() (any, error) {
		return g.computeLocked(ctx, samples, sampleRate, ref)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		g.logger.Debug("Shared in-flight spectrogram computation", logger.String("reference", ref))
	}

	out := *v.(*ImageResult)
	out.Paths = slices.Clone(out.Paths)
	return &out, nil
}

// Lookup returns the cached segments of reference without ever computing
// them. ok is false on a miss.
func (g *Generator) Lookup(reference string) (res *ImageResult, ok bool, err error) {
	ref, err := ReferenceName(reference)
	if err != nil {
		return nil, false, err
	}
	res, err = g.lookup(ref)
	if err != nil || res == nil {
		return nil, false, err
	}
	return res, true, nil
}

// Cached reports whether reference has a complete cache entry.
func (g *Generator) Cached(reference string) bool {
	_, ok, err := g.Lookup(reference)
	return err == nil && ok
}

// Invalidate drops a reference from the memo and from disk.
func (g *Generator) Invalidate(reference string) error {
	ref, err := ReferenceName(reference)
	if err != nil {
		return err
	}
	g.memo.Delete(ref)
	return g.cache.Invalidate(ref)
}

// lookup consults the memo, then the disk cache. It returns nil on a miss.
func (g *Generator) lookup(ref string) (*ImageResult, error) {
	if v, ok := g.memo.Get(ref); ok {
		m := v.(Manifest)
		exists, err := g.cache.SegmentsExist(ref, m.Segments)
		if err != nil {
			return nil, err
		}
		if exists {
			g.recorder.RecordOperation(metrics.OpCacheLookup, metrics.StatusMemo)
			return g.result(ref, m, true), nil
		}
		g.memo.Delete(ref)
	}

	m, ok, err := g.cache.Lookup(ref)
	if err != nil {
		g.recorder.RecordError(metrics.OpCacheLookup, string(errors.CategoryCache))
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	g.memo.SetDefault(ref, m)
	g.recorder.RecordOperation(metrics.OpCacheLookup, metrics.StatusHit)
	return g.result(ref, m, true), nil
}

// computeLocked computes and stores the segments while holding the
// reference's file lock.
func (g *Generator) computeLocked(ctx context.Context, samples []float32, sampleRate int, ref string) (*ImageResult, error) {
	lockPath := filepath.Join(g.cache.Dir(), LockName(ref))
	lock := flock.New(lockPath)

	waitStart := time.Now()
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil || !locked {
		if err == nil {
			err = errors.NewStd("lock not acquired")
		}
		category := errors.CategorySystem
		if ctx.Err() != nil {
			category = errors.CategoryCancellation
		}
		return nil, errors.New(err).
			Component("spectrogram").
			Category(category).
			Timing("acquire_lock", time.Since(waitStart)).
			Context("reference", ref).
			Context("lock_path", lockPath).
			Build()
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			g.logger.Warn("Failed to release spectrogram lock",
				logger.String("lock_path", lockPath),
				logger.Error(err))
		}
	}()

	// another process may have finished the work while we waited
	if res, err := g.lookup(ref); err != nil || res != nil {
		return res, err
	}

	start := time.Now()
	res, err := g.compute(ctx, samples, sampleRate, ref)
	if err != nil {
		g.recorder.RecordOperation(metrics.OpSpectrogramGenerate, metrics.StatusError)
		var ee *errors.EnhancedError
		if errors.As(err, &ee) {
			g.recorder.RecordError(metrics.OpSpectrogramGenerate, ee.GetCategory())
		}
		g.logger.Error("Spectrogram generation failed",
			logger.String("reference", ref),
			logger.Error(err),
			logger.Duration("elapsed", time.Since(start)))
		return nil, err
	}

	g.recorder.RecordOperation(metrics.OpSpectrogramGenerate, metrics.StatusSuccess)
	g.recorder.RecordDuration(metrics.OpSpectrogramGenerate, time.Since(start).Seconds())
	g.logger.Info("Spectrogram generated",
		logger.String("reference", ref),
		logger.Int("height", res.Height),
		logger.Int("width", res.Width),
		logger.Int("segments", len(res.Paths)),
		logger.Duration("elapsed", time.Since(start)))
	return res, nil
}

func (g *Generator) compute(ctx context.Context, samples []float32, sampleRate int, ref string) (*ImageResult, error) {
	stage := time.Now()
	spec, err := GenerateContext(ctx, samples, sampleRate, g.params)
	if err != nil {
		return nil, err
	}
	g.recorder.RecordDuration(metrics.OpSTFT, time.Since(stage).Seconds())

	stage = time.Now()
	img := Render(Normalize(spec), g.cmap)
	g.recorder.RecordDuration(metrics.OpRender, time.Since(stage).Seconds())

	stage = time.Now()
	segments := Split(img, g.params.Segments)
	encoded := make([][]byte, len(segments))
	for i, seg := range segments {
		if err := ctx.Err(); err != nil {
			return nil, errors.New(err).
				Component("spectrogram").
				Category(errors.CategoryCancellation).
				Timing("encode_segments", time.Since(stage)).
				Context("reference", ref).
				Build()
		}
		data, err := EncodeJPEG(seg, g.params.JPEGQuality)
		if err != nil {
			return nil, err
		}
		encoded[i] = data
	}

	m := Manifest{Height: img.Rect.Dy(), Width: img.Rect.Dx(), Segments: len(segments)}
	if err := g.cache.Store(ref, m, encoded); err != nil {
		return nil, err
	}
	g.recorder.RecordDuration(metrics.OpSegmentEncode, time.Since(stage).Seconds())
	if sr, ok := g.recorder.(segmentRecorder); ok {
		for _, data := range encoded {
			sr.RecordSegmentWritten(len(data))
		}
	}

	g.memo.SetDefault(ref, m)
	return g.result(ref, m, false), nil
}

func (g *Generator) result(ref string, m Manifest, cached bool) *ImageResult {
	return &ImageResult{
		Reference: ref,
		Paths:     g.cache.SegmentPaths(ref, m.Segments),
		Height:    m.Height,
		Width:     m.Width,
		Cached:    cached,
	}
}
