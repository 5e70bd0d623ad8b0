package prepare

import (
	"context"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tphakala/batprep/internal/annotation"
	"github.com/tphakala/batprep/internal/errors"
	"github.com/tphakala/batprep/internal/logger"
)

// Result is the outcome of preparing one annotation file.
type Result struct {
	Path    string        // annotation file
	Summary *Summary      // nil on failure
	Err     error         // nil on success
	Elapsed time.Duration // wall time spent on this file
}

// Summary describes a prepared recording without its samples or clip, so a
// run over a large directory keeps no audio in memory.
type Summary struct {
	ID         string
	AudioPath  string
	Duration   float64  // true-time seconds
	SampleRate int      // true sample rate
	Paths      []string // segment images
	Height     int
	Width      int
	Cached     bool // spectrogram came from the cache
}

func summarize(rec *Recording) *Summary {
	return &Summary{
		ID:         rec.ID,
		AudioPath:  rec.AudioPath,
		Duration:   rec.Audio.Duration,
		SampleRate: rec.Audio.SampleRate,
		Paths:      rec.Image.Paths,
		Height:     rec.Image.Height,
		Width:      rec.Image.Width,
		Cached:     rec.Image.Cached,
	}
}

// Stats counts the outcomes of a run.
type Stats struct {
	Queued    int64 // annotation files picked up
	Completed int64 // spectrograms generated
	Failed    int64 // files that could not be prepared
	Skipped   int64 // spectrograms found in the cache
}

// Runner prepares many annotation files with a bounded number of workers.
type Runner struct {
	service *Service
	workers int
	logger  logger.Logger

	mu    sync.Mutex
	stats Stats
}

// NewRunner creates a runner. workers falls back to the number of CPUs when
// not positive.
func NewRunner(service *Service, workers int) *Runner {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Runner{
		service: service,
		workers: workers,
		logger:  GetLogger(),
	}
}

// Workers returns the concurrency limit.
func (r *Runner) Workers() int {
	return r.workers
}

// Run prepares every annotation in dir. An empty dir uses the service's
// annotation directory.
func (r *Runner) Run(ctx context.Context, dir string) ([]Result, error) {
	if dir == "" {
		dir = r.service.AnnotationDir()
	}
	paths, err := annotation.List(dir)
	if err != nil {
		return nil, err
	}
	return r.RunPaths(ctx, paths)
}

// RunPaths prepares the given annotation files. Results are returned in the
// order of paths. Failures of single files are reported in their Result; the
// returned error is non-nil only when ctx ends before all files were started.
func (r *Runner) RunPaths(ctx context.Context, paths []string) ([]Result, error) {
	results := make([]Result, len(paths))
	start := time.Now()

	r.logger.Info("Preparing recordings",
		logger.Int("files", len(paths)),
		logger.Int("workers", r.workers))

	g := new(errgroup.Group)
	g.SetLimit(r.workers)

	var cancelled error
	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			cancelled = errors.New(err).
				Component("prepare").
				Category(errors.CategoryCancellation).
				Context("operation", "run").
				Context("remaining", len(paths)-i).
				Build()
			break
		}

		r.addStat(func(s *Stats) { s.Queued++ })
		g.Go(func() error {
			results[i] = r.prepareOne(ctx, path)
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	stats := r.Stats()
	r.logger.Info("Preparation finished",
		logger.Int64("completed", stats.Completed),
		logger.Int64("skipped", stats.Skipped),
		logger.Int64("failed", stats.Failed),
		logger.Duration("elapsed", time.Since(start)))

	if cancelled != nil {
		return results, cancelled
	}
	return results, nil
}

func (r *Runner) prepareOne(ctx context.Context, path string) Result {
	start := time.Now()
	rec, err := r.service.PrepareRecording(ctx, path)
	res := Result{Path: path, Err: err, Elapsed: time.Since(start)}

	switch {
	case err != nil:
		r.addStat(func(s *Stats) { s.Failed++ })
		r.logger.Warn("Failed to prepare recording",
			logger.String("path", path),
			logger.Error(err))
		return res
	case rec.Image.Cached:
		r.addStat(func(s *Stats) { s.Skipped++ })
	default:
		r.addStat(func(s *Stats) { s.Completed++ })
	}
	res.Summary = summarize(rec)
	return res
}

// Stats returns a snapshot of the counters accumulated over all runs.
func (r *Runner) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

func (r *Runner) addStat(update func(*Stats)) {
	r.mu.Lock()
	update(&r.stats)
	r.mu.Unlock()
}
