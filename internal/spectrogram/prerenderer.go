package spectrogram

import (
	"context"
	"sync"
	"time"

	"github.com/tphakala/batprep/internal/errors"
	"github.com/tphakala/batprep/internal/logger"
)

const (
	// Worker pool size, conservative for background processing
	defaultWorkers = 2

	// Job queue size
	defaultQueueSize = 100

	// Timeout for individual spectrogram generation
	generationTimeout = 5 * time.Minute

	// Timeout for graceful shutdown
	shutdownTimeout = 10 * time.Second
)

// LoadFunc loads the samples of a recording and their true sample rate.
type LoadFunc func(ctx context.Context) (samples []float32, sampleRate int, err error)

// Job is a single background spectrogram task. Samples are loaded lazily by
// the worker so queued jobs hold no audio in memory.
type Job struct {
	Reference string    // audio path or name, used as the cache key
	Load      LoadFunc  // loads the recording when the job runs
	Submitted time.Time // submission time, for queue latency logging
}

// Stats tracks pre-rendering statistics.
type Stats struct {
	Queued    int64 // Number of jobs submitted
	Completed int64 // Number of spectrograms successfully generated
	Failed    int64 // Number of failed generations
	Skipped   int64 // Number skipped (already cached)
}

// PreRenderer warms the segment cache in the background with a small worker
// pool, so the labeling GUI finds spectrograms ready when it asks for them.
type PreRenderer struct {
	generator *Generator
	logger    logger.Logger

	// Lifecycle management
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once

	// Worker pool
	jobs      chan *Job
	workers   int
	queueSize int

	// Statistics
	mu    sync.RWMutex
	stats Stats
}

// NewPreRenderer creates a pre-renderer. workers and queueSize fall back to
// defaults when not positive. The parentCtx bounds the workers' lifetime.
func NewPreRenderer(parentCtx context.Context, generator *Generator, workers, queueSize int) *PreRenderer {
	if workers <= 0 {
		workers = defaultWorkers
	}
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	ctx, cancel := context.WithCancel(parentCtx)

	return &PreRenderer{
		generator: generator,
		logger:    GetPreRendererLogger(),
		ctx:       ctx,
		cancel:    cancel,
		jobs:      make(chan *Job, queueSize),
		workers:   workers,
		queueSize: queueSize,
	}
}

// Start launches the worker pool.
func (pr *PreRenderer) Start() {
	pr.logger.Info("Starting spectrogram pre-renderer",
		logger.Int("workers", pr.workers),
		logger.Int("queue_size", pr.queueSize))

	for i := range pr.workers {
		pr.wg.Add(1)
		go pr.worker(i)
	}
}

// Stop cancels in-flight work and waits for workers to exit, up to
// shutdownTimeout. It is safe to call more than once.
func (pr *PreRenderer) Stop() {
	pr.stopOnce.Do(func() {
		pr.logger.Info("Stopping spectrogram pre-renderer")

		pr.cancel()

		done := make(chan struct{})
		go func() {
			pr.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			pr.logger.Info("Spectrogram pre-renderer stopped gracefully")
		case <-time.After(shutdownTimeout):
			pr.logger.Warn("Spectrogram pre-renderer shutdown timeout",
				logger.Duration("timeout", shutdownTimeout))
		}

		stats := pr.GetStats()
		pr.logger.Info("Spectrogram pre-renderer final stats",
			logger.Int64("queued", stats.Queued),
			logger.Int64("completed", stats.Completed),
			logger.Int64("failed", stats.Failed),
			logger.Int64("skipped", stats.Skipped))
	})
}

// Submit queues a job without blocking. Already cached references are
// counted as skipped and not queued; a full queue returns an error.
func (pr *PreRenderer) Submit(job *Job) error {
	queue, err := pr.admit(job)
	if err != nil || !queue {
		return err
	}

	select {
	case pr.jobs <- job:
		pr.addStat(func(s *Stats) { s.Queued++ })
		return nil
	default:
		pr.logger.Warn("Pre-render queue full, dropping job",
			logger.String("reference", job.Reference),
			logger.Int("queue_size", pr.queueSize))
		return errors.Newf("pre-render queue full (size: %d)", pr.queueSize).
			Component("spectrogram").
			Category(errors.CategoryLimit).
			Context("operation", "submit_job").
			Context("reference", job.Reference).
			Context("queue_size", pr.queueSize).
			Build()
	}
}

// SubmitWait queues a job like Submit but waits for queue space instead of
// dropping the job. It returns when ctx ends or the pre-renderer stops.
func (pr *PreRenderer) SubmitWait(ctx context.Context, job *Job) error {
	queue, err := pr.admit(job)
	if err != nil || !queue {
		return err
	}

	select {
	case pr.jobs <- job:
		pr.addStat(func(s *Stats) { s.Queued++ })
		return nil
	case <-ctx.Done():
		return errors.New(ctx.Err()).
			Component("spectrogram").
			Category(errors.CategoryCancellation).
			Context("operation", "submit_job").
			Context("reference", job.Reference).
			Build()
	case <-pr.ctx.Done():
		return pr.stoppedError(job)
	}
}

// admit validates job and reports whether it still needs queueing.
func (pr *PreRenderer) admit(job *Job) (bool, error) {
	if job == nil || job.Load == nil {
		return false, errors.Newf("pre-render job requires a loader").
			Component("spectrogram").
			Category(errors.CategoryValidation).
			Context("operation", "submit_job").
			Build()
	}
	if _, err := ReferenceName(job.Reference); err != nil {
		return false, err
	}
	if pr.ctx.Err() != nil {
		return false, pr.stoppedError(job)
	}

	// A racing on-demand request may still cache the reference after this
	// check; processJob checks again.
	if pr.generator.Cached(job.Reference) {
		pr.addStat(func(s *Stats) { s.Skipped++ })
		pr.logger.Debug("Spectrogram already cached, skipping queue",
			logger.String("reference", job.Reference))
		return false, nil
	}

	if job.Submitted.IsZero() {
		job.Submitted = time.Now()
	}
	return true, nil
}

func (pr *PreRenderer) stoppedError(job *Job) error {
	return errors.Newf("pre-renderer is stopped").
		Component("spectrogram").
		Category(errors.CategoryWorker).
		Context("operation", "submit_job").
		Context("reference", job.Reference).
		Build()
}

// GetStats returns a snapshot of the statistics.
func (pr *PreRenderer) GetStats() Stats {
	pr.mu.RLock()
	defer pr.mu.RUnlock()
	return pr.stats
}

func (pr *PreRenderer) addStat(update func(*Stats)) {
	pr.mu.Lock()
	update(&pr.stats)
	pr.mu.Unlock()
}

// worker processes jobs until the context is cancelled.
func (pr *PreRenderer) worker(id int) {
	defer pr.wg.Done()

	pr.logger.Debug("Pre-render worker started", logger.Int("worker_id", id))

	for {
		select {
		case <-pr.ctx.Done():
			pr.logger.Debug("Pre-render worker stopping", logger.Int("worker_id", id))
			return
		case job := <-pr.jobs:
			pr.processJob(job, id)
		}
	}
}

// processJob loads the recording and computes its spectrogram.
func (pr *PreRenderer) processJob(job *Job, workerID int) {
	start := time.Now()
	log := pr.logger.With(
		logger.Int("worker_id", workerID),
		logger.String("reference", job.Reference))

	log.Debug("Processing pre-render job",
		logger.Duration("queue_latency", start.Sub(job.Submitted)))

	if pr.generator.Cached(job.Reference) {
		log.Debug("Spectrogram already cached, skipping")
		pr.addStat(func(s *Stats) { s.Skipped++ })
		return
	}

	ctx, cancel := context.WithTimeout(pr.ctx, generationTimeout)
	defer cancel()

	samples, sampleRate, err := job.Load(ctx)
	if err == nil {
		_, err = pr.generator.ComputeImageData(ctx, samples, sampleRate, job.Reference)
	}
	if err != nil {
		log.Error("Failed to pre-render spectrogram",
			logger.Error(err),
			logger.Duration("elapsed", time.Since(start)))
		pr.addStat(func(s *Stats) { s.Failed++ })
		return
	}

	log.Debug("Spectrogram pre-rendered successfully",
		logger.Duration("elapsed", time.Since(start)))
	pr.addStat(func(s *Stats) { s.Completed++ })
}
