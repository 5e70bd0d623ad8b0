package spectrogram

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tphakala/batprep/internal/errors"
)

func staticLoader(samples []float32, sampleRate int) LoadFunc {
	return func(context.Context) ([]float32, int, error) {
		return samples, sampleRate, nil
	}
}

func TestPreRendererProcessesJobs(t *testing.T) {
	// the go-cache janitor lives as long as its cache
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("github.com/patrickmn/go-cache.(*janitor).Run"))

	g := newTestGenerator(t, nil)
	pr := NewPreRenderer(t.Context(), g, 2, 10)
	pr.Start()

	require.NoError(t, pr.Submit(&Job{Reference: "a.wav", Load: staticLoader(noise(4000, 21), testSampleRate)}))
	require.NoError(t, pr.Submit(&Job{Reference: "b.wav", Load: staticLoader(noise(4000, 22), testSampleRate)}))
	require.NoError(t, pr.Submit(&Job{
		Reference: "broken.wav",
		Load: func(context.Context) ([]float32, int, error) {
			return nil, 0, errors.NewStd("decode failed")
		},
	}))

	require.Eventually(t, func() bool {
		s := pr.GetStats()
		return s.Completed+s.Failed == 3
	}, 10*time.Second, 10*time.Millisecond)

	pr.Stop()
	pr.Stop() // idempotent

	stats := pr.GetStats()
	assert.Equal(t, int64(3), stats.Queued)
	assert.Equal(t, int64(2), stats.Completed)
	assert.Equal(t, int64(1), stats.Failed)
	assert.True(t, g.Cached("a.wav"))
	assert.True(t, g.Cached("b.wav"))
}

func TestPreRendererSubmitSkipsCached(t *testing.T) {
	g := newTestGenerator(t, nil)
	_, err := g.ComputeImageData(t.Context(), noise(4000, 23), testSampleRate, "done.wav")
	require.NoError(t, err)

	pr := NewPreRenderer(t.Context(), g, 1, 1)
	require.NoError(t, pr.Submit(&Job{Reference: "done.wav", Load: staticLoader(nil, 0)}))

	select {
	case <-pr.jobs:
		assert.Fail(t, "cached reference must not be queued")
	default:
	}
	assert.Equal(t, int64(1), pr.GetStats().Skipped)
}

func TestPreRendererQueueFull(t *testing.T) {
	g := newTestGenerator(t, nil)
	pr := NewPreRenderer(t.Context(), g, 1, 1) // not started, nothing drains

	require.NoError(t, pr.Submit(&Job{Reference: "one.wav", Load: staticLoader(nil, 0)}))
	err := pr.Submit(&Job{Reference: "two.wav", Load: staticLoader(nil, 0)})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryLimit))
	assert.Equal(t, int64(1), pr.GetStats().Queued)
}

func TestPreRendererSubmitValidation(t *testing.T) {
	g := newTestGenerator(t, nil)
	pr := NewPreRenderer(t.Context(), g, 0, 0)

	assert.Error(t, pr.Submit(nil))
	assert.Error(t, pr.Submit(&Job{Reference: "x.wav"}))
	assert.Error(t, pr.Submit(&Job{Reference: "", Load: staticLoader(nil, 0)}))

	pr.Stop()
	err := pr.Submit(&Job{Reference: "late.wav", Load: staticLoader(nil, 0)})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryWorker))
}

func TestPreRendererSubmitWait(t *testing.T) {
	g := newTestGenerator(t, nil)
	pr := NewPreRenderer(t.Context(), g, 1, 1) // not started, nothing drains

	require.NoError(t, pr.SubmitWait(t.Context(), &Job{Reference: "one.wav", Load: staticLoader(nil, 0)}))

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()
	err := pr.SubmitWait(ctx, &Job{Reference: "two.wav", Load: staticLoader(nil, 0)})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryCancellation))

	done := make(chan error, 1)
	go func() {
		done <- pr.SubmitWait(t.Context(), &Job{Reference: "three.wav", Load: staticLoader(nil, 0)})
	}()
	pr.Stop()
	select {
	case err := <-done:
		require.Error(t, err)
		assert.True(t, errors.IsCategory(err, errors.CategoryWorker))
	case <-time.After(5 * time.Second):
		require.Fail(t, "SubmitWait did not return after Stop")
	}
	assert.Equal(t, int64(1), pr.GetStats().Queued)
}

func TestPreRendererSubmitWaitDrainsLargeBatch(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("github.com/patrickmn/go-cache.(*janitor).Run"))

	g := newTestGenerator(t, nil)
	pr := NewPreRenderer(t.Context(), g, 1, 2)
	pr.Start()
	defer pr.Stop()

	const jobs = 8
	for i := range jobs {
		ref := fmt.Sprintf("batch%d.wav", i)
		require.NoError(t, pr.SubmitWait(t.Context(), &Job{Reference: ref, Load: staticLoader(noise(4000, uint64(30+i)), testSampleRate)}))
	}

	require.Eventually(t, func() bool {
		return pr.GetStats().Completed == jobs
	}, 20*time.Second, 10*time.Millisecond)
	assert.Equal(t, int64(jobs), pr.GetStats().Queued)
}
