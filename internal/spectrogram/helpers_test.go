package spectrogram

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tphakala/batprep/internal/securefs"
)

// testParams returns small parameters for an 8 kHz signal: nfft 80, hop 20,
// kept bins 6..35 (30 rows).
func testParams() Params {
	p := DefaultParams()
	p.FFTWinLength = 0.01
	p.MinFreq = 500
	p.MaxFreq = 3500
	p.Segments = 4
	return p
}

const testSampleRate = 8000

func sine(freq float64, sampleRate, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
	}
	return out
}

func noise(n int, seed uint64) []float32 {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(r.Float64()*2 - 1)
	}
	return out
}

func newTestFS(t *testing.T) *securefs.SecureFS {
	t.Helper()
	sfs, err := securefs.New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = sfs.Close() })
	return sfs
}
