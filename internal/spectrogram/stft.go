package spectrogram

import (
	"context"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"

	"github.com/tphakala/batprep/internal/errors"
)

// Matrix is a row-major spectrogram. Row 0 is the highest frequency kept and
// column 0 the first STFT frame.
type Matrix struct {
	Rows int
	Cols int
	Data []float64
}

// NewMatrix allocates a zeroed rows x cols matrix.
func NewMatrix(rows, cols int) *Matrix {
	return &Matrix{Rows: rows, Cols: cols, Data: make([]float64, rows*cols)}
}

// At returns the value at row r, column c.
func (m *Matrix) At(r, c int) float64 {
	return m.Data[r*m.Cols+c]
}

// Set stores v at row r, column c.
func (m *Matrix) Set(r, c int, v float64) {
	m.Data[r*m.Cols+c] = v
}

// Row returns row r as a slice sharing the matrix storage.
func (m *Matrix) Row(r int) []float64 {
	return m.Data[r*m.Cols : (r+1)*m.Cols]
}

// Generate computes the spectrogram of samples recorded at sampleRate (true,
// not time-expanded, rate).
func Generate(samples []float32, sampleRate int, p Params) (*Matrix, error) {
	return GenerateContext(context.Background(), samples, sampleRate, p)
}

// GenerateContext is Generate with cancellation checked between frames.
//
// The STFT uses a periodic Hann window of nfft = FFTWinLength*sampleRate
// samples without centre padding. The DC bin is dropped, rows are flipped so
// high frequencies come first and the result is cropped to
// [MinFreq, MaxFreq]. When the STFT has fewer bins than MaxFreq needs, the
// missing top rows stay zero.
func GenerateContext(ctx context.Context, samples []float32, sampleRate int, p Params) (*Matrix, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if sampleRate <= 0 {
		return nil, stftError(errors.Newf("sample rate must be positive, got %d", sampleRate), sampleRate, 0)
	}

	nfft := p.windowSize(sampleRate)
	if nfft < 2 {
		return nil, stftError(errors.Newf("fft window of %v s is shorter than two samples at %d Hz",
			p.FFTWinLength, sampleRate), sampleRate, nfft)
	}
	if len(samples) < nfft {
		return nil, stftError(errors.Newf("audio has %d samples, shorter than one %d sample window",
			len(samples), nfft), sampleRate, nfft)
	}

	hop := p.hopSize(nfft)
	frames := 1 + (len(samples)-nfft)/hop
	bins := nfft / 2 // DC dropped

	minBin := p.freqBin(p.MinFreq)
	maxBin := p.freqBin(p.MaxFreq)
	if maxBin <= minBin {
		return nil, stftError(errors.Newf("frequency range %d-%d Hz collapses to no rows with a %v s window",
			p.MinFreq, p.MaxFreq, p.FFTWinLength), sampleRate, nfft)
	}

	// output row o holds STFT bin maxBin-o
	out := NewMatrix(maxBin-minBin, frames)
	win := periodicHann(nfft)
	buf := make([]float64, nfft)

	for f := range frames {
		if f%64 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, errors.New(err).
					Component("spectrogram").
					Category(errors.CategoryCancellation).
					Context("operation", "stft").
					Context("frame", f).
					Build()
			}
		}

		start := f * hop
		for i := range nfft {
			buf[i] = float64(samples[start+i]) * win[i]
		}
		spectrum := fft.FFTReal(buf)

		for o := range out.Rows {
			k := maxBin - o
			if k < 1 || k > bins {
				continue
			}
			out.Set(o, f, cmplx.Abs(spectrum[k]))
		}
	}

	if p.SpecScale == ScaleLog {
		logScale(out, sampleRate, nfft)
	}
	if p.DenoiseSpecAvg {
		denoise(out)
	}
	if p.MaxScaleSpec {
		maxScale(out)
	}

	return out, nil
}

// periodicHann returns an n-point periodic Hann window.
func periodicHann(n int) []float64 {
	return window.Hann(n + 1)[:n]
}

// logScale applies log1p(2/sr / sum(hann^2) * |X|) in place, with a
// symmetric Hann window in the normalization term.
func logScale(m *Matrix, sampleRate, nfft int) {
	var energy float64
	for _, w := range window.Hann(nfft) {
		energy += w * w
	}
	factor := 2.0 / float64(sampleRate) / energy

	for i, v := range m.Data {
		m.Data[i] = math.Log1p(factor * v)
	}
}

// denoise subtracts each row's mean and clips negative values to zero.
func denoise(m *Matrix) {
	if m.Cols == 0 {
		return
	}
	for r := range m.Rows {
		row := m.Row(r)
		var sum float64
		for _, v := range row {
			sum += v
		}
		mean := sum / float64(len(row))
		for i, v := range row {
			row[i] = max(v-mean, 0)
		}
	}
}

// maxScale divides every value by max+1e-5.
func maxScale(m *Matrix) {
	peak := math.Inf(-1)
	for _, v := range m.Data {
		peak = max(peak, v)
	}
	denom := peak + 1e-5
	for i, v := range m.Data {
		m.Data[i] = v / denom
	}
}

func stftError(b *errors.ErrorBuilder, sampleRate, nfft int) error {
	return b.Component("spectrogram").
		Category(errors.CategoryValidation).
		Context("operation", "stft").
		Context("sample_rate", sampleRate).
		Context("nfft", nfft).
		Build()
}
