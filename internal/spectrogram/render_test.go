package spectrogram

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/batprep/internal/errors"
)

func TestNormalize(t *testing.T) {
	m := &Matrix{Rows: 2, Cols: 2, Data: []float64{2, 4, 6, 10}}
	n := Normalize(m)

	assert.Equal(t, []float64{0, 0.25, 0.5, 1}, n.Data)
	assert.Equal(t, []float64{2, 4, 6, 10}, m.Data, "input must not be modified")
}

func TestNormalizeFlat(t *testing.T) {
	n := Normalize(&Matrix{Rows: 1, Cols: 3, Data: []float64{7, 7, 7}})
	for _, v := range n.Data {
		assert.False(t, math.IsNaN(v))
		assert.Zero(t, v)
	}

	empty := Normalize(NewMatrix(0, 0))
	assert.Empty(t, empty.Data)
}

func TestColormapIndexing(t *testing.T) {
	c := Gray()

	tests := []struct {
		x    float64
		want uint8
	}{
		{0, 0},
		{-0.5, 0},
		{math.NaN(), 0},
		{0.5, 128},
		{0.999, 255},
		{1, 255},
		{3, 255},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, c.At(tt.x).R, "x=%v", tt.x)
	}
}

func TestInfernoLUT(t *testing.T) {
	c := Inferno()

	assert.Equal(t, color.RGBA{R: 0, G: 0, B: 0, A: 255}, c[0])
	assert.Equal(t, color.RGBA{R: 186, G: 54, B: 81, A: 255}, c[128])
	assert.Equal(t, color.RGBA{R: 249, G: 255, B: 167, A: 255}, c[255])
	assert.Same(t, c, Inferno(), "lookup table is built once")
}

func TestColormapByName(t *testing.T) {
	c, err := ColormapByName(ColormapGray)
	require.NoError(t, err)
	assert.Same(t, Gray(), c)

	_, err = ColormapByName("jet")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestRender(t *testing.T) {
	m := &Matrix{Rows: 2, Cols: 3, Data: []float64{0, 0.5, 1, 1, 0.5, 0}}
	img := Render(m, Gray())

	require.Equal(t, image.Rect(0, 0, 3, 2), img.Bounds())
	assert.Equal(t, color.RGBA{A: 255}, img.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, img.RGBAAt(2, 0))
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, img.RGBAAt(0, 1))
	assert.Equal(t, uint8(128), img.RGBAAt(1, 1).R)
}

func TestSegmentWidths(t *testing.T) {
	tests := []struct {
		name  string
		width int
		n     int
		want  []int
	}{
		{"remainder in last", 100, 16, []int{6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 10}},
		{"exact", 64, 4, []int{16, 16, 16, 16}},
		{"small remainder", 33, 4, []int{8, 8, 8, 9}},
		{"one column each", 16, 16, []int{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1}},
		{"narrower than n", 3, 16, []int{1, 1, 1}},
		{"single segment", 7, 1, []int{7}},
		{"zero n", 5, 0, []int{5}},
		{"empty image", 0, 16, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SegmentWidths(tt.width, tt.n)
			assert.Equal(t, tt.want, got)

			sum := 0
			for _, w := range got {
				assert.Positive(t, w)
				sum += w
			}
			assert.Equal(t, max(tt.width, 0), sum)
		})
	}
}

func TestSplitTilesLosslessly(t *testing.T) {
	m, err := Generate(noise(testSampleRate, 7), testSampleRate, testParams())
	require.NoError(t, err)
	img := Render(Normalize(m), Inferno())

	segments := Split(img, 16)
	require.Len(t, segments, 16)

	x := 0
	for i, seg := range segments {
		b := seg.Bounds()
		assert.Equal(t, x, b.Min.X, "segment %d starts where the previous ended", i)
		assert.Equal(t, img.Bounds().Dy(), b.Dy())
		for px := b.Min.X; px < b.Max.X; px++ {
			for py := b.Min.Y; py < b.Max.Y; py++ {
				require.Equal(t, img.At(px, py), seg.At(px, py))
			}
		}
		x = b.Max.X
	}
	assert.Equal(t, img.Bounds().Dx(), x)
}

func TestSplitNonSubImager(t *testing.T) {
	base := image.NewGray(image.Rect(0, 0, 10, 2))
	base.SetGray(9, 1, color.Gray{Y: 200})

	segments := Split(onlyImage{base}, 3)
	require.Len(t, segments, 3)
	assert.Equal(t, 4, segments[2].Bounds().Dx())
	r, _, _, _ := segments[2].At(9, 1).RGBA()
	assert.Equal(t, uint32(200)<<8|200, r)
}

// onlyImage hides the SubImage method of the wrapped image.
type onlyImage struct{ image.Image }

func TestEncodeJPEG(t *testing.T) {
	img := Render(&Matrix{Rows: 8, Cols: 20, Data: make([]float64, 160)}, Inferno())
	seg := Split(img, 3)[2]

	data, err := EncodeJPEG(seg, 90)
	require.NoError(t, err)

	decoded, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 8, decoded.Bounds().Dx(), "last segment absorbs the remainder")
	assert.Equal(t, 8, decoded.Bounds().Dy())
}
