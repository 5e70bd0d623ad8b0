package spectrogram

import (
	"bytes"
	"image"
	"image/jpeg"

	"github.com/tphakala/batprep/internal/errors"
)

// Render colorizes a normalized matrix into an opaque RGBA image of
// m.Cols x m.Rows pixels.
func Render(m *Matrix, cmap *Colormap) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, m.Cols, m.Rows))
	for r := range m.Rows {
		row := m.Row(r)
		pix := img.Pix[r*img.Stride : r*img.Stride+4*m.Cols]
		for c, v := range row {
			col := cmap.At(v)
			pix[4*c] = col.R
			pix[4*c+1] = col.G
			pix[4*c+2] = col.B
			pix[4*c+3] = col.A
		}
	}
	return img
}

// SegmentWidths returns the column count of each of n segments of an image
// width pixels wide. All segments are width/n wide except the last, which
// absorbs the remainder. n is reduced to width when the image is narrower
// than n columns so that no segment is empty.
func SegmentWidths(width, n int) []int {
	if width <= 0 {
		return nil
	}
	n = max(min(n, width), 1)

	segWidth := width / n
	widths := make([]int, n)
	for i := range widths {
		widths[i] = segWidth
	}
	widths[n-1] = width - (n-1)*segWidth
	return widths
}

type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

// Split cuts img into column segments laid out by SegmentWidths. The
// segments share pixel storage with img.
func Split(img image.Image, n int) []image.Image {
	b := img.Bounds()
	widths := SegmentWidths(b.Dx(), n)
	if len(widths) == 0 {
		return nil
	}

	si, ok := img.(subImager)
	if !ok {
		rgba := image.NewRGBA(b)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				rgba.Set(x, y, img.At(x, y))
			}
		}
		si = rgba
	}

	segments := make([]image.Image, len(widths))
	x := b.Min.X
	for i, w := range widths {
		segments[i] = si.SubImage(image.Rect(x, b.Min.Y, x+w, b.Max.Y))
		x += w
	}
	return segments
}

// EncodeJPEG encodes img as a baseline JPEG at the given quality.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, errors.New(err).
			Component("spectrogram").
			Category(errors.CategoryImageEncoding).
			Context("operation", "encode_jpeg").
			Context("quality", quality).
			Context("width", img.Bounds().Dx()).
			Context("height", img.Bounds().Dy()).
			Build()
	}
	return buf.Bytes(), nil
}
