package spectrogram

import (
	"image/color"
	"math"
	"sync"

	"github.com/tphakala/batprep/internal/errors"
)

// Colormap is a 256-entry lookup table mapping [0, 1] to RGB.
type Colormap [256]color.RGBA

// At maps x to a color. The index is min(int(x*256), 255); values below zero
// and NaN map to the first entry.
func (c *Colormap) At(x float64) color.RGBA {
	if !(x > 0) {
		return c[0]
	}
	return c[min(int(x*256), 255)]
}

// inferno polynomial fit coefficients, c0..c6 per channel.
var infernoCoeffs = [3][7]float64{
	{0.0002189403691192265, 0.1065134194856116, 11.60249308247187, -41.70399613139459, 77.162935699427, -71.31942824499214, 25.13112622477341},
	{0.001651004631001012, 0.5639564367884091, -3.972853965665698, 17.43639888205313, -33.40235894210092, 32.62606426397723, -12.24266895238567},
	{-0.01948089843709184, 3.932712388889277, -15.9423941062914, 44.35414519872813, -81.80730925738993, 73.20951985803202, -23.07032500287172},
}

var (
	infernoLUT = sync.OnceValue(func() *Colormap {
		var c Colormap
		for i := range c {
			t := float64(i) / 255
			c[i] = color.RGBA{
				R: channelByte(evalPoly(infernoCoeffs[0], t)),
				G: channelByte(evalPoly(infernoCoeffs[1], t)),
				B: channelByte(evalPoly(infernoCoeffs[2], t)),
				A: 0xff,
			}
		}
		return &c
	})

	grayLUT = sync.OnceValue(func() *Colormap {
		var c Colormap
		for i := range c {
			v := uint8(i) //nolint:gosec // i < 256
			c[i] = color.RGBA{R: v, G: v, B: v, A: 0xff}
		}
		return &c
	})
)

// Inferno returns the perceptually uniform inferno colormap.
func Inferno() *Colormap { return infernoLUT() }

// Gray returns a linear black to white colormap.
func Gray() *Colormap { return grayLUT() }

// ColormapByName returns the colormap registered under name.
func ColormapByName(name string) (*Colormap, error) {
	switch name {
	case ColormapInferno:
		return Inferno(), nil
	case ColormapGray:
		return Gray(), nil
	default:
		return nil, errors.Newf("unknown colormap %q", name).
			Component("spectrogram").
			Category(errors.CategoryValidation).
			Context("operation", "colormap_by_name").
			Build()
	}
}

// evalPoly evaluates c0 + t*(c1 + t*(... + t*c6)).
func evalPoly(c [7]float64, t float64) float64 {
	v := c[6]
	for i := 5; i >= 0; i-- {
		v = c[i] + t*v
	}
	return v
}

// channelByte clamps v to [0, 1] and truncates v*255 to a byte.
func channelByte(v float64) uint8 {
	v = math.Min(math.Max(v, 0), 1)
	return uint8(v * 255)
}
