package imaging

import (
	"image"

	"github.com/disintegration/imaging"
)

// Luminance weights (ITU-R BT.709).
const (
	lumR = 0.2125
	lumG = 0.7154
	lumB = 0.0721
)

// Luminance is a single-channel intensity plane with values in [0, 1],
// stored row-major.
type Luminance struct {
	Width  int
	Height int
	Pix    []float64
}

// NewLuminance converts img to a luminance plane. Alpha is ignored.
func NewLuminance(img image.Image) *Luminance {
	src := imaging.Clone(img)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	l := &Luminance{Width: w, Height: h, Pix: make([]float64, w*h)}

	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+w*4]
		for x := 0; x < w; x++ {
			p := row[x*4 : x*4+3]
			l.Pix[y*w+x] = (lumR*float64(p[0]) + lumG*float64(p[1]) + lumB*float64(p[2])) / 255
		}
	}
	return l
}

// At returns the intensity at (x, y), or 0 outside the plane.
func (l *Luminance) At(x, y int) float64 {
	if x < 0 || y < 0 || x >= l.Width || y >= l.Height {
		return 0
	}
	return l.Pix[y*l.Width+x]
}
