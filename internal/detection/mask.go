package detection

import (
	"image"
	"image/color"
)

// BinarizeThreshold is the probability above which a mask pixel is foreground.
const BinarizeThreshold = 0.5

// ProbMap is a dense per-pixel probability field stored row-major.
type ProbMap struct {
	Width  int
	Height int
	Values []float32
}

// NewProbMap allocates a zeroed probability field.
func NewProbMap(width, height int) *ProbMap {
	return &ProbMap{
		Width:  width,
		Height: height,
		Values: make([]float32, width*height),
	}
}

// At returns the probability at (x, y), or 0 outside the field.
func (p *ProbMap) At(x, y int) float32 {
	if x < 0 || y < 0 || x >= p.Width || y >= p.Height {
		return 0
	}
	return p.Values[y*p.Width+x]
}

// Set stores a probability at (x, y). Out of range writes are ignored.
func (p *ProbMap) Set(x, y int, v float32) {
	if x < 0 || y < 0 || x >= p.Width || y >= p.Height {
		return
	}
	p.Values[y*p.Width+x] = v
}

// ProbMapFromImage reads the gray levels of img as probabilities in [0, 1].
func ProbMapFromImage(img image.Image) *ProbMap {
	b := img.Bounds()
	pm := NewProbMap(b.Dx(), b.Dy())
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			g := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			pm.Values[y*pm.Width+x] = float32(g.Y) / 255
		}
	}
	return pm
}

// Binarize returns a mask with every value strictly above threshold set.
func (p *ProbMap) Binarize(threshold float32) *Mask {
	m := NewMask(p.Width, p.Height)
	for i, v := range p.Values {
		m.Pix[i] = v > threshold
	}
	return m
}

// Mask is a binary image stored row-major.
type Mask struct {
	Width  int
	Height int
	Pix    []bool
}

// NewMask allocates an empty mask.
func NewMask(width, height int) *Mask {
	return &Mask{
		Width:  width,
		Height: height,
		Pix:    make([]bool, width*height),
	}
}

// At reports whether (x, y) is set. Pixels outside the mask are never set.
func (m *Mask) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return false
	}
	return m.Pix[y*m.Width+x]
}

// Set updates the pixel at (x, y). Out of range writes are ignored.
func (m *Mask) Set(x, y int, v bool) {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return
	}
	m.Pix[y*m.Width+x] = v
}

// Count returns the number of set pixels.
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Pix {
		if v {
			n++
		}
	}
	return n
}

// Bounds returns the tight inclusive box around all set pixels.
// ok is false for an empty mask.
func (m *Mask) Bounds() (box Box, ok bool) {
	minX, minY := m.Width, m.Height
	maxX, maxY := -1, -1
	for y := 0; y < m.Height; y++ {
		row := m.Pix[y*m.Width : (y+1)*m.Width]
		for x, v := range row {
			if !v {
				continue
			}
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			maxY = y
		}
	}
	if maxX < 0 {
		return Box{}, false
	}
	return Box{X1: minX, Y1: minY, X2: maxX, Y2: maxY}, true
}

// TightBox returns Bounds, or the zero box for an empty mask.
func (m *Mask) TightBox() Box {
	b, _ := m.Bounds()
	return b
}

// Clone returns a deep copy of the mask.
func (m *Mask) Clone() *Mask {
	c := &Mask{Width: m.Width, Height: m.Height, Pix: make([]bool, len(m.Pix))}
	copy(c.Pix, m.Pix)
	return c
}

// Or sets every pixel that is set in other. Both masks must have the same size.
func (m *Mask) Or(other *Mask) {
	for i, v := range other.Pix {
		if v {
			m.Pix[i] = true
		}
	}
}

// IoU returns |A∩B| / |A∪B|. Two empty masks have an IoU of 0.
func (m *Mask) IoU(other *Mask) float64 {
	inter, union := 0, 0
	for i, a := range m.Pix {
		b := other.Pix[i]
		if a && b {
			inter++
		}
		if a || b {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// Crop returns the sub-mask covered by box (inclusive), clipped to the mask.
func (m *Mask) Crop(box Box) *Mask {
	x1, y1 := max(box.X1, 0), max(box.Y1, 0)
	x2, y2 := min(box.X2, m.Width-1), min(box.Y2, m.Height-1)
	if x2 < x1 || y2 < y1 {
		return NewMask(0, 0)
	}
	out := NewMask(x2-x1+1, y2-y1+1)
	for y := y1; y <= y2; y++ {
		copy(out.Pix[(y-y1)*out.Width:(y-y1+1)*out.Width], m.Pix[y*m.Width+x1:y*m.Width+x2+1])
	}
	return out
}
