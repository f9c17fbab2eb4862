package features

import (
	"math"

	"github.com/ironsheep/lesion-mcp/internal/detection"
)

// croftonCoefs weights each 2x2 neighbourhood configuration for the
// four-direction Crofton estimate. The index is
// o(r,c) + 2·o(r-1,c) + 4·o(r,c-1) + 8·o(r-1,c-1).
var croftonCoefs = [16]float64{
	0,
	math.Pi / 4 * (1 + 1/math.Sqrt2),
	math.Pi / (4 * math.Sqrt2),
	math.Pi / (2 * math.Sqrt2),
	0,
	math.Pi / 4 * (1 + 1/math.Sqrt2),
	0,
	math.Pi / (4 * math.Sqrt2),
	math.Pi / 4,
	math.Pi / 2,
	math.Pi / (4 * math.Sqrt2),
	math.Pi / (4 * math.Sqrt2),
	math.Pi / 4,
	math.Pi / 2,
	0,
	0,
}

// croftonPerimeter estimates the perimeter of m in pixels from the
// histogram of its 2x2 neighbourhood configurations. Pixels outside m count
// as background.
func croftonPerimeter(m *detection.Mask) float64 {
	var hist [16]int
	for r := 0; r <= m.Height; r++ {
		for c := 0; c <= m.Width; c++ {
			code := 0
			if m.At(c, r) {
				code |= 1
			}
			if m.At(c, r-1) {
				code |= 2
			}
			if m.At(c-1, r) {
				code |= 4
			}
			if m.At(c-1, r-1) {
				code |= 8
			}
			hist[code]++
		}
	}

	total := 0.0
	for code, n := range hist {
		total += croftonCoefs[code] * float64(n)
	}
	return total
}
