package features

import (
	"github.com/ironsheep/lesion-mcp/internal/detection"
	"github.com/ironsheep/lesion-mcp/internal/imaging"
)

const (
	glcmLevels     = 16
	glcmBackground = glcmLevels
	minTexturePix  = 4
)

// glcmOffsets are (row, col) steps for 0°, 45°, 90° and 135° at distance 1.
var glcmOffsets = [][2]int{{0, 1}, {1, 1}, {1, 0}, {1, -1}}

// homogeneity computes the mean GLCM homogeneity of the patch of lum under
// local, whose top-left corner sits at box.X1, box.Y1. Pixels outside local
// are excluded from the co-occurrence
// counts. ok is false when the patch is too small or no foreground pair
// exists at any angle.
func homogeneity(lum *imaging.Luminance, box detection.Box, local *detection.Mask) (float64, bool) {
	w, h := local.Width, local.Height
	if w*h < minTexturePix {
		return 0, false
	}

	lo, hi := lum.At(box.X1, box.Y1), lum.At(box.X1, box.Y1)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := lum.At(box.X1+x, box.Y1+y)
			lo = min(lo, v)
			hi = max(hi, v)
		}
	}

	quant := make([]int, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !local.At(x, y) {
				quant[y*w+x] = glcmBackground
				continue
			}
			v := (lum.At(box.X1+x, box.Y1+y) - lo) / (hi - lo + 1e-7) * 255
			quant[y*w+x] = int(uint8(v)) / glcmLevels
		}
	}

	total := 0.0
	found := false
	for _, off := range glcmOffsets {
		var glcm [glcmLevels][glcmLevels]float64
		sum := 0.0
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				y2, x2 := y+off[0], x+off[1]
				if y2 < 0 || y2 >= h || x2 < 0 || x2 >= w {
					continue
				}
				i, j := quant[y*w+x], quant[y2*w+x2]
				if i == glcmBackground || j == glcmBackground {
					continue
				}
				glcm[i][j]++
				glcm[j][i]++
				sum += 2
			}
		}
		if sum == 0 {
			continue
		}
		found = true

		for i := range glcm {
			for j := range glcm[i] {
				d := float64(i - j)
				total += glcm[i][j] / sum / (1 + d*d)
			}
		}
	}

	if !found {
		return 0, false
	}
	return total / float64(len(glcmOffsets)), true
}
