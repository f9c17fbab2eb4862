package annotate

import "github.com/ironsheep/lesion-mcp/internal/detection"

// outside marks background pixels connected to the image border through
// 4-connected background. Holes enclosed by the mask stay false.
func outside(m *detection.Mask) []bool {
	out := make([]bool, len(m.Pix))
	var stack []int

	push := func(x, y int) {
		if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
			return
		}
		i := y*m.Width + x
		if m.Pix[i] || out[i] {
			return
		}
		out[i] = true
		stack = append(stack, i)
	}

	for x := 0; x < m.Width; x++ {
		push(x, 0)
		push(x, m.Height-1)
	}
	for y := 0; y < m.Height; y++ {
		push(0, y)
		push(m.Width-1, y)
	}

	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := i%m.Width, i/m.Width
		push(x+1, y)
		push(x-1, y)
		push(x, y+1)
		push(x, y-1)
	}
	return out
}

// externalContour returns a 2 px ring around the outer boundary of m: mask
// pixels that touch the outside, plus the outside pixels touching them.
// Pixels beyond the image edge count as outside.
func externalContour(m *detection.Mask) *detection.Mask {
	ring := detection.NewMask(m.Width, m.Height)
	ext := outside(m)

	isOutside := func(x, y int) bool {
		if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
			return true
		}
		return ext[y*m.Width+x]
	}

	steps := [][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if !m.Pix[y*m.Width+x] {
				continue
			}
			for _, s := range steps {
				nx, ny := x+s[0], y+s[1]
				if !isOutside(nx, ny) {
					continue
				}
				ring.Set(x, y, true)
				ring.Set(nx, ny, true)
			}
		}
	}
	return ring
}
