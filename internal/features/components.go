package features

import "github.com/ironsheep/lesion-mcp/internal/detection"

type point struct{ X, Y int }

var (
	neighbours4 = []point{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	neighbours8 = []point{{1, 0}, {-1, 0}, {0, 1}, {0, -1}, {1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
)

// labelComponents assigns a component id to every set pixel, numbered from 1
// in raster order of each component's first pixel. 0 is background.
// sizes[id] is the pixel count of component id.
func labelComponents(m *detection.Mask, conn []point) (labels []int, sizes []int) {
	labels = make([]int, len(m.Pix))
	sizes = []int{0}

	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			i := y*m.Width + x
			if !m.Pix[i] || labels[i] != 0 {
				continue
			}
			id := len(sizes)
			sizes = append(sizes, fill(m, labels, x, y, id, conn))
		}
	}
	return labels, sizes
}

// fill labels the component containing (x, y) with id and returns its size.
// Iterative so large lesions cannot exhaust the goroutine stack.
func fill(m *detection.Mask, labels []int, x, y, id int, conn []point) int {
	stack := []point{{X: x, Y: y}}
	labels[y*m.Width+x] = id
	n := 0

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n++

		for _, d := range conn {
			q := point{X: p.X + d.X, Y: p.Y + d.Y}
			if !m.At(q.X, q.Y) {
				continue
			}
			j := q.Y*m.Width + q.X
			if labels[j] != 0 {
				continue
			}
			labels[j] = id
			stack = append(stack, q)
		}
	}
	return n
}

// removeSmallObjects returns a copy of m without the 4-connected components
// smaller than minSize pixels.
func removeSmallObjects(m *detection.Mask, minSize int) *detection.Mask {
	out := m.Clone()
	if minSize <= 1 {
		return out
	}

	labels, sizes := labelComponents(m, neighbours4)
	for i, id := range labels {
		if id != 0 && sizes[id] < minSize {
			out.Pix[i] = false
		}
	}
	return out
}

// region is one labelled component.
type region struct {
	Pixels []point
	Box    detection.Box

	// Local is the component alone, cropped to Box.
	Local *detection.Mask
}

// largestRegion labels m with 8-connectivity and returns the component with
// the most pixels. Ties go to the component found first in raster order.
func largestRegion(m *detection.Mask) (*region, bool) {
	labels, sizes := labelComponents(m, neighbours8)
	best := 0
	for id := 1; id < len(sizes); id++ {
		if sizes[id] > sizes[best] {
			best = id
		}
	}
	if best == 0 {
		return nil, false
	}

	r := &region{Pixels: make([]point, 0, sizes[best])}
	only := detection.NewMask(m.Width, m.Height)
	for i, id := range labels {
		if id == best {
			p := point{X: i % m.Width, Y: i / m.Width}
			r.Pixels = append(r.Pixels, p)
			only.Pix[i] = true
		}
	}
	r.Box = only.TightBox()
	r.Local = only.Crop(r.Box)
	return r, true
}
