package detection

import "image"

// Box is an axis-aligned bounding box in pixel coordinates.
//
// Unlike image.Rectangle, both corners are inclusive: a box covering the
// single pixel (5, 7) is {5, 7, 5, 7}. This matches the tight boxes derived
// from instance masks.
type Box struct {
	X1 int `json:"x1"` // Left edge (inclusive)
	Y1 int `json:"y1"` // Top edge (inclusive)
	X2 int `json:"x2"` // Right edge (inclusive)
	Y2 int `json:"y2"` // Bottom edge (inclusive)
}

// Width returns X2 - X1.
func (b Box) Width() int { return b.X2 - b.X1 }

// Height returns Y2 - Y1.
func (b Box) Height() int { return b.Y2 - b.Y1 }

// Center returns the integer centre of the box.
func (b Box) Center() (int, int) {
	return (b.X1 + b.X2) / 2, (b.Y1 + b.Y2) / 2
}

// Scale multiplies every coordinate by the given factors, truncating toward zero.
func (b Box) Scale(sx, sy float64) Box {
	return Box{
		X1: int(float64(b.X1) * sx),
		Y1: int(float64(b.Y1) * sy),
		X2: int(float64(b.X2) * sx),
		Y2: int(float64(b.Y2) * sy),
	}
}

// Rect converts the box to an image.Rectangle (exclusive max corner).
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.X1, b.Y1, b.X2+1, b.Y2+1)
}

// BoxF is a detector box in floating point detector coordinates.
type BoxF struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Truncate converts the box to integer pixel coordinates.
func (b BoxF) Truncate() Box {
	return Box{X1: int(b.X1), Y1: int(b.Y1), X2: int(b.X2), Y2: int(b.Y2)}
}

// RawInstance is one instance as produced by the detector, before any
// deduplication. The mask has the resolution of the image the detector saw.
type RawInstance struct {
	Box   BoxF
	Label int
	Score float64
	Mask  *ProbMap
}

// MergedInstance is a deduplicated lesion instance.
//
// Box is always the tight box of Mask, never the detector's box. Score is the
// maximum score over the merged group and Members lists the indices of the
// contributing raw instances (after confidence filtering).
type MergedInstance struct {
	Box     Box
	Label   int
	Score   float64
	Mask    *Mask
	Members []int
}

// Area returns the number of foreground pixels in the instance mask.
func (m MergedInstance) Area() int {
	if m.Mask == nil {
		return 0
	}
	return m.Mask.Count()
}

// Passes reports whether a score clears the confidence threshold.
// The comparison is strict: a score equal to the threshold is rejected.
func Passes(score, threshold float64) bool {
	return score > threshold
}

// FilterByScore returns the instances whose score passes the threshold,
// preserving order.
func FilterByScore(raw []RawInstance, threshold float64) []RawInstance {
	kept := make([]RawInstance, 0, len(raw))
	for _, r := range raw {
		if Passes(r.Score, threshold) {
			kept = append(kept, r)
		}
	}
	return kept
}
