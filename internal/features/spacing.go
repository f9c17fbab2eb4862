package features

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidSpacing is returned for missing, zero, negative or non-finite
// pixel spacing.
var ErrInvalidSpacing = errors.New("invalid pixel spacing")

// Spacing is the physical size of one pixel in millimetres along each axis.
type Spacing struct {
	Row float64 `json:"row"`
	Col float64 `json:"col"`
}

// Isotropic returns a spacing with the same value on both axes.
func Isotropic(mm float64) Spacing {
	return Spacing{Row: mm, Col: mm}
}

// Validate reports whether both axes are finite and positive.
func (s Spacing) Validate() error {
	for _, v := range []float64{s.Row, s.Col} {
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: row=%v col=%v", ErrInvalidSpacing, s.Row, s.Col)
		}
	}
	return nil
}

// Area is the area of one pixel in mm².
func (s Spacing) Area() float64 {
	return s.Row * s.Col
}

// Linear is the length used to convert pixel distances to mm: the mean of
// the two axes.
func (s Spacing) Linear() float64 {
	return (s.Row + s.Col) / 2
}
