package features

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/ironsheep/lesion-mcp/internal/detection"
	"github.com/ironsheep/lesion-mcp/internal/imaging"
)

// DefaultMinRegionPixels is the component size below which pixels are
// treated as noise.
const DefaultMinRegionPixels = 10

var (
	// ErrNoRegion is returned when no component survives small-object removal.
	ErrNoRegion = errors.New("no region left after small-object removal")

	// ErrSizeMismatch is returned when the mask and intensity plane differ in size.
	ErrSizeMismatch = errors.New("mask and image differ in size")
)

// Morphology holds shape measurements in physical units.
type Morphology struct {
	AreaMM2      float64 `json:"area_mm2"`
	PerimeterMM  float64 `json:"perimeter_mm"`
	Circularity  float64 `json:"circularity"`
	Eccentricity float64 `json:"eccentricity"`
}

// Intensity holds luminance statistics over the region, on a 0-1 scale.
type Intensity struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
}

// Texture holds co-occurrence descriptors. GLCMHomogeneity is nil when the
// region is too small for a co-occurrence matrix.
type Texture struct {
	GLCMHomogeneity *float64 `json:"glcm_homogeneity"`
}

// Record is the full descriptor set for one lesion.
type Record struct {
	Morphology Morphology `json:"morphology"`
	Intensity  Intensity  `json:"intensity"`
	Texture    Texture    `json:"texture"`

	// PixelCount and Box describe the representative region in image pixels.
	PixelCount int           `json:"pixel_count"`
	Box        detection.Box `json:"region_box"`
}

// Extractor computes Records from binary lesion masks.
type Extractor struct {
	// MinRegionPixels removes 4-connected components with fewer pixels.
	MinRegionPixels int
}

// NewExtractor returns an extractor with DefaultMinRegionPixels.
func NewExtractor() *Extractor {
	return &Extractor{MinRegionPixels: DefaultMinRegionPixels}
}

// Extract measures the largest 8-connected component of mask that survives
// small-object removal. It returns ErrNoRegion when nothing survives.
func (e *Extractor) Extract(mask *detection.Mask, lum *imaging.Luminance, spacing Spacing) (*Record, error) {
	if err := spacing.Validate(); err != nil {
		return nil, err
	}
	if mask.Width != lum.Width || mask.Height != lum.Height {
		return nil, fmt.Errorf("%w: mask %dx%d, image %dx%d",
			ErrSizeMismatch, mask.Width, mask.Height, lum.Width, lum.Height)
	}

	cleaned := removeSmallObjects(mask, e.MinRegionPixels)
	reg, ok := largestRegion(cleaned)
	if !ok {
		return nil, ErrNoRegion
	}

	rec := &Record{
		PixelCount: len(reg.Pixels),
		Box:        reg.Box,
	}

	area := float64(len(reg.Pixels)) * spacing.Area()
	perim := croftonPerimeter(reg.Local) * spacing.Linear()
	rec.Morphology = Morphology{
		AreaMM2:      area,
		PerimeterMM:  perim,
		Eccentricity: eccentricity(reg.Pixels),
	}
	if perim > 0 {
		rec.Morphology.Circularity = 4 * math.Pi * area / (perim * perim)
	}

	values := make([]float64, len(reg.Pixels))
	for i, p := range reg.Pixels {
		values[i] = lum.At(p.X, p.Y)
	}
	rec.Intensity.Mean, rec.Intensity.StdDev = stat.PopMeanStdDev(values, nil)

	if h, ok := homogeneity(lum, reg.Box, reg.Local); ok {
		rec.Texture.GLCMHomogeneity = &h
	}

	return rec, nil
}
