package annotate

import (
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/clone"
	"github.com/cyclopcam/logs"

	"github.com/ironsheep/lesion-mcp/internal/classify"
	"github.com/ironsheep/lesion-mcp/internal/detection"
	"github.com/ironsheep/lesion-mcp/internal/features"
	"github.com/ironsheep/lesion-mcp/internal/imaging"
)

// Defaults for the compositor.
const (
	DefaultCropPadding = 100
	DefaultFontSize    = 24
)

// Compositor draws analysed lesions and assembles the Report.
type Compositor struct {
	Log         logs.Log
	Palette     *Palette
	JPEGQuality int
	CropPadding int
	FontSize    float64

	// Encode turns an artifact into base64 JPEG. Nil means imaging.EncodeJPEG.
	Encode func(img image.Image, quality int) (string, error)
}

// NewCompositor returns a compositor for the given class names.
func NewCompositor(log logs.Log, classes []string) *Compositor {
	return &Compositor{
		Log:         log,
		Palette:     NewPalette(classes),
		JPEGQuality: imaging.DefaultJPEGQuality,
		CropPadding: DefaultCropPadding,
		FontSize:    DefaultFontSize,
		Encode:      imaging.EncodeJPEG,
	}
}

func (c *Compositor) encodeJPEG(img image.Image) (string, error) {
	if c.Encode == nil {
		return imaging.EncodeJPEG(img, c.JPEGQuality)
	}
	return c.Encode(img, c.JPEGQuality)
}

// NoDetections returns the report for an image without lesions.
func (c *Compositor) NoDetections(img image.Image) (*Report, error) {
	full, err := c.encodeJPEG(img)
	if err != nil {
		return nil, err
	}
	return &Report{Status: StatusSuccess, Detections: false, FullImage: full}, nil
}

// Compose draws every instance onto img and builds the report. labels and
// feats are index-aligned with instances; a nil feature record is reported
// as null. An artifact that fails to encode is left empty and noted in
// Report.Errors.
func (c *Compositor) Compose(img image.Image, instances []detection.MergedInstance, labels []classify.Label, feats []*features.Record) (*Report, error) {
	if len(labels) != len(instances) || len(feats) != len(instances) {
		return nil, fmt.Errorf("got %d instances, %d labels and %d feature records",
			len(instances), len(labels), len(feats))
	}
	if len(instances) == 0 {
		return c.NoDetections(img)
	}

	face, err := newFace(c.FontSize)
	if err != nil {
		return nil, err
	}
	defer face.Close()

	b := img.Bounds()
	for i, inst := range instances {
		if inst.Mask.Width != b.Dx() || inst.Mask.Height != b.Dy() {
			return nil, fmt.Errorf("instance %d mask is %dx%d, image is %dx%d",
				i, inst.Mask.Width, inst.Mask.Height, b.Dx(), b.Dy())
		}
	}

	report := &Report{
		Status:                StatusSuccess,
		Detections:            true,
		IndividualPredictions: make([]Prediction, len(instances)),
	}
	encode := func(name string, im image.Image) string {
		s, err := c.encodeJPEG(im)
		if err != nil {
			if c.Log != nil {
				c.Log.Errorf("Encoding %s failed: %v", name, err)
			}
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", name, err))
			return ""
		}
		return s
	}

	full := clone.AsRGBA(img)
	for i, inst := range instances {
		class := c.Palette.ClassName(inst.Label)
		text := labelText(inst.Score, class)
		style := c.Palette.Style(inst.Label)

		drawInstance(full, face, inst, text, style)

		single := clone.AsRGBA(img)
		drawInstance(single, face, inst, text, style)

		crop := imaging.PaddedCrop(img, inst.Box.X1, inst.Box.Y1, inst.Box.X2, inst.Box.Y2, c.CropPadding)

		report.IndividualPredictions[i] = Prediction{
			Image:          encode(fmt.Sprintf("instance %d image", i), single),
			Label:          class,
			Classification: labels[i],
			Score:          inst.Score,
			Box:            inst.Box,
			Features:       feats[i],
			Crop:           encode(fmt.Sprintf("instance %d crop", i), crop),
		}
	}

	report.FullImage = encode("full image", full)
	report.FullNormalImage = encode("original image", img)
	return report, nil
}
