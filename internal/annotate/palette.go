package annotate

import (
	"fmt"
	"image/color"

	colorful "github.com/lucasb-eyer/go-colorful"
)

const (
	roseHex = "#D16D91"
	cyanHex = "#00FFFF"
)

// Style is the colour pair used to draw one class.
type Style struct {
	Fill    color.RGBA // box, chip and mask tint
	Contour color.RGBA
}

// Palette maps class names to drawing styles. "mass" is drawn rose with a
// cyan outline; every other class is cyan with a rose outline.
type Palette struct {
	Classes []string

	mass  Style
	other Style
}

// NewPalette builds the palette for the given class names, where label n
// names Classes[n-1].
func NewPalette(classes []string) *Palette {
	rose, cyan := mustHex(roseHex), mustHex(cyanHex)
	return &Palette{
		Classes: classes,
		mass:    Style{Fill: rose, Contour: cyan},
		other:   Style{Fill: cyan, Contour: rose},
	}
}

// ClassName returns the display name for a 1-based detector label.
func (p *Palette) ClassName(label int) string {
	if label >= 1 && label <= len(p.Classes) {
		return p.Classes[label-1]
	}
	return fmt.Sprintf("class %d", label)
}

// Style returns the colours for a 1-based detector label.
func (p *Palette) Style(label int) Style {
	if p.ClassName(label) == "mass" {
		return p.mass
	}
	return p.other
}

func mustHex(s string) color.RGBA {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(err)
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}
