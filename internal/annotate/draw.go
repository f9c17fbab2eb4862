package annotate

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/ironsheep/lesion-mcp/internal/detection"
)

const tintStrength = 0.3

var parseFont = sync.OnceValues(func() (*truetype.Font, error) {
	return truetype.Parse(goregular.TTF)
})

// newFace returns a fresh label face. Faces cache glyphs and must not be
// shared between goroutines.
func newFace(size float64) (font.Face, error) {
	f, err := parseFont()
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return truetype.NewFace(f, &truetype.Options{Size: size}), nil
}

// labelText formats a label chip, e.g. "87% mass".
func labelText(score float64, class string) string {
	return fmt.Sprintf("%d%% %s", int(score*100), class)
}

// measure returns the rounded-up extents of s in face.
func measure(face font.Face, s string) textMetrics {
	metrics := face.Metrics()
	return textMetrics{
		Width:    font.MeasureString(face, s).Ceil(),
		Height:   metrics.Ascent.Ceil(),
		Baseline: metrics.Descent.Ceil(),
	}
}

// drawInstance paints one lesion onto canvas in place: box, label chip,
// label text, mask tint and external contour, in that order.
func drawInstance(canvas *image.RGBA, face font.Face, inst detection.MergedInstance, text string, style Style) {
	w, h := canvas.Rect.Dx(), canvas.Rect.Dy()
	dc := gg.NewContextForRGBA(canvas)
	dc.SetFontFace(face)

	b := inst.Box
	dc.SetColor(style.Fill)
	dc.SetLineWidth(boxThickness)
	dc.DrawRectangle(float64(b.X1), float64(b.Y1), float64(b.X2-b.X1), float64(b.Y2-b.Y1))
	dc.Stroke()

	m := measure(face, text)
	tx, ty := labelOrigin(b, m, w, h)
	cx1, cy1, cx2, cy2 := chipRect(tx, ty, m, w, h)
	dc.SetRGBA255(int(style.Fill.R), int(style.Fill.G), int(style.Fill.B), int(math.Round(chipAlpha*255)))
	dc.DrawRoundedRectangle(float64(cx1), float64(cy1), float64(cx2-cx1), float64(cy2-cy1), chipRadius)
	dc.Fill()

	dc.SetColor(color.White)
	dc.DrawString(text, float64(tx), float64(ty))

	tint(canvas, inst.Mask, style.Fill)
	paintMask(canvas, externalContour(inst.Mask), style.Contour)
}

// tint adds tintStrength x c to every pixel under mask, saturating at 255.
func tint(canvas *image.RGBA, mask *detection.Mask, c color.RGBA) {
	add := [3]float64{tintStrength * float64(c.R), tintStrength * float64(c.G), tintStrength * float64(c.B)}
	for y := 0; y < mask.Height; y++ {
		for x := 0; x < mask.Width; x++ {
			if !mask.Pix[y*mask.Width+x] {
				continue
			}
			i := canvas.PixOffset(canvas.Rect.Min.X+x, canvas.Rect.Min.Y+y)
			for k := 0; k < 3; k++ {
				canvas.Pix[i+k] = uint8(math.Min(255, math.Round(float64(canvas.Pix[i+k])+add[k])))
			}
		}
	}
}

// paintMask sets every pixel under mask to c.
func paintMask(canvas *image.RGBA, mask *detection.Mask, c color.RGBA) {
	for y := 0; y < mask.Height; y++ {
		for x := 0; x < mask.Width; x++ {
			if mask.Pix[y*mask.Width+x] {
				canvas.SetRGBA(canvas.Rect.Min.X+x, canvas.Rect.Min.Y+y, c)
			}
		}
	}
}
