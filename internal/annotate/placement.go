package annotate

import "github.com/ironsheep/lesion-mcp/internal/detection"

const (
	labelGap     = 10
	chipPadding  = 5
	chipRadius   = 8
	chipAlpha    = 0.6
	boxThickness = 2
)

// textMetrics are the pixel extents of a rendered label.
type textMetrics struct {
	Width, Height, Baseline int
}

// labelOrigin returns the baseline-left point of a label for box inside a
// w x h image. The label is centred on the box and kept inside the image
// horizontally. It goes above the box when there is room, otherwise below,
// and at the box's vertical centre when below would run off the image.
func labelOrigin(box detection.Box, m textMetrics, w, h int) (x, y int) {
	cx, _ := box.Center()
	x = max(0, min(cx-m.Width/2, w-m.Width))

	y = box.Y1 - labelGap
	if y-m.Height < 0 {
		y = box.Y2 + m.Height + labelGap
	}
	if y+m.Baseline > h {
		y = box.Y1 + (box.Y2-box.Y1)/2
	}
	return x, y
}

// chipRect returns the chip behind a label drawn at (x, y), clipped to the image.
func chipRect(x, y int, m textMetrics, w, h int) (x1, y1, x2, y2 int) {
	return max(0, x-chipPadding), max(0, y-m.Height-chipPadding),
		min(w, x+m.Width+chipPadding), min(h, y+chipPadding)
}
