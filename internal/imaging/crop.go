package imaging

import (
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/transform"
	"github.com/disintegration/imaging"
)

// ClassifierInputSize is the edge length of the square patch fed to the
// embedding extractors.
const ClassifierInputSize = 224

// Working resolution used for classification geometry.
const (
	WorkingWidth  = 957
	WorkingHeight = 1147
)

// CropSizes are the square crop edge lengths tried in ascending order.
var CropSizes = []int{112, 224, 512, 750, 1024, 1500}

// CropRegion describes the window chosen by SelectCrop.
type CropRegion struct {
	// Size is the chosen candidate edge length, or 0 on fallback.
	Size int `json:"size"`

	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`

	// Fallback is true when no candidate contained the box and the whole
	// image was used.
	Fallback bool `json:"fallback"`
}

// CropResult contains the cropped image data
type CropResult struct {
	Width       int        `json:"width"`
	Height      int        `json:"height"`
	ImageBase64 string     `json:"image_base64"`
	MimeType    string     `json:"mime_type"`
	Region      CropRegion `json:"region"`
}

// SelectCrop picks the smallest candidate square that, once shifted inside a
// width x height image, still contains the box (x1,y1)-(x2,y2).
func SelectCrop(width, height, x1, y1, x2, y2 int) CropRegion {
	maxDim := max(x2-x1, y2-y1)
	cx := (x1 + x2) / 2
	cy := (y1 + y2) / 2

	for _, size := range CropSizes {
		if size < maxDim {
			continue
		}
		left, right := cropSpan(cx, size, width)
		top, bottom := cropSpan(cy, size, height)

		if x1 >= left && y1 >= top && x2 <= right && y2 <= bottom && right > left && bottom > top {
			return CropRegion{
				Size:   size,
				X:      left,
				Y:      top,
				Width:  right - left,
				Height: bottom - top,
			}
		}
	}

	return CropRegion{Width: width, Height: height, Fallback: true}
}

// cropSpan centres a window of the given size on c and shifts it back inside
// [0, limit) without shrinking it, unless the image itself is smaller.
func cropSpan(c, size, limit int) (lo, hi int) {
	lo = max(0, c-size/2)
	hi = min(limit, lo+size)
	if hi-lo < size {
		lo = max(0, hi-size)
	}
	return lo, hi
}

// AdaptiveCrop cuts the window chosen by SelectCrop from img and resizes it to
// ClassifierInputSize square with linear interpolation. Box coordinates are
// relative to img's bounds.
func AdaptiveCrop(img image.Image, x1, y1, x2, y2 int) (*image.NRGBA, CropRegion) {
	b := img.Bounds()
	region := SelectCrop(b.Dx(), b.Dy(), x1, y1, x2, y2)

	var src image.Image = img
	if !region.Fallback {
		r := image.Rect(region.X, region.Y, region.X+region.Width, region.Y+region.Height).Add(b.Min)
		src = imaging.Crop(img, r)
	}
	return imaging.Resize(src, ClassifierInputSize, ClassifierInputSize, imaging.Linear), region
}

// AdaptiveCropResult runs AdaptiveCrop and encodes the patch as PNG. The box
// corners are inclusive and must lie inside the image.
func AdaptiveCropResult(img image.Image, x1, y1, x2, y2 int) (*CropResult, error) {
	bounds := img.Bounds()

	if x1 < 0 || y1 < 0 || x2 >= bounds.Dx() || y2 >= bounds.Dy() {
		return nil, fmt.Errorf("box (%d,%d)-(%d,%d) outside image bounds %dx%d",
			x1, y1, x2, y2, bounds.Dx(), bounds.Dy())
	}
	if x1 > x2 || y1 > y2 {
		return nil, fmt.Errorf("invalid box: x1 must be <= x2, y1 must be <= y2")
	}

	patch, region := AdaptiveCrop(img, x1, y1, x2, y2)
	encoded, err := EncodePNG(patch)
	if err != nil {
		return nil, err
	}

	return &CropResult{
		Width:       ClassifierInputSize,
		Height:      ClassifierInputSize,
		ImageBase64: encoded,
		MimeType:    "image/png",
		Region:      region,
	}, nil
}

// PaddedCrop returns the box (x1,y1)-(x2,y2) grown by pad pixels and clipped
// to the image. The padded window is half-open: it starts pad pixels before
// x1 and y1 and stops just short of x2+pad and y2+pad.
func PaddedCrop(img image.Image, x1, y1, x2, y2, pad int) *image.NRGBA {
	b := img.Bounds()
	r := image.Rect(x1-pad, y1-pad, x2+pad, y2+pad).Add(b.Min).Intersect(b)
	return imaging.Crop(img, r)
}

// ResizeToWorking resizes img to width x height with bilinear filtering.
func ResizeToWorking(img image.Image, width, height int) *image.RGBA {
	return transform.Resize(img, width, height, transform.Linear)
}

// WorkingScale returns the factors mapping source coordinates of an image
// with the given size onto a width x height working image.
func WorkingScale(src image.Rectangle, width, height int) (sx, sy float64) {
	return float64(width) / float64(src.Dx()), float64(height) / float64(src.Dy())
}
