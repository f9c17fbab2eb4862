package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/disintegration/imaging"
)

// DefaultJPEGQuality is used for report images.
const DefaultJPEGQuality = 95

// EncodeJPEG compresses img as JPEG and returns it base64 encoded.
func EncodeJPEG(img image.Image, quality int) (string, error) {
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return "", fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// EncodePNG compresses img as PNG and returns it base64 encoded.
func EncodePNG(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := imgio.PNGEncoder()(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode png: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// DecodeBase64 decodes a base64 PNG or JPEG payload.
func DecodeBase64(s string) (image.Image, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64: %w", err)
	}
	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}
