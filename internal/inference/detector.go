package inference

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"mime/multipart"
	"net/http"

	"github.com/anthonynsimon/bild/imgio"

	"github.com/ironsheep/lesion-mcp/internal/detection"
	"github.com/ironsheep/lesion-mcp/internal/imaging"
)

// RemoteDetector runs instance segmentation on a remote model server.
//
// The image is uploaded as a multipart "file" field in PNG form. The reply
// carries one entry per instance with its box in image pixels, a 1-based
// class label, a confidence score and a base64 PNG probability mask
// (gray level = probability x 255) at the image's resolution.
type RemoteDetector struct {
	Client *Client
	URL    string
}

type detectResponse struct {
	Instances []struct {
		Box   [4]float64 `json:"box"`
		Label int        `json:"label"`
		Score float64    `json:"score"`
		Mask  string     `json:"mask"`
	} `json:"instances"`
}

// Detect uploads img and returns the raw instances in detector order.
func (d *RemoteDetector) Detect(ctx context.Context, img image.Image) ([]detection.RawInstance, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "image.png")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if err := imgio.PNGEncoder()(part, img); err != nil {
		return nil, fmt.Errorf("encode upload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.URL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var resp detectResponse
	if err := d.Client.do(req, &resp); err != nil {
		return nil, err
	}

	b := img.Bounds()
	out := make([]detection.RawInstance, len(resp.Instances))
	for i, in := range resp.Instances {
		mask, err := decodeProbMap(in.Mask)
		if err != nil {
			return nil, fmt.Errorf("instance %d mask: %w", i, err)
		}
		if mask.Width != b.Dx() || mask.Height != b.Dy() {
			return nil, fmt.Errorf("instance %d mask is %dx%d, image is %dx%d",
				i, mask.Width, mask.Height, b.Dx(), b.Dy())
		}
		out[i] = detection.RawInstance{
			Box:   detection.BoxF{X1: in.Box[0], Y1: in.Box[1], X2: in.Box[2], Y2: in.Box[3]},
			Label: in.Label,
			Score: in.Score,
			Mask:  mask,
		}
	}
	return out, nil
}

// Health checks the detector host.
func (d *RemoteDetector) Health(ctx context.Context) error {
	return d.Client.Health(ctx, d.URL)
}

// decodeProbMap turns a base64 gray PNG into a probability field.
func decodeProbMap(s string) (*detection.ProbMap, error) {
	img, err := imaging.DecodeBase64(s)
	if err != nil {
		return nil, err
	}
	return detection.ProbMapFromImage(img), nil
}
