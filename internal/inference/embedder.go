package inference

import (
	"context"
	"fmt"
	"image"

	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/lesion-mcp/internal/imaging"
)

// RemoteEmbedder extracts deep features for a batch of patches.
// Request: {"images": [<base64 PNG>, ...]}. Reply: {"features": [[...], ...]}.
type RemoteEmbedder struct {
	Client *Client
	URL    string
}

type embedRequest struct {
	Images []string `json:"images"`
}

type featureMatrix struct {
	Features [][]float64 `json:"features"`
}

// Embed implements classify.Embedder.
func (e *RemoteEmbedder) Embed(ctx context.Context, batch []image.Image) (*mat.Dense, error) {
	req := embedRequest{Images: make([]string, len(batch))}
	for i, img := range batch {
		s, err := imaging.EncodePNG(img)
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", i, err)
		}
		req.Images[i] = s
	}

	resp, err := postJSON[featureMatrix](ctx, e.Client, e.URL, req)
	if err != nil {
		return nil, err
	}
	return toDense(resp.Features, len(batch))
}

// Health checks the embedder host.
func (e *RemoteEmbedder) Health(ctx context.Context) error {
	return e.Client.Health(ctx, e.URL)
}

// toDense checks that rows is rectangular with the expected row count.
func toDense(rows [][]float64, want int) (*mat.Dense, error) {
	if len(rows) != want {
		return nil, fmt.Errorf("got %d feature rows, want %d", len(rows), want)
	}
	if want == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("empty feature matrix")
	}
	cols := len(rows[0])
	data := make([]float64, 0, want*cols)
	for i, r := range rows {
		if len(r) != cols {
			return nil, fmt.Errorf("row %d has %d features, want %d", i, len(r), cols)
		}
		data = append(data, r...)
	}
	return mat.NewDense(want, cols, data), nil
}
