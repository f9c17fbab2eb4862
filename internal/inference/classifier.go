package inference

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// RemoteClassifier predicts benign (0) or malignant (1) for scaled feature rows.
// Request: {"features": [[...], ...]}. Reply: {"predictions": [0, 1, ...]}.
type RemoteClassifier struct {
	Client *Client
	URL    string
}

type predictResponse struct {
	Predictions []int `json:"predictions"`
}

// Predict implements classify.Classifier.
func (c *RemoteClassifier) Predict(ctx context.Context, x *mat.Dense) ([]int, error) {
	rows, _ := x.Dims()
	req := featureMatrix{Features: make([][]float64, rows)}
	for i := range req.Features {
		req.Features[i] = mat.Row(nil, i, x)
	}

	resp, err := postJSON[predictResponse](ctx, c.Client, c.URL, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Predictions) != rows {
		return nil, fmt.Errorf("got %d predictions for %d rows", len(resp.Predictions), rows)
	}
	return resp.Predictions, nil
}

// Health checks the classifier host.
func (c *RemoteClassifier) Health(ctx context.Context) error {
	return c.Client.Health(ctx, c.URL)
}
