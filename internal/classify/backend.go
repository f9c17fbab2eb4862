package classify

import (
	"context"
	"fmt"
	"image"

	"gonum.org/v1/gonum/mat"
)

// Embedder turns a batch of classifier-sized patches into one feature row
// per image, in input order.
type Embedder interface {
	Embed(ctx context.Context, batch []image.Image) (*mat.Dense, error)
}

// Scaler applies a fitted normalisation to feature rows.
type Scaler interface {
	Transform(x *mat.Dense) (*mat.Dense, error)
}

// Classifier predicts a class index (0 or 1) per feature row.
type Classifier interface {
	Predict(ctx context.Context, x *mat.Dense) ([]int, error)
}

// Concat runs each embedder on the same batch and joins their outputs
// column-wise, in slice order.
type Concat []Embedder

// Embed implements Embedder.
func (c Concat) Embed(ctx context.Context, batch []image.Image) (*mat.Dense, error) {
	if len(c) == 0 {
		return nil, fmt.Errorf("no embedders configured")
	}

	var out *mat.Dense
	for i, e := range c {
		m, err := e.Embed(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("embedder %d: %w", i, err)
		}
		rows, _ := m.Dims()
		if rows != len(batch) {
			return nil, fmt.Errorf("embedder %d returned %d rows for %d images", i, rows, len(batch))
		}
		if out == nil {
			out = m
			continue
		}
		var joined mat.Dense
		joined.Augment(out, m)
		out = &joined
	}
	return out, nil
}
