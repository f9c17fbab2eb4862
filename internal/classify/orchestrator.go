package classify

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/cyclopcam/logs"

	"github.com/ironsheep/lesion-mcp/internal/detection"
	"github.com/ironsheep/lesion-mcp/internal/imaging"
)

// ErrBackend marks failures of the embedding, scaling or classification
// collaborators.
var ErrBackend = errors.New("classification backend failed")

// Orchestrator labels merged lesions as benign or malignant. It crops every
// lesion from a working-resolution copy of the image and sends all crops to
// the backends in a single batch.
type Orchestrator struct {
	Log        logs.Log
	Embedder   Embedder
	Scaler     Scaler
	Classifier Classifier

	// WorkingWidth and WorkingHeight define the geometry crops are cut from.
	WorkingWidth  int
	WorkingHeight int
}

// NewOrchestrator wires the three backends with the default working resolution.
func NewOrchestrator(log logs.Log, embedder Embedder, scaler Scaler, classifier Classifier) *Orchestrator {
	return &Orchestrator{
		Log:           log,
		Embedder:      embedder,
		Scaler:        scaler,
		Classifier:    classifier,
		WorkingWidth:  imaging.WorkingWidth,
		WorkingHeight: imaging.WorkingHeight,
	}
}

// Crops returns the classifier patch for each instance, in order. Boxes are
// mapped from img's coordinates into the working resolution first.
func (o *Orchestrator) Crops(img image.Image, instances []detection.MergedInstance) []image.Image {
	working := imaging.ResizeToWorking(img, o.WorkingWidth, o.WorkingHeight)
	sx, sy := imaging.WorkingScale(img.Bounds(), o.WorkingWidth, o.WorkingHeight)

	batch := make([]image.Image, len(instances))
	for i, inst := range instances {
		b := inst.Box.Scale(sx, sy)
		batch[i], _ = imaging.AdaptiveCrop(working, b.X1, b.Y1, b.X2, b.Y2)
	}
	return batch
}

// Classify returns one label per instance in input order. An empty instance
// list returns an empty result without contacting any backend.
func (o *Orchestrator) Classify(ctx context.Context, img image.Image, instances []detection.MergedInstance) ([]Label, error) {
	if len(instances) == 0 {
		return []Label{}, nil
	}

	start := time.Now()
	batch := o.Crops(img, instances)

	features, err := o.Embedder.Embed(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("%w: embed: %w", ErrBackend, err)
	}
	if rows, _ := features.Dims(); rows != len(batch) {
		return nil, fmt.Errorf("%w: embed returned %d rows for %d crops", ErrBackend, rows, len(batch))
	}

	scaled, err := o.Scaler.Transform(features)
	if err != nil {
		return nil, fmt.Errorf("%w: scale: %w", ErrBackend, err)
	}

	preds, err := o.Classifier.Predict(ctx, scaled)
	if err != nil {
		return nil, fmt.Errorf("%w: predict: %w", ErrBackend, err)
	}
	if len(preds) != len(batch) {
		return nil, fmt.Errorf("%w: classifier returned %d predictions for %d crops", ErrBackend, len(preds), len(batch))
	}

	labels := make([]Label, len(preds))
	for i, p := range preds {
		if labels[i], err = LabelFromPrediction(p); err != nil {
			return nil, fmt.Errorf("%w: instance %d: %w", ErrBackend, i, err)
		}
	}

	if o.Log != nil {
		_, cols := features.Dims()
		o.Log.Debugf("Classified %d lesions (%d features each) in %v", len(labels), cols, time.Since(start))
	}
	return labels, nil
}
