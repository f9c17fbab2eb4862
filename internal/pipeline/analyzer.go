package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/cyclopcam/logs"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/lesion-mcp/internal/annotate"
	"github.com/ironsheep/lesion-mcp/internal/classify"
	"github.com/ironsheep/lesion-mcp/internal/detection"
	"github.com/ironsheep/lesion-mcp/internal/features"
	"github.com/ironsheep/lesion-mcp/internal/imaging"
)

// ErrEmptyImage is returned for a nil or zero-sized image.
var ErrEmptyImage = errors.New("image is empty")

// Detector produces raw instance segmentation output for an image.
type Detector interface {
	Detect(ctx context.Context, img image.Image) ([]detection.RawInstance, error)
}

// LesionClassifier labels merged instances, one label per instance in order.
type LesionClassifier interface {
	Classify(ctx context.Context, img image.Image, instances []detection.MergedInstance) ([]classify.Label, error)
}

// Components are the long-lived services an Analyzer drives. They are built
// once at start-up and shared by all requests.
type Components struct {
	Detector   Detector // optional, only needed by DetectAndAnalyze
	Merger     *detection.Merger
	Classifier LesionClassifier
	Extractor  *features.Extractor
	Compositor *annotate.Compositor
}

// Analyzer turns raw detector output into a Report.
type Analyzer struct {
	log logs.Log
	c   Components
}

func NewAnalyzer(log logs.Log, c Components) *Analyzer {
	return &Analyzer{log: log, c: c}
}

// DetectAndAnalyze runs the detector on img and analyses its output.
func (a *Analyzer) DetectAndAnalyze(ctx context.Context, img image.Image, spacing features.Spacing) (*annotate.Report, error) {
	return a.DetectAndAnalyzeWithLog(ctx, a.log, img, spacing)
}

// DetectAndAnalyzeWithLog is DetectAndAnalyze with a request-scoped logger.
func (a *Analyzer) DetectAndAnalyzeWithLog(ctx context.Context, log logs.Log, img image.Image, spacing features.Spacing) (*annotate.Report, error) {
	if a.c.Detector == nil {
		return nil, stageError(StageDetect, KindDetector, errors.New("no detector configured"))
	}
	if err := checkImage(img); err != nil {
		return nil, err
	}

	start := time.Now()
	raw, err := a.c.Detector.Detect(ctx, img)
	if err != nil {
		return nil, stageError(StageDetect, KindDetector, err)
	}
	log.Debugf("Detector returned %d instances in %v", len(raw), time.Since(start))

	return a.analyze(ctx, log, img, raw, spacing)
}

// Analyze merges raw, classifies and measures the merged lesions, and
// composites the report. When no lesion survives filtering and merging the
// report carries only the original image and no backend is called.
// spacing is only checked when there is something to measure.
func (a *Analyzer) Analyze(ctx context.Context, img image.Image, raw []detection.RawInstance, spacing features.Spacing) (*annotate.Report, error) {
	if err := checkImage(img); err != nil {
		return nil, err
	}
	return a.analyze(ctx, a.log, img, raw, spacing)
}

func (a *Analyzer) analyze(ctx context.Context, log logs.Log, img image.Image, raw []detection.RawInstance, spacing features.Spacing) (*annotate.Report, error) {
	merged, err := a.c.Merger.Merge(raw)
	if err != nil {
		return nil, stageError(StageMerge, KindInput, err)
	}
	instances := merged.Instances
	log.Infof("Instances: %d raw, %d below threshold, %d merged, %d degenerate dropped",
		len(raw), merged.Filtered, len(instances), len(merged.Dropped))

	if len(instances) == 0 {
		report, err := a.c.Compositor.NoDetections(img)
		if err != nil {
			return nil, stageError(StageComposite, KindEncoding, err)
		}
		return report, nil
	}

	if err := spacing.Validate(); err != nil {
		return nil, stageError(StageInput, KindInput, err)
	}
	b := img.Bounds()
	if m := instances[0].Mask; m.Width != b.Dx() || m.Height != b.Dy() {
		return nil, stageError(StageInput, KindInput, fmt.Errorf("%w: masks are %dx%d, image is %dx%d",
			detection.ErrMaskSize, m.Width, m.Height, b.Dx(), b.Dy()))
	}

	var labels []classify.Label
	feats := make([]*features.Record, len(instances))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		start := time.Now()
		var err error
		labels, err = a.c.Classifier.Classify(gctx, img, instances)
		if err != nil {
			return stageError(StageClassify, KindClassificationBackend, err)
		}
		log.Debugf("Classification took %v", time.Since(start))
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		lum := imaging.NewLuminance(img)
		for i, inst := range instances {
			rec, err := a.c.Extractor.Extract(inst.Mask, lum, spacing)
			if err != nil {
				log.Warnf("Features unavailable for instance %d: %v", i, err)
				continue
			}
			feats[i] = rec
		}
		log.Debugf("Feature extraction took %v", time.Since(start))
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report, err := a.c.Compositor.Compose(img, instances, labels, feats)
	if err != nil {
		return nil, stageError(StageComposite, KindEncoding, err)
	}
	return report, nil
}

func checkImage(img image.Image) error {
	if img == nil || img.Bounds().Empty() {
		return stageError(StageInput, KindInput, ErrEmptyImage)
	}
	return nil
}
