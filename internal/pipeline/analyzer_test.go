package pipeline

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/lesion-mcp/internal/annotate"
	"github.com/ironsheep/lesion-mcp/internal/classify"
	"github.com/ironsheep/lesion-mcp/internal/detection"
	"github.com/ironsheep/lesion-mcp/internal/features"
)

type fakeClassifier struct {
	calls int
	seen  int
	err   error
}

func (f *fakeClassifier) Classify(_ context.Context, _ image.Image, instances []detection.MergedInstance) ([]classify.Label, error) {
	f.calls++
	f.seen = len(instances)
	if f.err != nil {
		return nil, f.err
	}
	out := make([]classify.Label, len(instances))
	for i := range out {
		out[i] = classify.Malignant
	}
	return out, nil
}

type fakeDetector struct {
	raw []detection.RawInstance
	err error
}

func (f *fakeDetector) Detect(context.Context, image.Image) ([]detection.RawInstance, error) {
	return f.raw, f.err
}

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 128, 255})
		}
	}
	return img
}

func square(w, h, x1, y1, size, label int, score float64) detection.RawInstance {
	pm := detection.NewProbMap(w, h)
	for y := y1; y < y1+size; y++ {
		for x := x1; x < x1+size; x++ {
			pm.Set(x, y, 1)
		}
	}
	return detection.RawInstance{
		Box:   detection.BoxF{X1: float64(x1), Y1: float64(y1), X2: float64(x1 + size - 1), Y2: float64(y1 + size - 1)},
		Label: label,
		Score: score,
		Mask:  pm,
	}
}

func newTestAnalyzer(t *testing.T, cl LesionClassifier, det Detector) *Analyzer {
	log := logs.NewTestingLog(t)
	return NewAnalyzer(log, Components{
		Detector:   det,
		Merger:     detection.NewMerger(),
		Classifier: cl,
		Extractor:  features.NewExtractor(),
		Compositor: annotate.NewCompositor(log, []string{"calc", "mass"}),
	})
}

func TestAnalyze_NoDetections(t *testing.T) {
	cl := &fakeClassifier{}
	a := newTestAnalyzer(t, cl, nil)

	// Spacing is not needed when there is nothing to measure.
	report, err := a.Analyze(context.Background(), testImage(120, 100), nil, features.Spacing{})
	require.NoError(t, err)
	assert.False(t, report.Detections)
	assert.Equal(t, annotate.StatusSuccess, report.Status)
	assert.NotEmpty(t, report.FullImage)
	assert.Zero(t, cl.calls)
}

func TestAnalyze_AllBelowThreshold(t *testing.T) {
	cl := &fakeClassifier{}
	a := newTestAnalyzer(t, cl, nil)

	raw := []detection.RawInstance{square(120, 100, 10, 10, 20, 2, 0.5), square(120, 100, 60, 60, 20, 1, 0.3)}
	report, err := a.Analyze(context.Background(), testImage(120, 100), raw, features.Isotropic(0.1))
	require.NoError(t, err)
	assert.False(t, report.Detections)
	assert.Zero(t, cl.calls)
}

func TestAnalyze_MergesAndReports(t *testing.T) {
	cl := &fakeClassifier{}
	a := newTestAnalyzer(t, cl, nil)

	raw := []detection.RawInstance{
		square(200, 120, 10, 10, 50, 2, 0.9),
		square(200, 120, 35, 10, 50, 2, 0.8),
		square(200, 120, 150, 80, 3, 1, 0.95), // too small for features
	}
	report, err := a.Analyze(context.Background(), testImage(200, 120), raw, features.Isotropic(0.1))
	require.NoError(t, err)

	require.True(t, report.Detections)
	assert.Equal(t, 1, cl.calls)
	assert.Equal(t, 2, cl.seen)
	require.Len(t, report.IndividualPredictions, 2)

	mass := report.IndividualPredictions[0]
	assert.Equal(t, "mass", mass.Label)
	assert.Equal(t, 0.9, mass.Score)
	assert.Equal(t, classify.Malignant, mass.Classification)
	assert.Equal(t, detection.Box{X1: 10, Y1: 10, X2: 84, Y2: 59}, mass.Box)
	require.NotNil(t, mass.Features)
	assert.Equal(t, 3750, mass.Features.PixelCount)
	assert.InDelta(t, 37.5, mass.Features.Morphology.AreaMM2, 1e-9)

	assert.Equal(t, "calc", report.IndividualPredictions[1].Label)
	assert.Nil(t, report.IndividualPredictions[1].Features)
	assert.NotEmpty(t, report.FullNormalImage)
}

func TestAnalyze_ClassificationBackendIsFatal(t *testing.T) {
	boom := errors.New("connection refused")
	a := newTestAnalyzer(t, &fakeClassifier{err: boom}, nil)

	raw := []detection.RawInstance{square(100, 100, 10, 10, 30, 1, 0.9)}
	_, err := a.Analyze(context.Background(), testImage(100, 100), raw, features.Isotropic(1))
	require.Error(t, err)

	se, ok := AsStageError(err)
	require.True(t, ok)
	assert.Equal(t, StageClassify, se.Stage)
	assert.Equal(t, KindClassificationBackend, se.Kind)
	assert.True(t, se.Retryable())
	assert.ErrorIs(t, err, boom)
}

func TestAnalyze_InputErrors(t *testing.T) {
	a := newTestAnalyzer(t, &fakeClassifier{}, nil)
	raw := []detection.RawInstance{square(100, 100, 10, 10, 30, 1, 0.9)}

	tests := []struct {
		name    string
		img     image.Image
		raw     []detection.RawInstance
		spacing features.Spacing
		stage   Stage
		target  error
	}{
		{"nil image", nil, raw, features.Isotropic(1), StageInput, ErrEmptyImage},
		{"missing spacing", testImage(100, 100), raw, features.Spacing{}, StageInput, features.ErrInvalidSpacing},
		{"mask size", testImage(90, 100), raw, features.Isotropic(1), StageInput, detection.ErrMaskSize},
		{"no mask", testImage(100, 100), []detection.RawInstance{{Label: 1, Score: 0.9}}, features.Isotropic(1), StageMerge, detection.ErrMissingMask},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Analyze(context.Background(), tt.img, tt.raw, tt.spacing)
			se, ok := AsStageError(err)
			require.True(t, ok, "got %v", err)
			assert.Equal(t, tt.stage, se.Stage)
			assert.Equal(t, KindInput, se.Kind)
			assert.False(t, se.Retryable())
			assert.ErrorIs(t, err, tt.target)
		})
	}
}

func TestDetectAndAnalyze(t *testing.T) {
	img := testImage(100, 100)

	t.Run("detector output is analysed", func(t *testing.T) {
		det := &fakeDetector{raw: []detection.RawInstance{square(100, 100, 20, 20, 30, 2, 0.8)}}
		a := newTestAnalyzer(t, &fakeClassifier{}, det)

		report, err := a.DetectAndAnalyze(context.Background(), img, features.Isotropic(0.05))
		require.NoError(t, err)
		assert.True(t, report.Detections)
		assert.Len(t, report.IndividualPredictions, 1)
	})

	t.Run("detector failure", func(t *testing.T) {
		a := newTestAnalyzer(t, &fakeClassifier{}, &fakeDetector{err: errors.New("timeout")})

		_, err := a.DetectAndAnalyze(context.Background(), img, features.Isotropic(0.05))
		se, ok := AsStageError(err)
		require.True(t, ok)
		assert.Equal(t, StageDetect, se.Stage)
		assert.Equal(t, KindDetector, se.Kind)
	})

	t.Run("no detector", func(t *testing.T) {
		a := newTestAnalyzer(t, &fakeClassifier{}, nil)
		_, err := a.DetectAndAnalyze(context.Background(), img, features.Isotropic(0.05))
		assert.Error(t, err)
	})
}

func TestStageError_Message(t *testing.T) {
	err := stageError(StageClassify, KindClassificationBackend, errors.New("503"))
	assert.Equal(t, "classify stage: classification backend error: 503", err.Error())
}
