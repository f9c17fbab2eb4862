package detection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rectInstance builds a raw instance whose mask is a filled rectangle
// (inclusive corners) on a w x h field.
func rectInstance(w, h, x1, y1, x2, y2, label int, score float64) RawInstance {
	pm := NewProbMap(w, h)
	for y := y1; y <= y2; y++ {
		for x := x1; x <= x2; x++ {
			pm.Set(x, y, 0.9)
		}
	}
	return RawInstance{
		Box:   BoxF{X1: float64(x1), Y1: float64(y1), X2: float64(x2), Y2: float64(y2)},
		Label: label,
		Score: score,
		Mask:  pm,
	}
}

func TestMerge_OverlappingSquares(t *testing.T) {
	// Two 50x50 squares sharing a 25x50 strip: IoU = 1250/3750.
	a := rectInstance(200, 200, 10, 10, 59, 59, 2, 0.9)
	b := rectInstance(200, 200, 35, 10, 84, 59, 2, 0.8)

	res, err := NewMerger().Merge([]RawInstance{a, b})
	require.NoError(t, err)
	require.Len(t, res.Instances, 1)

	got := res.Instances[0]
	assert.Equal(t, 0.9, got.Score)
	assert.Equal(t, 3750, got.Area())
	assert.Equal(t, Box{X1: 10, Y1: 10, X2: 84, Y2: 59}, got.Box)
	assert.Equal(t, []int{0, 1}, got.Members)

	// The merged mask is exactly the union of the two inputs.
	ma := a.Mask.Binarize(BinarizeThreshold)
	mb := b.Mask.Binarize(BinarizeThreshold)
	for i := range got.Mask.Pix {
		require.Equal(t, ma.Pix[i] || mb.Pix[i], got.Mask.Pix[i], "pixel %d", i)
	}
}

func TestMerge_HigherScoreLater(t *testing.T) {
	a := rectInstance(100, 100, 10, 10, 40, 40, 1, 0.6)
	b := rectInstance(100, 100, 20, 20, 50, 50, 1, 0.95)

	res, err := NewMerger().Merge([]RawInstance{a, b})
	require.NoError(t, err)
	require.Len(t, res.Instances, 1)
	assert.Equal(t, 0.95, res.Instances[0].Score)
}

func TestMerge_DifferentLabelsNeverMerge(t *testing.T) {
	a := rectInstance(100, 100, 10, 10, 40, 40, 1, 0.9)
	b := rectInstance(100, 100, 10, 10, 40, 40, 2, 0.9)

	res, err := NewMerger().Merge([]RawInstance{a, b})
	require.NoError(t, err)
	require.Len(t, res.Instances, 2)
	assert.Equal(t, 1, res.Instances[0].Label)
	assert.Equal(t, 2, res.Instances[1].Label)
}

func TestMerge_EmptyInput(t *testing.T) {
	res, err := NewMerger().Merge(nil)
	require.NoError(t, err)
	assert.Empty(t, res.Instances)
	assert.Zero(t, res.Filtered)
}

func TestMerge_SingleInstanceUsesMaskBox(t *testing.T) {
	in := rectInstance(100, 100, 20, 30, 40, 50, 1, 0.7)
	// Detector box is looser than the mask.
	in.Box = BoxF{X1: 15.5, Y1: 25.2, X2: 44.9, Y2: 55.1}

	res, err := NewMerger().Merge([]RawInstance{in})
	require.NoError(t, err)
	require.Len(t, res.Instances, 1)
	assert.Equal(t, Box{X1: 20, Y1: 30, X2: 40, Y2: 50}, res.Instances[0].Box)
	assert.Equal(t, 0.7, res.Instances[0].Score)
}

func TestMerge_GreedyNotTransitive(t *testing.T) {
	// a overlaps b, b overlaps c, a and c are disjoint.
	a := rectInstance(100, 40, 0, 0, 19, 19, 1, 0.9)
	b := rectInstance(100, 40, 15, 0, 34, 19, 1, 0.8)
	c := rectInstance(100, 40, 30, 0, 49, 19, 1, 0.7)

	res, err := NewMerger().Merge([]RawInstance{a, b, c})
	require.NoError(t, err)

	// c is tested against a's mask only, so it seeds its own group.
	require.Len(t, res.Instances, 2)
	assert.Equal(t, []int{0, 1}, res.Instances[0].Members)
	assert.Equal(t, Box{X1: 0, Y1: 0, X2: 34, Y2: 19}, res.Instances[0].Box)
	assert.Equal(t, []int{2}, res.Instances[1].Members)
	assert.Equal(t, 0.7, res.Instances[1].Score)
}

func TestMerge_ConsumedInstanceCannotSeed(t *testing.T) {
	// b joins a; c overlaps b but not a. b is consumed, so c cannot join b.
	a := rectInstance(100, 40, 0, 0, 19, 19, 1, 0.9)
	c := rectInstance(100, 40, 30, 0, 49, 19, 1, 0.7)
	b := rectInstance(100, 40, 15, 0, 34, 19, 1, 0.8)

	res, err := NewMerger().Merge([]RawInstance{a, c, b})
	require.NoError(t, err)
	require.Len(t, res.Instances, 2)
	assert.Equal(t, []int{0, 2}, res.Instances[0].Members)
	assert.Equal(t, []int{1}, res.Instances[1].Members)
}

func TestMerge_IoUThreshold(t *testing.T) {
	a := rectInstance(200, 200, 10, 10, 59, 59, 1, 0.9)
	b := rectInstance(200, 200, 35, 10, 84, 59, 1, 0.8)

	m := NewMerger()
	m.IoUThreshold = 0.5

	res, err := m.Merge([]RawInstance{a, b})
	require.NoError(t, err)
	assert.Len(t, res.Instances, 2, "IoU of 1/3 must not pass a 0.5 threshold")
}

func TestMerge_TouchingButNotOverlapping(t *testing.T) {
	a := rectInstance(100, 100, 0, 0, 9, 9, 1, 0.9)
	b := rectInstance(100, 100, 10, 0, 19, 9, 1, 0.9)

	res, err := NewMerger().Merge([]RawInstance{a, b})
	require.NoError(t, err)
	assert.Len(t, res.Instances, 2)
}

func TestMerge_NegativeThresholdMergesDisjoint(t *testing.T) {
	a := rectInstance(100, 100, 0, 0, 9, 9, 1, 0.9)
	b := rectInstance(100, 100, 50, 50, 59, 59, 1, 0.9)

	m := NewMerger()
	m.IoUThreshold = -1

	res, err := m.Merge([]RawInstance{a, b})
	require.NoError(t, err)
	require.Len(t, res.Instances, 1)
	assert.Equal(t, 200, res.Instances[0].Area())
}

func TestMerge_ScoreFilter(t *testing.T) {
	a := rectInstance(50, 50, 0, 0, 9, 9, 1, 0.5)
	b := rectInstance(50, 50, 20, 20, 29, 29, 1, 0.51)
	c := rectInstance(50, 50, 30, 30, 39, 39, 1, 0.2)

	res, err := NewMerger().Merge([]RawInstance{a, b, c})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Filtered)
	require.Len(t, res.Instances, 1)
	assert.Equal(t, 0.51, res.Instances[0].Score)
}

func TestMerge_DropsEmptySeed(t *testing.T) {
	empty := RawInstance{Label: 1, Score: 0.9, Mask: NewProbMap(40, 40)}
	weak := RawInstance{Label: 1, Score: 0.9, Mask: NewProbMap(40, 40)}
	for i := range weak.Mask.Values {
		weak.Mask.Values[i] = 0.5 // not strictly above the binarize threshold
	}
	solid := rectInstance(40, 40, 5, 5, 10, 10, 1, 0.8)

	res, err := NewMerger().Merge([]RawInstance{empty, weak, solid})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, res.Dropped)
	require.Len(t, res.Instances, 1)
	assert.Equal(t, []int{2}, res.Instances[0].Members)
}

func TestMerge_Errors(t *testing.T) {
	t.Run("missing mask", func(t *testing.T) {
		_, err := NewMerger().Merge([]RawInstance{{Label: 1, Score: 0.9}})
		assert.ErrorIs(t, err, ErrMissingMask)
	})

	t.Run("size mismatch", func(t *testing.T) {
		a := rectInstance(50, 50, 0, 0, 5, 5, 1, 0.9)
		b := rectInstance(60, 50, 0, 0, 5, 5, 1, 0.9)
		_, err := NewMerger().Merge([]RawInstance{a, b})
		assert.ErrorIs(t, err, ErrMaskSize)
	})
}
