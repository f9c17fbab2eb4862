package detection

import (
	"errors"
	"fmt"
	"sort"

	flatbush "github.com/bmharper/flatbush-go"
)

// Default merge parameters.
const (
	DefaultIoUThreshold   = 0.0
	DefaultScoreThreshold = 0.5
)

var (
	// ErrMissingMask is returned when a raw instance carries no mask.
	ErrMissingMask = errors.New("instance has no mask")

	// ErrMaskSize is returned when instance masks disagree on their dimensions.
	ErrMaskSize = errors.New("instance masks differ in size")
)

// Merger collapses overlapping same-label instances into single lesions.
//
// Grouping is a single greedy pass in detector order. An unconsumed instance
// i seeds a group, and every later unconsumed instance j with the same label
// joins it when IoU(mask_i, mask_j) > IoUThreshold. Membership is tested
// against the seed's own mask only, so overlap is not transitive: if j
// touches i and k touches j but not i, k stays out of i's group.
type Merger struct {
	// IoUThreshold is the overlap a candidate must strictly exceed.
	IoUThreshold float64

	// ScoreThreshold discards instances whose score does not strictly exceed it.
	ScoreThreshold float64
}

// NewMerger returns a merger with the default thresholds.
func NewMerger() *Merger {
	return &Merger{
		IoUThreshold:   DefaultIoUThreshold,
		ScoreThreshold: DefaultScoreThreshold,
	}
}

// MergeResult is the output of a merge pass.
type MergeResult struct {
	// Instances are the merged lesions in seed order.
	Instances []MergedInstance

	// Filtered counts raw instances removed by the confidence threshold.
	Filtered int

	// Dropped lists seeds whose binarized mask was empty. Indices refer to
	// the confidence-filtered list.
	Dropped []int
}

// Merge filters raw by confidence and merges the survivors.
func (m *Merger) Merge(raw []RawInstance) (*MergeResult, error) {
	kept := FilterByScore(raw, m.ScoreThreshold)
	res := &MergeResult{Filtered: len(raw) - len(kept)}
	if len(kept) == 0 {
		return res, nil
	}

	masks, bounds, err := binarizeAll(kept)
	if err != nil {
		return nil, err
	}

	neighbours := m.candidates(bounds)
	consumed := make([]bool, len(kept))

	for i := range kept {
		if consumed[i] {
			continue
		}
		consumed[i] = true
		if bounds[i] == nil {
			res.Dropped = append(res.Dropped, i)
			continue
		}

		group := []int{i}
		merged := masks[i].Clone()
		score := kept[i].Score
		for _, j := range neighbours[i] {
			if consumed[j] || kept[j].Label != kept[i].Label {
				continue
			}
			if masks[i].IoU(masks[j]) > m.IoUThreshold {
				consumed[j] = true
				group = append(group, j)
				merged.Or(masks[j])
				score = max(score, kept[j].Score)
			}
		}

		res.Instances = append(res.Instances, MergedInstance{
			Box:     merged.TightBox(),
			Label:   kept[i].Label,
			Score:   score,
			Mask:    merged,
			Members: group,
		})
	}

	return res, nil
}

// binarizeAll thresholds every mask and computes its tight box.
// bounds[i] is nil for an empty mask.
func binarizeAll(kept []RawInstance) ([]*Mask, []*Box, error) {
	masks := make([]*Mask, len(kept))
	bounds := make([]*Box, len(kept))

	var width, height int
	for i, in := range kept {
		if in.Mask == nil {
			return nil, nil, fmt.Errorf("instance %d: %w", i, ErrMissingMask)
		}
		if i == 0 {
			width, height = in.Mask.Width, in.Mask.Height
		} else if in.Mask.Width != width || in.Mask.Height != height {
			return nil, nil, fmt.Errorf("instance %d is %dx%d, want %dx%d: %w",
				i, in.Mask.Width, in.Mask.Height, width, height, ErrMaskSize)
		}

		masks[i] = in.Mask.Binarize(BinarizeThreshold)
		if b, ok := masks[i].Bounds(); ok {
			bounds[i] = &b
		}
	}
	return masks, bounds, nil
}

// candidates returns, for each instance, the later instances whose mask box
// touches its own, in ascending order. Masks with disjoint boxes have an IoU
// of 0 and can only merge under a negative threshold, in which case every
// later instance is a candidate.
func (m *Merger) candidates(bounds []*Box) [][]int {
	out := make([][]int, len(bounds))

	if m.IoUThreshold < 0 {
		for i := range bounds {
			for j := i + 1; j < len(bounds); j++ {
				out[i] = append(out[i], j)
			}
		}
		return out
	}

	fb := flatbush.NewFlatbush[int32]()
	fb.Reserve(len(bounds))
	for _, b := range bounds {
		if b == nil {
			// Empty masks sit outside the image so no search can reach them.
			fb.Add(-2, -2, -2, -2)
			continue
		}
		fb.Add(int32(b.X1), int32(b.Y1), int32(b.X2+1), int32(b.Y2+1))
	}
	fb.Finish()

	for i, b := range bounds {
		if b == nil {
			continue
		}
		for _, j := range fb.Search(int32(b.X1), int32(b.Y1), int32(b.X2+1), int32(b.Y2+1)) {
			if j > i {
				out[i] = append(out[i], j)
			}
		}
		sort.Ints(out[i])
	}
	return out
}
