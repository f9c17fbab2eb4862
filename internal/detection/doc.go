// Package detection holds the instance segmentation data model and the mask
// merger that turns raw detector output into one instance per lesion.
//
// # Data Model
//
// A RawInstance is what the detector reports: a floating point box, a
// 1-based class label, a confidence score and a ProbMap holding per-pixel
// probabilities at image resolution. A Mask is the binarized form of a
// ProbMap (probability strictly above BinarizeThreshold).
//
// # Merging
//
// Merger.Merge first drops instances whose score does not exceed
// ScoreThreshold. The survivors are then grouped greedily in input order:
// each unconsumed instance seeds a group and absorbs every later unconsumed
// instance of the same label whose mask overlaps the seed's original mask
// by more than IoUThreshold. Overlap is always measured against the seed,
// never against the growing union, so grouping is not transitive.
//
// A seed with an empty mask produces no instance and is reported in
// MergeResult.Dropped.
//
// The merged instance takes the union of its members' masks, the maximum
// member score and the seed's label. Its Box is recomputed as the tight box
// of the union mask.
//
// Only pairs whose mask boxes intersect can have a positive IoU, so
// candidate pairs are found through a flatbush spatial index instead of
// comparing every pair.
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//
// Box corners are inclusive.
package detection
