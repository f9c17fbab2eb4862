// Package pipeline runs a lesion analysis end to end: confidence filtering
// and mask merging, then classification and feature extraction side by
// side, then compositing of the annotated report.
//
// Failures that make the whole request meaningless (bad input, detector or
// classification backend errors) come back as *StageError. Failures local to
// one lesion, such as a mask with no region left after cleanup, only leave
// that lesion's features empty.
package pipeline
