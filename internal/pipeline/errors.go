package pipeline

import (
	"errors"
	"fmt"
)

// Stage names the step of an analysis that failed. Feature extraction has no
// stage: its failures only null out one instance's record.
type Stage string

const (
	StageInput     Stage = "input"
	StageDetect    Stage = "detect"
	StageMerge     Stage = "merge"
	StageClassify  Stage = "classify"
	StageComposite Stage = "composite"
)

// Kind separates malformed input from backend failures so callers know
// whether a retry can help.
type Kind int

const (
	KindInput Kind = iota
	KindDetector
	KindClassificationBackend
	KindEncoding
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input error"
	case KindDetector:
		return "detector error"
	case KindClassificationBackend:
		return "classification backend error"
	case KindEncoding:
		return "encoding error"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// StageError is a request-fatal failure with the stage it happened in.
type StageError struct {
	Stage Stage
	Kind  Kind
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v: %v", e.Stage, e.Kind, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure came from a backend rather than
// from the request itself.
func (e *StageError) Retryable() bool {
	return e.Kind == KindDetector || e.Kind == KindClassificationBackend
}

func stageError(stage Stage, kind Kind, err error) error {
	return &StageError{Stage: stage, Kind: kind, Err: err}
}

// AsStageError extracts a StageError from err's chain.
func AsStageError(err error) (*StageError, bool) {
	var se *StageError
	ok := errors.As(err, &se)
	return se, ok
}
