package query

import (
	"errors"
	"fmt"
)

// Stage names a step of the question pipeline.
type Stage string

const (
	StageRetrieval  Stage = "retrieval"
	StageValidation Stage = "validation"
	StageGeneration Stage = "generation"
)

var (
	ErrRetrieval     = errors.New("retrieval failed")
	ErrValidation    = errors.New("validation service failed")
	ErrGeneration    = errors.New("generation service failed")
	ErrEmptyQuestion = errors.New("question is empty")
)

// StageError reports which pipeline stage failed. It matches the stage's
// sentinel with errors.Is and unwraps to the underlying cause.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func (e *StageError) Is(target error) bool {
	switch e.Stage {
	case StageRetrieval:
		return target == ErrRetrieval
	case StageValidation:
		return target == ErrValidation
	case StageGeneration:
		return target == ErrGeneration
	}
	return false
}

func stageError(stage Stage, err error) error {
	var se *StageError
	if errors.As(err, &se) {
		return err
	}
	return &StageError{Stage: stage, Err: err}
}
