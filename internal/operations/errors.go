package operations

import (
	"errors"
	"fmt"
)

// StageError reports which stage failed for which file
type StageError struct {
	Stage string `json:"stage"`
	File  string `json:"file"`
	Cause error  `json:"-"`
}

// NewStageError wraps cause with the stage and file it occurred in
func NewStageError(stage, file string, cause error) *StageError {
	return &StageError{Stage: stage, File: file, Cause: cause}
}

// Error implements the error interface
func (e *StageError) Error() string {
	if e == nil {
		return "unknown stage error"
	}
	return fmt.Sprintf("stage %s failed for %s: %v", e.Stage, e.File, e.Cause)
}

// Unwrap returns the underlying error
func (e *StageError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// FailedStage returns the stage recorded in err's chain
func FailedStage(err error) (string, bool) {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Stage, true
	}
	return "", false
}
