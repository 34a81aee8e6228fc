package models

import (
	"errors"
	"fmt"
)

// ErrEvaluationCancelled is returned when answer grading was aborted.
// It is an expected outcome: no scheduling update happens.
var ErrEvaluationCancelled = errors.New("evaluation cancelled")

type NotFoundError struct {
	Kind string // "category", "question"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// CycleError reports a reparent that would make a category its own ancestor.
type CycleError struct {
	ID       string
	ParentID string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("moving category %q under %q would create a cycle", e.ID, e.ParentID)
}

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// StorageError wraps a failure of the persistence port.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// ErrorCode maps an error to the code used by JSON surfaces.
func ErrorCode(err error) string {
	var nf *NotFoundError
	var ce *CycleError
	var ve *ValidationError
	var se *StorageError
	switch {
	case errors.As(err, &nf):
		return "NOT_FOUND"
	case errors.As(err, &ce):
		return "CYCLE"
	case errors.As(err, &ve):
		return "VALIDATION_ERROR"
	case errors.As(err, &se):
		return "STORAGE_ERROR"
	case errors.Is(err, ErrEvaluationCancelled):
		return "EVALUATION_CANCELLED"
	default:
		return "INTERNAL_ERROR"
	}
}
