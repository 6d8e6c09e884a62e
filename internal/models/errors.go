package models

import (
	"errors"
	"fmt"
)

// Input errors: caller mistake or bad data. Never retried.
var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrCorruptDocument   = errors.New("corrupt document")
	ErrInvalidInput      = errors.New("invalid input")
)

// Transient upstream errors, surfaced after the retry budget is exhausted.
var (
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
	ErrSynthesisUnavailable = errors.New("answer service unavailable")
)

// StepError wraps a pipeline failure with the step it occurred in, so the API
// layer can produce precise diagnostics without leaking internals.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// FailStep wraps err with the named pipeline step.
func FailStep(step string, err error) error {
	return &StepError{Step: step, Err: err}
}
