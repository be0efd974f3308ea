package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Failure taxonomy for the extraction pipeline. All of these are recoverable
// and scoped to the affected page, field, or record; only ErrDocumentOpen is
// fatal, and only for the one document it names.
var (
	ErrDocumentOpen       = errors.New("document cannot be opened")
	ErrRenderFailure      = errors.New("page image could not be produced")
	ErrAcquisitionFailure = errors.New("page text could not be acquired")
	ErrPatternMiss        = errors.New("required field had no match")
	ErrParseFailure       = errors.New("matched text could not be normalized")
	ErrGroupingFailure    = errors.New("record lacks a usable grouping key")

	ErrInvalidInput = errors.New("invalid input")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
