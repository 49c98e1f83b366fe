// Package apperrors defines the domain error taxonomy shared by services and handlers.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound               = errors.New("not found")
	ErrForbidden              = errors.New("forbidden")
	ErrValidation             = errors.New("validation failed")
	ErrStateConflict          = errors.New("state conflict")
	ErrDependencyFailed       = errors.New("dependency failed")
	ErrCredentialsKeyMismatch = errors.New("stored secrets were encrypted with a different key")

	// ErrNotAssignmentOwner is returned when a writer acts on an assignment owned by someone else.
	ErrNotAssignmentOwner = fmt.Errorf("%w: assignment belongs to another writer", ErrForbidden)
)

// Conflict codes surfaced to clients so they can render "no longer actionable" states.
var (
	ErrAssignmentCompleted = &ConflictError{
		Code:    "assignment_completed",
		Message: "assignment is already completed",
	}
	ErrSubmissionPending = &ConflictError{
		Code:    "submission_pending",
		Message: "assignment already has a submission that is not awaiting a rewrite",
	}
	ErrSubmissionFinalized = &ConflictError{
		Code:    "submission_finalized",
		Message: "submission already has a final decision",
	}
	ErrSubmissionSuperseded = &ConflictError{
		Code:    "submission_superseded",
		Message: "submission is no longer the current submission for its assignment",
	}
	ErrWriterSuspended = &ConflictError{
		Code:    "writer_suspended",
		Message: "writer profile is suspended",
	}
)

// ConflictError is a guard violation in the submission lifecycle.
// errors.Is(err, ErrStateConflict) holds for every ConflictError.
type ConflictError struct {
	Code    string
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// Is reports ErrStateConflict as a match so callers can branch on the category.
func (e *ConflictError) Is(target error) bool {
	return target == ErrStateConflict
}

// ValidationError describes a malformed or missing input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is reports ErrValidation as a match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError creates a ValidationError for field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ConflictCode returns the conflict code carried by err, or "" if err is not a ConflictError.
func ConflictCode(err error) string {
	var conflict *ConflictError
	if errors.As(err, &conflict) {
		return conflict.Code
	}
	return ""
}
