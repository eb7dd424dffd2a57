package services

import (
	"errors"
	"fmt"

	"result-verification-system/models"
)

var (
	ErrNotFound               = errors.New("not found")
	ErrInvalidSubmissionState = errors.New("invalid submission state")
	ErrDisputeAlreadyResolved = errors.New("dispute already resolved")
	ErrValidation             = errors.New("validation failed")
	ErrPermissionDenied       = errors.New("permission denied")
	ErrConflict               = errors.New("concurrent update conflict")
)

// NotFoundError reports a missing submission or dispute.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// InvalidSubmissionStateError reports an operation attempted from an illegal status.
type InvalidSubmissionStateError struct {
	SubmissionID string
	Status       models.SubmissionStatus
	Operation    string
}

func (e *InvalidSubmissionStateError) Error() string {
	return fmt.Sprintf("cannot %s submission %s in status %s", e.Operation, e.SubmissionID, e.Status)
}

func (e *InvalidSubmissionStateError) Is(target error) bool {
	return target == ErrInvalidSubmissionState
}

// DisputeAlreadyResolvedError reports an attempt to change a closed dispute.
type DisputeAlreadyResolvedError struct {
	DisputeID string
	Status    models.DisputeStatus
}

func (e *DisputeAlreadyResolvedError) Error() string {
	return fmt.Sprintf("dispute %s is already %s", e.DisputeID, e.Status)
}

func (e *DisputeAlreadyResolvedError) Is(target error) bool {
	return target == ErrDisputeAlreadyResolved
}

// ValidationError reports missing or malformed input.
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

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// PermissionDeniedError reports an actor without organizer authority.
type PermissionDeniedError struct {
	UserID string
	Action string
}

func (e *PermissionDeniedError) Error() string {
	if e.UserID == "" {
		return fmt.Sprintf("anonymous caller may not %s", e.Action)
	}
	return fmt.Sprintf("user %s may not %s", e.UserID, e.Action)
}

func (e *PermissionDeniedError) Is(target error) bool { return target == ErrPermissionDenied }

// ConflictError reports a status change lost to a concurrent writer that left
// the record in a non-terminal state. Callers may retry.
type ConflictError struct {
	Entity  string
	ID      string
	Current string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %s changed concurrently (now %s)", e.Entity, e.ID, e.Current)
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// ErrorCode returns the stable machine-readable code for a domain error.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidSubmissionState):
		return "invalid_submission_state"
	case errors.Is(err, ErrDisputeAlreadyResolved):
		return "dispute_already_resolved"
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, ErrConflict):
		return "conflict"
	default:
		return "internal_error"
	}
}
