package errs

import (
	"errors"
	"fmt"
)

// ValidationError reports bad input. Its message is safe to show verbatim
// to the end user.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// Validation creates a ValidationError for a field
func Validation(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NotFoundError reports that a referenced entity does not exist
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

// NotFound creates a NotFoundError
func NotFound(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// ConflictError reports a state-machine precondition violation, e.g.
// reviewing a transaction that has already reached a terminal status.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// Conflict creates a ConflictError
func Conflict(message string) error {
	return &ConflictError{Message: message}
}

// DependencyError reports that the datastore or notification channel failed.
// Its cause is logged server-side and never shown to the end user.
type DependencyError struct {
	Op    string
	Cause error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Cause)
}

func (e *DependencyError) Unwrap() error {
	return e.Cause
}

// Dependency wraps a failure of an external collaborator
func Dependency(op string, cause error) error {
	return &DependencyError{Op: op, Cause: cause}
}

// SecurityError reports an OTP or credential check failure. The message is
// deliberately generic so callers cannot tell which specific check failed.
type SecurityError struct {
	Message string
}

func (e *SecurityError) Error() string {
	return e.Message
}

// Security creates a SecurityError
func Security(message string) error {
	return &SecurityError{Message: message}
}

// IsValidation reports whether err is a ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is a NotFoundError
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsConflict reports whether err is a ConflictError
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// IsDependency reports whether err is a DependencyError
func IsDependency(err error) bool {
	var de *DependencyError
	return errors.As(err, &de)
}

// IsSecurity reports whether err is a SecurityError
func IsSecurity(err error) bool {
	var se *SecurityError
	return errors.As(err, &se)
}
