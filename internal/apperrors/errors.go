// Package apperrors defines the error taxonomy shared by the audit
// lifecycle core. Handlers translate these into HTTP status codes;
// services use the As* helpers instead of string matching.
package apperrors

import (
	"errors"
	"fmt"
)

// NotFoundError marks a missing audit, document or technical section.
type NotFoundError struct {
	Resource string
	ID       int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}

// NewNotFound builds a NotFoundError for the given resource kind.
func NewNotFound(resource string, id int64) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// InvalidTransitionError marks a requested state change outside the
// transition table. The graph is enforced unconditionally.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid audit state transition from %q to %q", e.From, e.To)
}

// ValidationError is a per-file rejection. It never aborts the rest of
// the ingestion batch.
type ValidationError struct {
	Filename string
	Reason   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("file %q rejected: %s", e.Filename, e.Reason)
}

// PermissionError marks an actor lacking rights over an audit.
type PermissionError struct {
	ActorID int64
	AuditID int64
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("actor %d has no rights over audit %d", e.ActorID, e.AuditID)
}

// ConflictError marks a concurrent mutation detected at write time.
// Callers may retry the operation.
type ConflictError struct {
	Resource string
	ID       int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("concurrent update on %s %d, retry", e.Resource, e.ID)
}

// StorageError wraps a failed object-store operation.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsInvalidTransition reports whether err is an InvalidTransitionError.
func IsInvalidTransition(err error) bool {
	var target *InvalidTransitionError
	return errors.As(err, &target)
}

// IsPermission reports whether err is a PermissionError.
func IsPermission(err error) bool {
	var target *PermissionError
	return errors.As(err, &target)
}

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}
