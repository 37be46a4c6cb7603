// Package errors defines the typed error taxonomy shared by the simulation
// core.  Callers classify failures with errors.Is/As instead of string
// comparison.
package errors

import (
	"errors"
	"fmt"
)

// Type classifies a core error.
type Type string

const (
	TypeValidation Type = "validation"
	TypeNotFound   Type = "not_found"
	TypeConflict   Type = "conflict"
	TypeAllocation Type = "allocation_failed"
	TypeCancelled  Type = "cancelled"
	TypeInternal   Type = "internal"
)

// CoreError is a structured error with a type and optional context values.
type CoreError struct {
	Type    Type
	Message string
	Cause   error
	Context map[string]interface{}
}

func (e *CoreError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *CoreError) Unwrap() error {
	return e.Cause
}

// Is matches another *CoreError by type only, so sentinel-style checks work
// with errors.Is.
func (e *CoreError) Is(target error) bool {
	if other, ok := target.(*CoreError); ok {
		return e.Type == other.Type
	}
	return false
}

// WithContext attaches a context value and returns the error for chaining.
func (e *CoreError) WithContext(key string, value interface{}) *CoreError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a core error of the given type.
func New(errorType Type, message string, cause error) *CoreError {
	return &CoreError{Type: errorType, Message: message, Cause: cause}
}

func NewValidationError(message string, cause error) *CoreError {
	return New(TypeValidation, message, cause)
}

func NewNotFoundError(message string, cause error) *CoreError {
	return New(TypeNotFound, message, cause)
}

func NewConflictError(message string, cause error) *CoreError {
	return New(TypeConflict, message, cause)
}

func NewAllocationError(message string, cause error) *CoreError {
	return New(TypeAllocation, message, cause)
}

func NewCancelledError(message string, cause error) *CoreError {
	return New(TypeCancelled, message, cause)
}

func NewInternalError(message string, cause error) *CoreError {
	return New(TypeInternal, message, cause)
}

func isType(err error, errorType Type) bool {
	var coreErr *CoreError
	return errors.As(err, &coreErr) && coreErr.Type == errorType
}

func IsValidationError(err error) bool { return isType(err, TypeValidation) }

func IsNotFoundError(err error) bool { return isType(err, TypeNotFound) }

func IsConflictError(err error) bool { return isType(err, TypeConflict) }

func IsAllocationError(err error) bool { return isType(err, TypeAllocation) }

func IsCancelledError(err error) bool { return isType(err, TypeCancelled) }

func IsInternalError(err error) bool { return isType(err, TypeInternal) }
