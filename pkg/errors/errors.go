package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents different types of errors in the system
type ErrorType string

const (
	// ErrorTypeNotFound indicates a resource was not found
	ErrorTypeNotFound ErrorType = "NOT_FOUND"

	// ErrorTypeInvalidState indicates the operation is not legal for the current status
	ErrorTypeInvalidState ErrorType = "INVALID_STATE"

	// ErrorTypePreconditionFailed indicates a required field is missing or a field is not
	// writable for the current status and actor
	ErrorTypePreconditionFailed ErrorType = "PRECONDITION_FAILED"

	// ErrorTypeInvalidInput indicates a negative or malformed value
	ErrorTypeInvalidInput ErrorType = "INVALID_INPUT"

	// ErrorTypeAmountMismatch indicates a payment amount differs from the quote total
	ErrorTypeAmountMismatch ErrorType = "AMOUNT_MISMATCH"

	// ErrorTypeStorageUnavailable indicates a transient storage failure
	ErrorTypeStorageUnavailable ErrorType = "STORAGE_UNAVAILABLE"

	// ErrorTypeValidation indicates a validation error
	ErrorTypeValidation ErrorType = "VALIDATION"

	// ErrorTypeConflict indicates a conflict with existing data
	ErrorTypeConflict ErrorType = "CONFLICT"

	// ErrorTypeUnauthorized indicates unauthorized access
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"

	// ErrorTypeInternal indicates an internal server error
	ErrorTypeInternal ErrorType = "INTERNAL"

	// ErrorTypeExternal indicates an error from external service
	ErrorTypeExternal ErrorType = "EXTERNAL"
)

// AppError represents an application error
type AppError struct {
	Type    ErrorType
	Message string
	// Field names the offending input field, if any.
	Field string
	Err   error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements the unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) *AppError {
	return &AppError{Type: ErrorTypeNotFound, Message: message}
}

// NewInvalidStateError creates an error for an operation illegal in the current status
func NewInvalidStateError(message string) *AppError {
	return &AppError{Type: ErrorTypeInvalidState, Message: message}
}

// NewPreconditionFailedError creates an error naming the missing or illegal field
func NewPreconditionFailedError(field, message string) *AppError {
	return &AppError{Type: ErrorTypePreconditionFailed, Field: field, Message: message}
}

// NewInvalidInputError creates an error for a negative or malformed field
func NewInvalidInputError(field, message string) *AppError {
	return &AppError{Type: ErrorTypeInvalidInput, Field: field, Message: message}
}

// NewAmountMismatchError creates a payment reconciliation error
func NewAmountMismatchError(amount, total int64) *AppError {
	return &AppError{
		Type:    ErrorTypeAmountMismatch,
		Field:   "amount",
		Message: fmt.Sprintf("payment amount %d does not match quote total %d", amount, total),
	}
}

// NewStorageUnavailableError creates a transient storage error
func NewStorageUnavailableError(message string, err error) *AppError {
	return &AppError{Type: ErrorTypeStorageUnavailable, Message: message, Err: err}
}

// NewValidationError creates a new validation error
func NewValidationError(message string) *AppError {
	return &AppError{Type: ErrorTypeValidation, Message: message}
}

// NewConflictError creates a new conflict error
func NewConflictError(message string) *AppError {
	return &AppError{Type: ErrorTypeConflict, Message: message}
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError(message string) *AppError {
	return &AppError{Type: ErrorTypeUnauthorized, Message: message}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return &AppError{Type: ErrorTypeInternal, Message: message, Err: err}
}

// NewExternalError creates a new external service error
func NewExternalError(message string, err error) *AppError {
	return &AppError{Type: ErrorTypeExternal, Message: message, Err: err}
}

// As returns the first AppError in err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// TypeOf returns the ErrorType of err, or ErrorTypeInternal when err is not an AppError.
func TypeOf(err error) ErrorType {
	if appErr, ok := As(err); ok {
		return appErr.Type
	}
	return ErrorTypeInternal
}

// IsType reports whether err carries the given ErrorType.
func IsType(err error, t ErrorType) bool {
	if err == nil {
		return false
	}
	return TypeOf(err) == t
}
