// Package errors is the error vocabulary shared across symlog. It re-exports
// github.com/cockroachdb/errors and maps domain failures to HTTP responses.
package errors

import (
	"net/http"

	crdb "github.com/cockroachdb/errors"
)

var (
	New       = crdb.New
	Newf      = crdb.Newf
	Wrap      = crdb.Wrap
	Wrapf     = crdb.Wrapf
	WithHint  = crdb.WithHint
	WithHintf = crdb.WithHintf
	Is        = crdb.Is
	As        = crdb.As
	Unwrap    = crdb.Unwrap

	GetAllHints  = crdb.GetAllHints
	FlattenHints = crdb.FlattenHints
)

// Common sentinel errors
var (
	ErrInvalidInput  = New("invalid input")
	ErrNotFound      = New("not found")
	ErrInternal      = New("internal error")
	ErrUnauthorized  = New("unauthorized")
	ErrUnprocessable = New("unprocessable program")
)

// AppError represents an application-specific error with an HTTP status code.
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// MapError maps a common error to an AppError with an appropriate HTTP status code.
func MapError(err error) *AppError {
	if err == nil {
		return nil
	}

	// Check for existing AppError
	var appErr *AppError
	if As(err, &appErr) {
		return appErr
	}

	// Map sentinel errors
	// Input and program defects carry their own message; clients need it to fix the request.
	if Is(err, ErrInvalidInput) {
		return NewAppError(http.StatusBadRequest, err.Error(), err)
	}
	if Is(err, ErrUnprocessable) {
		return NewAppError(http.StatusUnprocessableEntity, err.Error(), err)
	}
	if Is(err, ErrNotFound) {
		return NewAppError(http.StatusNotFound, "Resource not found", err)
	}
	if Is(err, ErrUnauthorized) {
		return NewAppError(http.StatusUnauthorized, "Unauthorized", err)
	}

	// Default to internal server error
	return NewAppError(http.StatusInternalServerError, "Internal server error", err)
}
