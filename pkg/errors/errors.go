// Package errors defines the sentinel errors shared by the posting store,
// index builder and search surfaces, plus an AppError wrapper that carries an
// HTTP status for the serve command.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrStorageInit means the store directory could not be created or opened.
	ErrStorageInit = errors.New("storage init failed")
	// ErrStorageWrite means a single posting append failed.
	ErrStorageWrite = errors.New("storage write failed")
	// ErrStorageRead means the store itself could not be listed or read.
	ErrStorageRead = errors.New("storage read failed")
	// ErrDocumentRead means a source document could not be read as text.
	ErrDocumentRead = errors.New("document read failed")
	// ErrInvalidKey means a term cannot be mapped to a flat record name.
	ErrInvalidKey    = errors.New("invalid key")
	ErrInvalidInput  = errors.New("invalid input")
	ErrInternal      = errors.New("internal error")
	ErrTimeout       = errors.New("operation timed out")
	ErrNotConfigured = errors.New("not configured")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Is and As re-export the standard helpers so callers importing this package
// under the name errors keep one import.
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidKey):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
