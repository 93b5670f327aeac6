// Package errors defines the sentinel errors shared by the search engine and
// an AppError type that carries an HTTP status for the driver surfaces.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnsupportedLanguage = errors.New("unsupported language")
	ErrFetch               = errors.New("fetch failed")
	ErrStorage             = errors.New("storage error")
	ErrInvalidInput        = errors.New("invalid input")
	ErrInternal            = errors.New("internal error")
	ErrTimeout             = errors.New("operation timed out")
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

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// HTTPStatusCode maps err to the status a handler should answer with.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrUnsupportedLanguage), errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrFetch):
		return http.StatusBadGateway
	case errors.Is(err, ErrStorage), errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
