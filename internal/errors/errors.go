package errors

import (
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrorTypeNotFound   ErrorType = "NOT_FOUND"
	ErrorTypeValidation ErrorType = "VALIDATION"
	ErrorTypeConflict   ErrorType = "CONFLICT"
	ErrorTypeInternal   ErrorType = "INTERNAL"
	ErrorTypeBackend    ErrorType = "BACKEND"
)

// Error is the error shape shared by the backend bridge and the DTO mappers.
// It is also the JSON body the backend returns for failed commands.
type Error struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Code    int       `json:"code"`
	Details any       `json:"details,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches on Type so callers can use errors.Is against the helpers below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Type == e.Type && (t.Message == "" || t.Message == e.Message)
}

func NotFound(message string) *Error {
	return &Error{
		Type:    ErrorTypeNotFound,
		Message: message,
		Code:    http.StatusNotFound,
	}
}

func NotFoundf(format string, args ...any) *Error {
	return NotFound(fmt.Sprintf(format, args...))
}

func ValidationError(message string, details any) *Error {
	return &Error{
		Type:    ErrorTypeValidation,
		Message: message,
		Code:    http.StatusBadRequest,
		Details: details,
	}
}

func Conflict(message string) *Error {
	return &Error{
		Type:    ErrorTypeConflict,
		Message: message,
		Code:    http.StatusConflict,
	}
}

func Internal(message string) *Error {
	return &Error{
		Type:    ErrorTypeInternal,
		Message: message,
		Code:    http.StatusInternalServerError,
	}
}

// Backend wraps a non-JSON failure from the native backend.
func Backend(code int, message string) *Error {
	return &Error{
		Type:    ErrorTypeBackend,
		Message: message,
		Code:    code,
	}
}

// Sentinels for errors.Is comparisons.
var (
	ErrNotFound   = &Error{Type: ErrorTypeNotFound}
	ErrValidation = &Error{Type: ErrorTypeValidation}
	ErrConflict   = &Error{Type: ErrorTypeConflict}
)
