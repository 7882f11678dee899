package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard sentinel errors for common cases.
var (
	ErrNotFound       = errors.New("resource not found")
	ErrAlreadyExists  = errors.New("resource already exists")
	ErrInvalidInput   = errors.New("invalid input")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrInternal       = errors.New("internal error")
	ErrConflict       = errors.New("conflict")
	ErrHasDependents  = errors.New("resource has dependents")
	ErrFileTooLarge   = errors.New("file too large")
	ErrUnsupported    = errors.New("unsupported media type")
	ErrUpstream       = errors.New("upstream failure")
	ErrServiceUnavail = errors.New("service unavailable")
	ErrRateLimited    = errors.New("rate limited")
)

// AppError represents a structured application error with HTTP status mapping.
type AppError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Status  int            `json:"-"`
	Err     error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound creates a 404 error.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with id %s not found", resource, id),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// AlreadyExists creates a 409 error.
func AlreadyExists(resource, field, value string) *AppError {
	return &AppError{
		Code:    "ALREADY_EXISTS",
		Message: fmt.Sprintf("%s with %s %q already exists", resource, field, value),
		Status:  http.StatusConflict,
		Err:     ErrAlreadyExists,
	}
}

// InvalidInput creates a 400 error.
func InvalidInput(message string) *AppError {
	return &AppError{
		Code:    "INVALID_INPUT",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// Unauthorized creates a 401 error.
func Unauthorized(message string) *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     ErrUnauthorized,
	}
}

// Forbidden creates a 403 error.
func Forbidden(message string) *AppError {
	return &AppError{
		Code:    "FORBIDDEN",
		Message: message,
		Status:  http.StatusForbidden,
		Err:     ErrForbidden,
	}
}

// Conflict creates a 409 error for a concurrent modification.
func Conflict(message string) *AppError {
	return &AppError{
		Code:    "CONFLICT",
		Message: message,
		Status:  http.StatusConflict,
		Err:     ErrConflict,
	}
}

// HasDependents creates a 400 error refusing a delete that would orphan
// referencing records. The dependent count is reported in Details.
func HasDependents(resource, id string, count int) *AppError {
	return &AppError{
		Code:    "HAS_DEPENDENTS",
		Message: fmt.Sprintf("%s %s is referenced by %d product(s)", resource, id, count),
		Details: map[string]any{"dependent_count": count},
		Status:  http.StatusBadRequest,
		Err:     ErrHasDependents,
	}
}

// FileTooLarge creates a 400 error for uploads over the size limit.
func FileTooLarge(limit int64) *AppError {
	return &AppError{
		Code:    "FILE_TOO_LARGE",
		Message: fmt.Sprintf("file exceeds the maximum size of %d bytes", limit),
		Details: map[string]any{"max_bytes": limit},
		Status:  http.StatusBadRequest,
		Err:     ErrFileTooLarge,
	}
}

// UnsupportedMedia creates a 400 error for uploads of a disallowed type.
func UnsupportedMedia(contentType string) *AppError {
	return &AppError{
		Code:    "INVALID_FILE_TYPE",
		Message: fmt.Sprintf("content type %q is not allowed", contentType),
		Status:  http.StatusBadRequest,
		Err:     ErrUnsupported,
	}
}

// Upstream creates a 500 error for a failing external collaborator
// (object storage, renderer).
func Upstream(op string, err error) *AppError {
	return &AppError{
		Code:    "UPSTREAM_ERROR",
		Message: fmt.Sprintf("%s failed", op),
		Status:  http.StatusInternalServerError,
		Err:     errors.Join(ErrUpstream, err),
	}
}

// RateLimited creates a 429 error for a client over its request budget.
func RateLimited() *AppError {
	return &AppError{
		Code:    "RATE_LIMITED",
		Message: "too many requests",
		Status:  http.StatusTooManyRequests,
		Err:     ErrRateLimited,
	}
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyExists), errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrHasDependents),
		errors.Is(err, ErrFileTooLarge), errors.Is(err, ErrUnsupported):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrServiceUnavail):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
