package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	apperrors "github.com/nahankar/shatika/pkg/errors"
	"github.com/nahankar/shatika/pkg/logger"
	"github.com/nahankar/shatika/pkg/validator"
)

// Response is the JSON envelope returned by every endpoint.
type Response struct {
	Success bool           `json:"success"`
	Data    any            `json:"data,omitempty"`
	Message string         `json:"message,omitempty"`
	Error   *ErrorResponse `json:"error,omitempty"`
}

// ErrorResponse represents an error in the standard response format.
type ErrorResponse struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	Details   map[string]any    `json:"details,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
	// Detail carries the underlying cause of a 500 and is only populated
	// in development mode.
	Detail string `json:"detail,omitempty"`
}

type debugKey struct{}

// WithDebug marks the request context so error responses include the
// underlying cause of internal failures.
func WithDebug(ctx context.Context) context.Context {
	return context.WithValue(ctx, debugKey{}, true)
}

// DebugFromContext reports whether WithDebug was applied to ctx.
func DebugFromContext(ctx context.Context) bool {
	v, _ := ctx.Value(debugKey{}).(bool)
	return v
}

// WriteJSON writes v as JSON with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; nothing meaningful can be done if encoding fails.
	_ = json.NewEncoder(w).Encode(v)
}

// WriteData writes a successful envelope carrying data.
func WriteData(w http.ResponseWriter, status int, data any) {
	WriteJSON(w, status, Response{Success: true, Data: data})
}

// WriteMessage writes a successful envelope carrying only an acknowledgment.
func WriteMessage(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, Response{Success: true, Message: message})
}

// WriteError converts err to an error envelope. AppErrors keep their own
// code and status; sentinel errors are mapped; anything else is a 500 and
// is logged with the request-scoped logger, falling back to fallback.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	l := logger.FromContext(r.Context())
	if l == slog.Default() && fallback != nil {
		l = fallback
	}

	requestID := logger.CorrelationIDFromContext(r.Context())

	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		WriteJSON(w, http.StatusBadRequest, Response{
			Message: "request validation failed",
			Error: &ErrorResponse{
				Code:      "VALIDATION_ERROR",
				Message:   "request validation failed",
				Fields:    valErr.Fields(),
				RequestID: requestID,
			},
		})
		return
	}

	resp := &ErrorResponse{RequestID: requestID}
	var status int

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		status = appErr.Status
		resp.Code = appErr.Code
		resp.Message = appErr.Message
		resp.Details = appErr.Details
	} else {
		status = apperrors.HTTPStatus(err)
		resp.Code, resp.Message = sentinelCode(err, status)
	}

	if status >= http.StatusInternalServerError {
		l.ErrorContext(r.Context(), "request failed",
			slog.String("error", err.Error()),
			slog.String("code", resp.Code),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
		if DebugFromContext(r.Context()) {
			resp.Detail = err.Error()
		}
	}

	WriteJSON(w, status, Response{Message: resp.Message, Error: resp})
}

func sentinelCode(err error, status int) (string, string) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return "NOT_FOUND", "resource not found"
	case errors.Is(err, apperrors.ErrAlreadyExists):
		return "ALREADY_EXISTS", "resource already exists"
	case errors.Is(err, apperrors.ErrConflict):
		return "CONFLICT", "resource was modified concurrently"
	case errors.Is(err, apperrors.ErrInvalidInput):
		return "INVALID_INPUT", err.Error()
	case errors.Is(err, apperrors.ErrUnauthorized):
		return "UNAUTHORIZED", "authentication required"
	case errors.Is(err, apperrors.ErrForbidden):
		return "FORBIDDEN", "insufficient permissions"
	case errors.Is(err, apperrors.ErrRateLimited):
		return "RATE_LIMITED", "too many requests"
	case status == http.StatusServiceUnavailable:
		return "SERVICE_UNAVAILABLE", "service temporarily unavailable"
	default:
		return "INTERNAL_ERROR", "an internal error occurred"
	}
}

// WriteValidationError writes a 400 for a request that failed decoding or
// struct validation.
func WriteValidationError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := logger.CorrelationIDFromContext(r.Context())

	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		WriteJSON(w, http.StatusBadRequest, Response{
			Message: "request validation failed",
			Error: &ErrorResponse{
				Code:      "VALIDATION_ERROR",
				Message:   "request validation failed",
				Fields:    valErr.Fields(),
				RequestID: requestID,
			},
		})
		return
	}

	WriteJSON(w, http.StatusBadRequest, Response{
		Message: err.Error(),
		Error:   &ErrorResponse{Code: "INVALID_INPUT", Message: err.Error(), RequestID: requestID},
	})
}

// PaginatedResponse is a generic paginated list payload.
type PaginatedResponse[T any] struct {
	Items      []T  `json:"items"`
	TotalCount int  `json:"total_count"`
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
}

// NewPaginatedResponse computes TotalPages and HasNext for a page of items.
func NewPaginatedResponse[T any](items []T, totalCount, page, perPage int) PaginatedResponse[T] {
	totalPages := 0
	if perPage > 0 {
		totalPages = totalCount / perPage
		if totalCount%perPage > 0 {
			totalPages++
		}
	}
	if items == nil {
		items = []T{}
	}
	return PaginatedResponse[T]{
		Items:      items,
		TotalCount: totalCount,
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

// ParseUUID parses a path parameter. On failure it writes a 400 with code
// INVALID_PARAMETER and returns false so the caller can return early.
func ParseUUID(w http.ResponseWriter, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(param)
	if err != nil {
		WriteJSON(w, http.StatusBadRequest, Response{
			Message: "invalid id: " + param,
			Error: &ErrorResponse{
				Code:    "INVALID_PARAMETER",
				Message: "invalid id: " + param,
			},
		})
		return uuid.Nil, false
	}
	return id, true
}
