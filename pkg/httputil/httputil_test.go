package httputil

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/nahankar/shatika/pkg/errors"
	"github.com/nahankar/shatika/pkg/logger"
	"github.com/nahankar/shatika/pkg/validator"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestWriteData(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteData(rec, http.StatusCreated, map[string]string{"id": "p1"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	resp := decode(t, rec)
	assert.True(t, resp.Success)
	assert.NotNil(t, resp.Data)
	assert.Nil(t, resp.Error)
}

func TestWriteMessage_OmitsData(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteMessage(rec, http.StatusOK, "added to cart")

	var raw map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&raw))
	_, hasData := raw["data"]
	_, hasError := raw["error"]
	assert.False(t, hasData)
	assert.False(t, hasError)
	assert.JSONEq(t, `true`, string(raw["success"]))
	assert.JSONEq(t, `"added to cart"`, string(raw["message"]))
}

func TestWriteError_AppError(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/products/abc", nil)

	WriteError(rec, req, apperrors.NotFound("product", "abc"), testLogger())

	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decode(t, rec)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
	assert.Equal(t, resp.Error.Message, resp.Message)
}

func TestWriteError_HasDependentsCarriesCount(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/categories/c1", nil)

	WriteError(rec, req, apperrors.HasDependents("category", "c1", 4), testLogger())

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "HAS_DEPENDENTS", resp.Error.Code)
	assert.EqualValues(t, 4, resp.Error.Details["dependent_count"])
}

func TestWriteError_Sentinels(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{apperrors.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{apperrors.ErrAlreadyExists, http.StatusConflict, "ALREADY_EXISTS"},
		{fmt.Errorf("save: %w", apperrors.ErrConflict), http.StatusConflict, "CONFLICT"},
		{apperrors.ErrInvalidInput, http.StatusBadRequest, "INVALID_INPUT"},
		{apperrors.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED"},
		{apperrors.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{apperrors.ErrRateLimited, http.StatusTooManyRequests, "RATE_LIMITED"},
		{fmt.Errorf("something unexpected"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			WriteError(rec, req, tt.err, testLogger())

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decode(t, rec).Error.Code)
		})
	}
}

func TestWriteError_ValidationError(t *testing.T) {
	type form struct {
		Name string `json:"name" validate:"required"`
	}
	verr := validator.Validate(form{})
	require.Error(t, verr)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	WriteError(rec, req, verr, testLogger())

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	assert.Equal(t, "is required", resp.Error.Fields["name"])
}

func TestWriteError_DetailOnlyInDebug(t *testing.T) {
	cause := fmt.Errorf("pq: relation missing")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	WriteError(rec, req, cause, testLogger())
	assert.Empty(t, decode(t, rec).Error.Detail)

	rec = httptest.NewRecorder()
	req = req.WithContext(WithDebug(req.Context()))
	WriteError(rec, req, cause, testLogger())
	resp := decode(t, rec)
	assert.Equal(t, "an internal error occurred", resp.Error.Message)
	assert.Contains(t, resp.Error.Detail, "relation missing")
}

func TestWriteError_DebugDoesNotLeakClientErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req = req.WithContext(WithDebug(req.Context()))

	WriteError(rec, req, apperrors.InvalidInput("quantity must be at least 1"), testLogger())
	assert.Empty(t, decode(t, rec).Error.Detail)
}

func TestWriteError_IncludesRequestID(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx := logger.WithCorrelationID(context.Background(), "corr-123")
	req := httptest.NewRequest(http.MethodGet, "/x", nil).WithContext(ctx)

	WriteError(rec, req, apperrors.ErrNotFound, testLogger())

	assert.Equal(t, "corr-123", decode(t, rec).Error.RequestID)
}

func TestWriteValidationError_PlainError(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	WriteValidationError(rec, req, fmt.Errorf("request body is empty"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode(t, rec)
	assert.False(t, resp.Success)
	assert.Equal(t, "INVALID_INPUT", resp.Error.Code)
	assert.Equal(t, "request body is empty", resp.Message)
}

func TestNewPaginatedResponse(t *testing.T) {
	resp := NewPaginatedResponse([]string{"a", "b"}, 25, 1, 10)
	assert.Equal(t, 3, resp.TotalPages)
	assert.True(t, resp.HasNext)

	last := NewPaginatedResponse([]string{"x"}, 21, 3, 10)
	assert.False(t, last.HasNext)

	empty := NewPaginatedResponse[string](nil, 0, 1, 20)
	assert.NotNil(t, empty.Items)
	assert.Equal(t, 0, empty.TotalPages)

	zero := NewPaginatedResponse([]int{1}, 1, 1, 0)
	assert.Equal(t, 0, zero.TotalPages)
}

func TestParseUUID(t *testing.T) {
	rec := httptest.NewRecorder()
	id, ok := ParseUUID(rec, "550E8400-E29B-41D4-A716-446655440000")
	assert.True(t, ok)
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", id.String())

	rec = httptest.NewRecorder()
	_, ok = ParseUUID(rec, "not-a-uuid")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_PARAMETER", decode(t, rec).Error.Code)
}
