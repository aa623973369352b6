package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/godfreymatagaro/eduability/pkg/errors"
	"github.com/godfreymatagaro/eduability/pkg/logger"
	"github.com/godfreymatagaro/eduability/pkg/validator"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

// --- WriteJSON ---

func TestWriteJSON_SetsContentTypeAndStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusCreated, Response{Data: "hello"})

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestWriteJSON_RawMessagePassesThrough(t *testing.T) {
	rec := httptest.NewRecorder()
	raw := json.RawMessage(`[{"id":"t-1","rating":4.5}]`)
	WriteJSON(rec, http.StatusOK, Response{Data: raw})

	assert.JSONEq(t, `{"data":[{"id":"t-1","rating":4.5}]}`, rec.Body.String())
}

func TestResponse_OmitsEmptyHalves(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusOK, Response{Data: "ok"})

	var raw map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&raw))
	assert.NotContains(t, raw, "error")
}

// --- WriteError ---

func TestWriteError_ByKind(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"app not found", apperrors.NotFound("technology", "t-1"), http.StatusNotFound, "NOT_FOUND"},
		{"sentinel not found", fmt.Errorf("wrap: %w", apperrors.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{"forbidden", apperrors.Forbidden("only the author can edit a review"), http.StatusForbidden, "FORBIDDEN"},
		{"invalid", apperrors.ErrInvalidInput, http.StatusBadRequest, "INVALID_INPUT"},
		{"dependency", apperrors.DependencyUnavailable("external search", fmt.Errorf("timeout")), http.StatusServiceUnavailable, "DEPENDENCY_UNAVAILABLE"},
		{"unknown", fmt.Errorf("mongo: server selection timeout"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/v1/technologies", nil)

			WriteError(rec, req, tt.err, testLogger())

			assert.Equal(t, tt.status, rec.Code)
			resp := decodeResponse(t, rec)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestWriteError_HidesDriverMessages(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/search", nil)

	WriteError(rec, req, fmt.Errorf("connection refused to 10.0.0.3:27017"), testLogger())

	assert.NotContains(t, rec.Body.String(), "10.0.0.3")
}

func TestWriteError_RequestIDAndScopedLogger(t *testing.T) {
	var buf bytes.Buffer
	scoped := slog.New(slog.NewJSONHandler(&buf, nil))

	ctx := logger.WithCorrelationID(context.Background(), "corr-77")
	ctx = logger.NewContext(ctx, scoped)
	req := httptest.NewRequest(http.MethodGet, "/x", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	WriteError(rec, req, fmt.Errorf("boom"), testLogger())

	resp := decodeResponse(t, rec)
	assert.Equal(t, "corr-77", resp.Error.RequestID)
	assert.Contains(t, buf.String(), "request failed")
}

// --- WriteValidationError ---

func TestWriteValidationError_Fields(t *testing.T) {
	type body struct {
		Rating int `json:"rating" validate:"required,gte=1,lte=5"`
	}
	err := validator.Validate(body{Rating: 9})
	require.Error(t, err)

	rec := httptest.NewRecorder()
	WriteValidationError(rec, err)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	assert.Contains(t, resp.Error.Fields, "rating")
}

func TestWriteValidationError_PlainError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteValidationError(rec, fmt.Errorf("invalid request body: EOF"))

	resp := decodeResponse(t, rec)
	assert.Equal(t, "INVALID_INPUT", resp.Error.Code)
}

// --- DecodeJSON ---

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"NVDA"}`))
	require.NoError(t, DecodeJSON(httptest.NewRecorder(), req, &dst))
	assert.Equal(t, "NVDA", dst.Name)

	bad := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
	assert.Error(t, DecodeJSON(httptest.NewRecorder(), bad, &dst))
}

func TestDecodeJSON_TooLarge(t *testing.T) {
	var dst map[string]string
	huge := `{"k":"` + strings.Repeat("a", MaxBodyBytes+10) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(huge))
	assert.Error(t, DecodeJSON(httptest.NewRecorder(), req, &dst))
}
