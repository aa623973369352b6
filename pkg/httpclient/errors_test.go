package httpclient

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	apperrors "github.com/godfreymatagaro/eduability/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeResponse creates an *http.Response with the given status code and body string.
func makeResponse(statusCode int, body string) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func structuredError(code, message string) string {
	return `{"error":{"code":"` + code + `","message":"` + message + `"}}`
}

func TestParseResponseError_StatusMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		sentinel error
		code     int
	}{
		{"not found", http.StatusNotFound, structuredError("NOT_FOUND", "no such index"), apperrors.ErrNotFound, http.StatusNotFound},
		{"bad request", http.StatusBadRequest, structuredError("INVALID_INPUT", "missing q"), apperrors.ErrInvalidInput, http.StatusBadRequest},
		{"unprocessable", http.StatusUnprocessableEntity, `unsupported format`, apperrors.ErrInvalidInput, http.StatusBadRequest},
		{"unauthorized", http.StatusUnauthorized, structuredError("UNAUTHORIZED", "token"), apperrors.ErrUnauthorized, http.StatusUnauthorized},
		{"forbidden", http.StatusForbidden, `<html>forbidden</html>`, apperrors.ErrForbidden, http.StatusForbidden},
		{"rate limited", http.StatusTooManyRequests, `Too Many Requests`, apperrors.ErrDependencyUnavailable, http.StatusServiceUnavailable},
		{"server error", http.StatusInternalServerError, structuredError("INTERNAL_ERROR", "boom"), apperrors.ErrDependencyUnavailable, http.StatusServiceUnavailable},
		{"bad gateway", http.StatusBadGateway, ``, apperrors.ErrDependencyUnavailable, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ParseResponseError(makeResponse(tt.status, tt.body), "searxng")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)
			assert.Equal(t, tt.code, apperrors.HTTPStatus(err))
		})
	}
}

func TestParseResponseError_StructuredMessageKept(t *testing.T) {
	err := ParseResponseError(makeResponse(http.StatusBadRequest, structuredError("INVALID_INPUT", "missing q")), "searxng")

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "searxng: missing q", appErr.Message)
}

func TestParseResponseError_DependencyHidesBody(t *testing.T) {
	err := ParseResponseError(makeResponse(http.StatusInternalServerError, "stack trace here"), "searxng")

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "searxng is unavailable", appErr.Message)
	assert.Contains(t, err.Error(), "stack trace here")
}

func TestParseResponseError_OtherStatusKeepsStatus(t *testing.T) {
	err := ParseResponseError(makeResponse(http.StatusConflict, "busy"), "searxng")

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusConflict, appErr.Status)
	assert.Equal(t, "Conflict", appErr.Code)
	assert.Equal(t, apperrors.KindInternal, apperrors.KindOf(err))
}

func TestParseResponseError_StructuredButNullError(t *testing.T) {
	err := ParseResponseError(makeResponse(http.StatusNotFound, `{"error":null}`), "searxng")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
