package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/godfreymatagaro/eduability/pkg/errors"
)

// downstreamErrorResponse mirrors httputil.ErrorResponse so structured error
// bodies from services built on this module keep their code and message.
type downstreamErrorResponse struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ParseResponseError consumes and closes the body of a non-2xx response and
// translates it into an AppError. Anything the caller cannot fix (429, 5xx,
// unparseable bodies on those statuses) becomes DependencyUnavailable.
func ParseResponseError(resp *http.Response, dependency string) error {
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return apperrors.DependencyUnavailable(dependency,
			fmt.Errorf("status %d, read body: %w", resp.StatusCode, err))
	}

	message := string(bodyBytes)
	code := ""
	var downstream downstreamErrorResponse
	if json.Unmarshal(bodyBytes, &downstream) == nil && downstream.Error != nil {
		code = downstream.Error.Code
		message = downstream.Error.Message
	}

	return mapDownstreamError(resp.StatusCode, code, message, dependency)
}

func mapDownstreamError(status int, code, message, dependency string) error {
	qualifiedMsg := fmt.Sprintf("%s: %s", dependency, message)

	switch {
	case status == http.StatusNotFound:
		return apperrors.NotFound(dependency, message)
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return apperrors.InvalidInput(qualifiedMsg)
	case status == http.StatusUnauthorized:
		return apperrors.Unauthorized(qualifiedMsg)
	case status == http.StatusForbidden:
		return apperrors.Forbidden(qualifiedMsg)
	case status == http.StatusTooManyRequests || status >= 500:
		return apperrors.DependencyUnavailable(dependency,
			fmt.Errorf("status %d (%s): %s", status, code, message))
	default:
		if code == "" {
			code = http.StatusText(status)
		}
		return &apperrors.AppError{
			Code:    code,
			Message: qualifiedMsg,
			Status:  status,
		}
	}
}
