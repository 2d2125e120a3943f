package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/utafrali/customerdash/pkg/errors"
)

// downstreamError covers the error bodies upstream services send: the
// structured {"error":{"code","message"}} envelope, and the flat
// {"message":"..."} or {"error":"..."} shapes common in Express APIs.
type downstreamError struct {
	Error   json.RawMessage `json:"error"`
	Message string          `json:"message"`
}

type structuredError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ParseResponseError reads the body of a non-2xx response and translates
// it into an AppError. The body is fully consumed and closed. Call it only
// when resp.StatusCode is not 2xx.
func ParseResponseError(resp *http.Response, serviceName string) error {
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", serviceName, resp.StatusCode, err)
	}

	code, message := decodeErrorBody(bodyBytes)
	if message == "" {
		message = strings.TrimSpace(string(bodyBytes))
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}

	return mapDownstreamError(resp.StatusCode, code, message, serviceName)
}

func decodeErrorBody(body []byte) (code, message string) {
	var downstream downstreamError
	if json.Unmarshal(body, &downstream) != nil {
		return "", ""
	}

	if len(downstream.Error) > 0 {
		var se structuredError
		if json.Unmarshal(downstream.Error, &se) == nil && se.Message != "" {
			return se.Code, se.Message
		}
		var flat string
		if json.Unmarshal(downstream.Error, &flat) == nil && flat != "" {
			return "", flat
		}
	}

	return "", downstream.Message
}

// mapDownstreamError translates an upstream status into an AppError that
// keeps its semantics.
func mapDownstreamError(status int, code, message, serviceName string) error {
	qualifiedMsg := fmt.Sprintf("%s: %s", serviceName, message)

	switch {
	case status == http.StatusNotFound:
		return apperrors.NotFound(serviceName, message)
	case status == http.StatusBadRequest:
		return apperrors.InvalidInput(qualifiedMsg)
	case status == http.StatusUnauthorized:
		return apperrors.Unauthorized(qualifiedMsg)
	case status == http.StatusForbidden:
		return apperrors.Forbidden(qualifiedMsg)
	case status == http.StatusServiceUnavailable:
		return apperrors.ServiceUnavailable(qualifiedMsg)
	case status >= 500:
		return apperrors.BadGateway(fmt.Sprintf("%s server error (%d): %s", serviceName, status, message))
	default:
		if code == "" {
			code = "UPSTREAM_ERROR"
		}
		return &apperrors.AppError{
			Code:    code,
			Message: qualifiedMsg,
			Status:  status,
		}
	}
}
