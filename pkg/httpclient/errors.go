package httpclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/gearvn/storefront/pkg/errors"
)

// ErrorBody mirrors the error envelope returned by the backend API:
// a numeric code (0 means success) and an optional human-readable message.
type ErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// BackendError carries the backend's own code and message after a failed call.
type BackendError struct {
	Service string
	Status  int
	Code    int
	Message string
}

func (e *BackendError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s returned status %d (code %d)", e.Service, e.Status, e.Code)
	}
	return fmt.Sprintf("%s returned status %d (code %d): %s", e.Service, e.Status, e.Code, e.Message)
}

// ParseResponseError reads the body of a non-2xx HTTP response and translates
// it into an AppError. The response body is fully consumed and closed.
func ParseResponseError(resp *http.Response, serviceName string) error {
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return apperrors.Upstream(
			fmt.Sprintf("%s is not responding correctly", serviceName),
			fmt.Errorf("%s returned status %d (failed to read body: %w)", serviceName, resp.StatusCode, err),
		)
	}
	return ParseErrorBody(resp.StatusCode, bodyBytes, serviceName)
}

// ParseErrorBody maps a failed status and the raw body into an AppError,
// keeping the backend's message when the body is a valid envelope.
func ParseErrorBody(status int, body []byte, serviceName string) error {
	be := &BackendError{Service: serviceName, Status: status}
	var envelope ErrorBody
	if json.Unmarshal(body, &envelope) == nil {
		be.Code = envelope.Code
		be.Message = envelope.Message
	} else if len(body) > 0 && len(body) <= 256 {
		be.Message = string(body)
	}
	return mapBackendError(be)
}

// FromStatusError converts a 5xx reported by the circuit breaker into an AppError.
func FromStatusError(err error, serviceName string) error {
	var se *StatusError
	if errors.As(err, &se) {
		return ParseErrorBody(se.StatusCode, se.Body, serviceName)
	}
	return err
}

func mapBackendError(be *BackendError) error {
	message := be.Message

	switch {
	case be.Status == http.StatusUnauthorized:
		if message == "" {
			message = "please sign in to continue"
		}
		appErr := apperrors.Unauthorized(message)
		appErr.Err = fmt.Errorf("%w: %w", apperrors.ErrUnauthorized, be)
		return appErr
	case be.Status == http.StatusNotFound:
		return &apperrors.AppError{
			Code:    "NOT_FOUND",
			Message: fallback(message, "the requested resource does not exist"),
			Status:  http.StatusNotFound,
			Err:     fmt.Errorf("%w: %w", apperrors.ErrNotFound, be),
		}
	case be.Status == http.StatusBadRequest, be.Status == http.StatusUnprocessableEntity:
		return &apperrors.AppError{
			Code:    "INVALID_INPUT",
			Message: fallback(message, "the request was rejected"),
			Status:  http.StatusBadRequest,
			Err:     fmt.Errorf("%w: %w", apperrors.ErrInvalidInput, be),
		}
	case be.Status == http.StatusConflict:
		return &apperrors.AppError{
			Code:    "CONFLICT",
			Message: fallback(message, "the request conflicts with the current state"),
			Status:  http.StatusConflict,
			Err:     fmt.Errorf("%w: %w", apperrors.ErrConflict, be),
		}
	case be.Status == http.StatusServiceUnavailable:
		return &apperrors.AppError{
			Code:    "SERVICE_UNAVAILABLE",
			Message: fallback(message, "the service is temporarily unavailable"),
			Status:  http.StatusServiceUnavailable,
			Err:     fmt.Errorf("%w: %w", apperrors.ErrServiceUnavail, be),
		}
	default:
		return apperrors.Upstream(fallback(message, "something went wrong, please try again"), be)
	}
}

func fallback(message, def string) string {
	if message == "" {
		return def
	}
	return message
}

// IsClientError returns true if the HTTP status code is a 4xx client error.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
