package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/gearvn/storefront/pkg/errors"
	"github.com/gearvn/storefront/pkg/logger"
	"github.com/gearvn/storefront/pkg/validator"
)

// Notice levels understood by the storefront pages.
const (
	NoticeSuccess = "success"
	NoticeError   = "error"
	NoticeInfo    = "info"
)

// Response is the JSON envelope returned by every storefront endpoint.
// Notice is rendered as a transient toast, Redirect drives page navigation.
type Response struct {
	Data     any            `json:"data,omitempty"`
	Error    *ErrorResponse `json:"error,omitempty"`
	Notice   *Notice        `json:"notice,omitempty"`
	Redirect *Redirect      `json:"redirect,omitempty"`
}

// ErrorResponse represents an error in the standard response format.
type ErrorResponse struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// Notice is a short message shown to the shopper.
type Notice struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Redirect asks the page to navigate to Path after DelayMs milliseconds.
type Redirect struct {
	Path    string `json:"path"`
	DelayMs int64  `json:"delay_ms,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; nothing meaningful can be done if encoding fails.
	_ = json.NewEncoder(w).Encode(v)
}

// ErrorEnvelope builds the error envelope for err, including a matching error
// notice. The returned status is the HTTP status to answer with.
func ErrorEnvelope(err error) (int, Response) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Status, Response{
			Error:  &ErrorResponse{Code: appErr.Code, Message: appErr.Message, Fields: appErr.Fields},
			Notice: &Notice{Level: NoticeError, Message: appErr.Message},
		}
	}

	status := apperrors.HTTPStatus(err)
	code := "INTERNAL_ERROR"
	message := "an internal error occurred"

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		code = "NOT_FOUND"
		message = "resource not found"
	case errors.Is(err, apperrors.ErrInvalidInput):
		code = "INVALID_INPUT"
		message = err.Error()
	case errors.Is(err, apperrors.ErrUnauthorized):
		code = "UNAUTHORIZED"
		message = "please sign in to continue"
	case errors.Is(err, apperrors.ErrServiceUnavail):
		code = "SERVICE_UNAVAILABLE"
		message = "the shop is temporarily unavailable, please try again"
	}

	return status, Response{
		Error:  &ErrorResponse{Code: code, Message: message},
		Notice: &Notice{Level: NoticeError, Message: message},
	}
}

// WriteError writes a standardized error response. It prefers the
// request-scoped logger stored by the RequestLogger middleware over fallback.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	l := logger.FromContext(r.Context())
	if l == slog.Default() {
		l = fallback
	}

	status, resp := ErrorEnvelope(err)
	resp.Error.RequestID = logger.CorrelationIDFromContext(r.Context())

	if status >= http.StatusInternalServerError {
		l.ErrorContext(r.Context(), "request failed",
			slog.String("error", err.Error()),
			slog.Int("status", status),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
	}

	WriteJSON(w, status, resp)
}

// WriteValidationError writes field-level validation errors.
func WriteValidationError(w http.ResponseWriter, err error) {
	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		WriteJSON(w, http.StatusBadRequest, Response{
			Error: &ErrorResponse{
				Code:    "VALIDATION_ERROR",
				Message: "request validation failed",
				Fields:  valErr.Fields(),
			},
			Notice: &Notice{Level: NoticeError, Message: "Please check the highlighted fields."},
		})
		return
	}

	WriteJSON(w, http.StatusBadRequest, Response{
		Error:  &ErrorResponse{Code: "INVALID_INPUT", Message: err.Error()},
		Notice: &Notice{Level: NoticeError, Message: "The request could not be read."},
	})
}
