package http

import (
	"log/slog"
	"net/http"

	"github.com/gearvn/storefront/internal/service"
	"github.com/gearvn/storefront/pkg/httputil"
	"github.com/gearvn/storefront/pkg/middleware"
)

// SessionHandler stores the backend token obtained at login.
type SessionHandler struct {
	service *service.SessionService
	logger  *slog.Logger
}

// NewSessionHandler creates a new session HTTP handler.
func NewSessionHandler(svc *service.SessionService, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{service: svc, logger: logger}
}

// SetTokenRequest is the JSON request body for storing a token.
type SetTokenRequest struct {
	Token string `json:"token" validate:"required,notblank,max=4096"`
}

// SetToken handles PUT /api/v1/session/token
func (h *SessionHandler) SetToken(w http.ResponseWriter, r *http.Request) {
	var req SetTokenRequest
	if err := decodeBody(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	if err := h.service.SetToken(r.Context(), middleware.SessionIDFromContext(r.Context()), req.Token); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ClearToken handles DELETE /api/v1/session/token
func (h *SessionHandler) ClearToken(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ClearToken(r.Context(), middleware.SessionIDFromContext(r.Context())); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
