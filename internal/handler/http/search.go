package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gearvn/storefront/internal/search"
	"github.com/gearvn/storefront/internal/service"
	"github.com/gearvn/storefront/pkg/httputil"
	"github.com/gearvn/storefront/pkg/middleware"
	"github.com/gearvn/storefront/pkg/pagination"
)

// SearchHandler handles the header search box and the product listing.
type SearchHandler struct {
	service *service.SearchService
	logger  *slog.Logger
}

// NewSearchHandler creates a new search HTTP handler.
func NewSearchHandler(svc *service.SearchService, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// SelectRequest is the suggestion the shopper picked.
type SelectRequest struct {
	ProductID string `json:"productId" validate:"required,notblank,max=64"`
}

// SubmitQueryRequest is the raw content of the search box.
type SubmitQueryRequest struct {
	Query string `json:"query" validate:"max=200"`
}

// --- Handlers ---

// Suggest handles GET /api/v1/search/suggest?q=
//
// Each call is one keystroke. A call overtaken by a newer keystroke from the
// same session is answered with 204 No Content.
func (h *SearchHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	suggestions, err := h.service.Suggest(ctx, middleware.SessionIDFromContext(ctx), r.URL.Query().Get("q"))
	switch {
	case errors.Is(err, search.ErrSuperseded):
		w.WriteHeader(http.StatusNoContent)
		return
	case errors.Is(err, context.Canceled):
		return
	case err != nil:
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: suggestions})
}

// Select handles POST /api/v1/search/select
func (h *SearchHandler) Select(w http.ResponseWriter, r *http.Request) {
	var req SelectRequest
	if err := decodeBody(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	nav, err := h.service.Select(r.Context(), service.SelectInput{ProductID: req.ProductID})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data:     nav,
		Redirect: &httputil.Redirect{Path: nav.Redirect},
	})
}

// Submit handles POST /api/v1/search/submit
func (h *SearchHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitQueryRequest
	if err := decodeBody(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	nav := h.service.Submit(r.Context(), service.SubmitQueryInput{Query: req.Query})
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data:     nav,
		Redirect: &httputil.Redirect{Path: nav.Redirect},
	})
}

// ListProducts handles GET /api/v1/products?search=&sort=&page=&per_page=
func (h *SearchHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := h.service.List(r.Context(), service.ListInput{
		Search: q.Get("search"),
		Sort:   q.Get("sort"),
		Params: pagination.FromRequest(r),
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: res})
}
