package http

import (
	"log/slog"
	"net/http"

	"github.com/gearvn/storefront/internal/service"
	"github.com/gearvn/storefront/pkg/httputil"
	"github.com/gearvn/storefront/pkg/logger"
	"github.com/gearvn/storefront/pkg/middleware"
)

// CheckoutHandler handles HTTP requests for the checkout page.
type CheckoutHandler struct {
	service  *service.CheckoutService
	sessions *service.SessionService
	logger   *slog.Logger
}

// NewCheckoutHandler creates a new checkout HTTP handler.
func NewCheckoutHandler(svc *service.CheckoutService, sessions *service.SessionService, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		service:  svc,
		sessions: sessions,
		logger:   logger,
	}
}

// --- Request DTOs ---

// ApplyDiscountRequest is the JSON request body for applying a discount code.
type ApplyDiscountRequest struct {
	Code string `json:"code" validate:"max=64"`
}

// SubmitRequest is the JSON request body of the checkout form.
type SubmitRequest struct {
	ShippingAddress string `json:"shippingAddress" validate:"max=500"`
	PaymentMethod   string `json:"paymentMethod" validate:"omitempty,oneof=COD BANK_TRANSFER VNPAY"`
	ShipmentMethod  string `json:"shipmentMethod" validate:"omitempty,oneof=STANDARD EXPRESS"`
	Note            string `json:"note" validate:"max=1000"`
}

// --- Handlers ---

// View handles GET /api/v1/checkout
func (h *CheckoutHandler) View(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sid := middleware.SessionIDFromContext(ctx)

	token, err := h.sessions.Token(ctx, sid, middleware.BearerTokenFromContext(ctx))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	view, err := h.service.View(ctx, sid, token)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data:     view,
		Notice:   toNotice(view.Notice),
		Redirect: toRedirect(view.Redirect),
	})
}

// ApplyDiscount handles POST /api/v1/checkout/discount
func (h *CheckoutHandler) ApplyDiscount(w http.ResponseWriter, r *http.Request) {
	var req ApplyDiscountRequest
	if err := decodeBody(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	res, err := h.service.ApplyDiscount(r.Context(), middleware.SessionIDFromContext(r.Context()), req.Code)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data:   res,
		Notice: &httputil.Notice{Level: httputil.NoticeSuccess, Message: "Discount code applied."},
	})
}

// ClearDiscount handles DELETE /api/v1/checkout/discount
func (h *CheckoutHandler) ClearDiscount(w http.ResponseWriter, r *http.Request) {
	totals, err := h.service.ClearDiscount(r.Context(), middleware.SessionIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]any{"totals": totals}})
}

// Submit handles POST /api/v1/checkout/submit
func (h *CheckoutHandler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sid := middleware.SessionIDFromContext(ctx)

	var req SubmitRequest
	if err := decodeBody(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	token, err := h.sessions.Token(ctx, sid, middleware.BearerTokenFromContext(ctx))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	res, err := h.service.Submit(ctx, sid, token, service.SubmitInput{
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		ShipmentMethod:  req.ShipmentMethod,
		Note:            req.Note,
	})
	if err != nil {
		status, body := httputil.ErrorEnvelope(err)
		body.Error.RequestID = logger.CorrelationIDFromContext(ctx)
		if res != nil {
			body.Data = res
			if res.Notice != nil {
				body.Notice = toNotice(res.Notice)
			}
			body.Redirect = toRedirect(res.Redirect)
		}
		if status >= http.StatusInternalServerError {
			h.logger.ErrorContext(ctx, "checkout submission failed",
				slog.String("error", err.Error()),
				slog.Int("status", status),
			)
		}
		httputil.WriteJSON(w, status, body)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data:     res,
		Notice:   toNotice(res.Notice),
		Redirect: toRedirect(res.Redirect),
	})
}
