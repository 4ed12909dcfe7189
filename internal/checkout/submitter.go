// Package checkout validates a checkout, applies discount codes and submits
// orders to the backend.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gearvn/storefront/internal/discount"
	"github.com/gearvn/storefront/internal/domain"
	"github.com/gearvn/storefront/internal/event"
	"github.com/gearvn/storefront/internal/metrics"
	apperrors "github.com/gearvn/storefront/pkg/errors"
)

// Fixed navigation targets and delays.
const (
	SuccessRedirectPath  = "/"
	SuccessRedirectDelay = 1500 * time.Millisecond
	LoginRedirectPath    = "/login?redirect=/checkout"
	CartRedirectPath     = "/cart"
)

// Notice levels.
const (
	NoticeSuccess = "success"
	NoticeError   = "error"
	NoticeInfo    = "info"
)

// Form field names used for inline messages.
const (
	FieldShippingAddress = "shippingAddress"
	FieldPaymentMethod   = "paymentMethod"
	FieldShipmentMethod  = "shipmentMethod"
)

// Backend is the part of the shop API checkout depends on.
type Backend interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	ListDiscounts(ctx context.Context) ([]domain.DiscountRecord, error)
	PlaceOrder(ctx context.Context, token string, order domain.Order) (*domain.PlacedOrder, error)
}

// Cart is the session cart as seen by checkout.
type Cart interface {
	SessionID() string
	Items() []domain.CartLineItem
	Clear(ctx context.Context) error
}

// Notice is a transient message for the shopper.
type Notice struct {
	Level   string
	Message string
}

// Redirect asks the page to navigate after Delay.
type Redirect struct {
	Path  string
	Delay time.Duration
}

// SubmitInput is the shopper's checkout form.
type SubmitInput struct {
	ShippingAddress string
	PaymentMethod   domain.PaymentMethod
	ShipmentMethod  domain.ShipmentMethod
	Note            string
}

// Result describes how an attempt ended. It is returned together with the
// error on failure so the page can still show the notice and follow the
// redirect.
type Result struct {
	State      State               `json:"state"`
	Order      *domain.PlacedOrder `json:"order,omitempty"`
	Payload    *domain.Order       `json:"payload,omitempty"`
	Violations []StockViolation    `json:"violations,omitempty"`
	Notice     *Notice             `json:"-"`
	Redirect   *Redirect           `json:"-"`
}

// DiscountResult is returned after a discount code was accepted.
type DiscountResult struct {
	Applied domain.AppliedDiscount `json:"applied"`
	Totals  Totals                 `json:"totals"`
}

// Submitter runs checkout attempts against the backend.
type Submitter struct {
	backend Backend
	events  event.Publisher
	logger  *slog.Logger
	now     func() time.Time
	loc     *time.Location
}

// NewSubmitter creates a submitter. Discount windows are evaluated in loc.
func NewSubmitter(backend Backend, events event.Publisher, logger *slog.Logger, loc *time.Location) *Submitter {
	if loc == nil {
		loc = time.Local
	}
	return &Submitter{
		backend: backend,
		events:  events,
		logger:  logger,
		now:     time.Now,
		loc:     loc,
	}
}

// WithClock returns a copy of the submitter that reads the time from now.
func (s *Submitter) WithClock(now func() time.Time) *Submitter {
	cpy := *s
	cpy.now = now
	return &cpy
}

// ApplyDiscount validates code against the backend's discount list and, on
// success, makes it the session's applied discount. Any failure leaves the
// previously applied discount in place.
func (s *Submitter) ApplyDiscount(ctx context.Context, sess *Session, cart Cart, code string) (*DiscountResult, error) {
	if err := sess.beginDiscount(); err != nil {
		return nil, apperrors.Conflict(err.Error())
	}

	var applied *domain.AppliedDiscount
	defer func() { sess.endDiscount(applied) }()

	records, err := s.backend.ListDiscounts(ctx)
	if err != nil {
		return nil, err
	}

	rec, err := discount.Validate(code, records, s.now().In(s.loc))
	if err != nil {
		metrics.DiscountRejected(discount.Reason(err))
		s.logger.InfoContext(ctx, "discount code rejected",
			slog.String("session_id", cart.SessionID()),
			slog.String("reason", discount.Reason(err)),
		)
		return nil, discount.AsAppError(err)
	}

	applied = &domain.AppliedDiscount{Record: *rec, Input: code}
	metrics.DiscountAccepted()

	return &DiscountResult{
		Applied: *applied,
		Totals:  ComputeTotals(cart.Items(), applied),
	}, nil
}

// StockCheck fetches the live catalog and reports lines that exceed stock.
func (s *Submitter) StockCheck(ctx context.Context, cart Cart) ([]StockViolation, error) {
	live, err := s.backend.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("check stock: %w", err)
	}
	return CheckStock(cart.Items(), live), nil
}

// StockNotice is the message shown when the cart exceeds live stock.
func StockNotice(violations []StockViolation) *Notice {
	names := make([]string, 0, len(violations))
	for _, v := range violations {
		name := v.Name
		if name == "" {
			name = v.ProductID
		}
		names = append(names, name)
	}
	return &Notice{
		Level:   NoticeError,
		Message: "Some items in your cart are no longer available in the requested quantity: " + strings.Join(names, ", ") + ".",
	}
}

// Submit runs one checkout attempt for the session. The cart is cleared only
// after the backend accepted the order.
func (s *Submitter) Submit(ctx context.Context, sess *Session, cart Cart, token string, in SubmitInput) (*Result, error) {
	if err := sess.beginSubmit(); err != nil {
		metrics.CheckoutOutcome(metrics.OutcomeInFlight)
		return &Result{State: sess.State()}, apperrors.Conflict(err.Error())
	}

	in, err := normalize(in)
	if err != nil {
		return s.backToIdle(sess, metrics.OutcomeInvalid, nil, err)
	}

	items := cart.Items()
	if len(items) == 0 {
		return s.backToIdle(sess, metrics.OutcomeInvalid, nil, apperrors.InvalidInput("your cart is empty"))
	}

	if token == "" {
		return s.fail(ctx, sess, cart, apperrors.Unauthorized("please sign in to place your order"))
	}

	violations, err := s.StockCheck(ctx, cart)
	if err != nil {
		return s.fail(ctx, sess, cart, err)
	}
	if len(violations) > 0 {
		res, _ := s.backToIdle(sess, metrics.OutcomeOutOfStock, violations, nil)
		res.Notice = StockNotice(violations)
		res.Redirect = &Redirect{Path: CartRedirectPath}
		return res, apperrors.Rejected("OUT_OF_STOCK", res.Notice.Message, nil)
	}

	applied := sess.Applied()
	order := BuildOrder(items, in, applied)

	if err := sess.transition(StateSubmitting); err != nil {
		return s.fail(ctx, sess, cart, err)
	}

	// The order may be accepted even if the shopper goes away mid-request, so
	// finishing the attempt must not depend on the caller's context.
	submitCtx := context.WithoutCancel(ctx)

	placed, err := s.backend.PlaceOrder(submitCtx, token, order)
	if err != nil {
		res, ferr := s.fail(ctx, sess, cart, err)
		res.Payload = &order
		return res, ferr
	}

	if err := cart.Clear(submitCtx); err != nil {
		s.logger.ErrorContext(ctx, "order placed but cart could not be cleared",
			slog.String("session_id", cart.SessionID()),
			slog.String("error", err.Error()),
		)
	}
	if err := sess.succeed(); err != nil {
		return nil, err
	}
	metrics.CheckoutOutcome(metrics.OutcomeSuccess)

	s.publish(submitCtx, cart.SessionID(), placed, order)

	s.logger.InfoContext(ctx, "order placed",
		slog.String("session_id", cart.SessionID()),
		slog.String("order_id", placed.ID),
		slog.Int64("total_amount", int64(order.TotalAmount)),
	)

	return &Result{
		State:    StateSuccess,
		Order:    placed,
		Payload:  &order,
		Notice:   &Notice{Level: NoticeSuccess, Message: "Your order has been placed successfully!"},
		Redirect: &Redirect{Path: SuccessRedirectPath, Delay: SuccessRedirectDelay},
	}, nil
}

func (s *Submitter) publish(ctx context.Context, sessionID string, placed *domain.PlacedOrder, order domain.Order) {
	data := event.OrderPlacedData{
		SessionID:      sessionID,
		OrderID:        placed.ID,
		Items:          order.Items,
		DiscountCode:   order.DiscountCode,
		ShippingCost:   int64(domain.ShippingCost),
		TotalAmount:    int64(order.TotalAmount),
		PaymentMethod:  string(order.PaymentMethod),
		ShipmentMethod: string(order.ShipmentMethod),
	}
	if err := s.events.PublishOrderPlaced(ctx, data); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.placed event",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
	}
	if err := s.events.PublishCartCleared(ctx, sessionID, event.ClearReasonOrderPlaced); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.cleared event",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
	}
}

// backToIdle ends a VALIDATING attempt without a network submission.
func (s *Submitter) backToIdle(sess *Session, outcome string, violations []StockViolation, err error) (*Result, error) {
	_ = sess.transition(StateIdle)
	metrics.CheckoutOutcome(outcome)
	return &Result{State: StateIdle, Violations: violations}, err
}

// fail moves the attempt to FAILED. The cart is left untouched.
func (s *Submitter) fail(ctx context.Context, sess *Session, cart Cart, err error) (*Result, error) {
	_ = sess.transition(StateFailed)

	res := &Result{State: StateFailed}
	message := "Could not place your order, please try again."
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		message = appErr.Message
	}
	res.Notice = &Notice{Level: NoticeError, Message: message}

	outcome := metrics.OutcomeFailed
	if errors.Is(err, apperrors.ErrUnauthorized) {
		outcome = metrics.OutcomeUnauthorized
		res.Redirect = &Redirect{Path: LoginRedirectPath}
	}
	metrics.CheckoutOutcome(outcome)

	s.logger.WarnContext(ctx, "order submission failed",
		slog.String("session_id", cart.SessionID()),
		slog.String("error", err.Error()),
	)
	return res, err
}

// normalize trims the form and applies the default methods. It returns a
// field error for a blank address or an unknown method.
func normalize(in SubmitInput) (SubmitInput, error) {
	in.ShippingAddress = strings.TrimSpace(in.ShippingAddress)
	in.Note = strings.TrimSpace(in.Note)
	if in.ShippingAddress == "" {
		return in, apperrors.FieldError(FieldShippingAddress, "Please enter a shipping address.")
	}

	if in.PaymentMethod == "" {
		in.PaymentMethod = domain.PaymentCOD
	}
	switch in.PaymentMethod {
	case domain.PaymentCOD, domain.PaymentBankTransfer, domain.PaymentVNPay:
	default:
		return in, apperrors.FieldError(FieldPaymentMethod, "Please choose a valid payment method.")
	}

	if in.ShipmentMethod == "" {
		in.ShipmentMethod = domain.ShipmentStandard
	}
	switch in.ShipmentMethod {
	case domain.ShipmentStandard, domain.ShipmentExpress:
	default:
		return in, apperrors.FieldError(FieldShipmentMethod, "Please choose a valid shipment method.")
	}
	return in, nil
}
