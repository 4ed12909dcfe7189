package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gearvn/storefront/internal/checkout"
	"github.com/gearvn/storefront/internal/domain"
	apperrors "github.com/gearvn/storefront/pkg/errors"
)

// UserSource fetches the signed-in shopper.
type UserSource interface {
	MyInfo(ctx context.Context, token string) (*domain.UserInfo, error)
}

// SubmitInput is the checkout form as posted by the page.
type SubmitInput struct {
	ShippingAddress string `json:"shippingAddress"`
	PaymentMethod   string `json:"paymentMethod"`
	ShipmentMethod  string `json:"shipmentMethod"`
	Note            string `json:"note"`
}

// Prefill holds the form values known before the shopper types anything.
type Prefill struct {
	ShippingAddress string `json:"shippingAddress"`
	PaymentMethod   string `json:"paymentMethod"`
	ShipmentMethod  string `json:"shipmentMethod"`
}

// CheckoutView is everything the checkout page needs on mount.
type CheckoutView struct {
	Cart            domain.CartView           `json:"cart"`
	Totals          checkout.Totals           `json:"totals"`
	Applied         *domain.AppliedDiscount   `json:"appliedDiscount,omitempty"`
	State           checkout.State            `json:"state"`
	Prefill         Prefill                   `json:"prefill"`
	PaymentMethods  []domain.PaymentMethod    `json:"paymentMethods"`
	ShipmentMethods []domain.ShipmentMethod   `json:"shipmentMethods"`
	Violations      []checkout.StockViolation `json:"violations,omitempty"`

	Notice   *checkout.Notice   `json:"-"`
	Redirect *checkout.Redirect `json:"-"`
}

type checkoutEntry struct {
	session  *checkout.Session
	lastUsed time.Time
}

// CheckoutService keeps the checkout state of every session and runs
// discount applications and submissions through the submitter.
type CheckoutService struct {
	carts     *CartService
	submitter *checkout.Submitter
	users     UserSource
	logger    *slog.Logger
	idleTTL   time.Duration
	now       func() time.Time

	mu       sync.Mutex
	sessions map[string]*checkoutEntry
}

// NewCheckoutService creates a new checkout service.
func NewCheckoutService(carts *CartService, submitter *checkout.Submitter, users UserSource, logger *slog.Logger, idleTTL time.Duration) *CheckoutService {
	return &CheckoutService{
		carts:     carts,
		submitter: submitter,
		users:     users,
		logger:    logger,
		idleTTL:   idleTTL,
		now:       time.Now,
		sessions:  make(map[string]*checkoutEntry),
	}
}

// Session returns the checkout state of sessionID, creating it on first use.
func (s *CheckoutService) Session(sessionID string) *checkout.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[sessionID]
	if !ok {
		e = &checkoutEntry{session: checkout.NewSession()}
		s.sessions[sessionID] = e
	}
	e.lastUsed = s.now()
	return e.session
}

// View assembles the checkout page. The stock guard runs here so the page
// can send the shopper back to the cart before they fill in the form. A
// token, when present, prefills the shipping address from the profile.
func (s *CheckoutService) View(ctx context.Context, sessionID, token string) (*CheckoutView, error) {
	store, err := s.carts.Store(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	sess := s.Session(sessionID)
	applied := sess.Applied()
	items := store.Items()

	view := &CheckoutView{
		Cart:            store.View(),
		Totals:          checkout.ComputeTotals(items, applied),
		Applied:         applied,
		State:           sess.State(),
		PaymentMethods:  []domain.PaymentMethod{domain.PaymentCOD, domain.PaymentBankTransfer, domain.PaymentVNPay},
		ShipmentMethods: []domain.ShipmentMethod{domain.ShipmentStandard, domain.ShipmentExpress},
		Prefill: Prefill{
			PaymentMethod:  string(domain.PaymentCOD),
			ShipmentMethod: string(domain.ShipmentStandard),
		},
	}

	if len(items) > 0 {
		violations, err := s.submitter.StockCheck(ctx, store)
		switch {
		case err != nil:
			s.logger.WarnContext(ctx, "stock check skipped",
				slog.String("session_id", sessionID),
				slog.String("error", err.Error()),
			)
		case len(violations) > 0:
			view.Violations = violations
			view.Notice = checkout.StockNotice(violations)
			view.Redirect = &checkout.Redirect{Path: checkout.CartRedirectPath}
			return view, nil
		}
	}

	if token != "" {
		user, err := s.users.MyInfo(ctx, token)
		if err != nil {
			s.logger.WarnContext(ctx, "profile prefill failed",
				slog.String("session_id", sessionID),
				slog.String("error", err.Error()),
			)
		} else if user != nil {
			view.Prefill.ShippingAddress = user.Address
		}
	}

	return view, nil
}

// ApplyDiscount validates code and makes it the session's applied
// discount.
func (s *CheckoutService) ApplyDiscount(ctx context.Context, sessionID, code string) (*checkout.DiscountResult, error) {
	store, err := s.carts.Store(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	sess := s.Session(sessionID)
	return s.submitter.ApplyDiscount(ctx, sess, store, code)
}

// ClearDiscount removes the applied discount and returns the undiscounted
// totals.
func (s *CheckoutService) ClearDiscount(ctx context.Context, sessionID string) (checkout.Totals, error) {
	store, err := s.carts.Store(ctx, sessionID)
	if err != nil {
		return checkout.Totals{}, err
	}
	sess := s.Session(sessionID)
	if err := sess.ClearDiscount(); err != nil {
		return checkout.Totals{}, apperrors.Conflict(err.Error())
	}
	return checkout.ComputeTotals(store.Items(), nil), nil
}

// Submit runs one checkout attempt. The result is returned together with
// any error.
func (s *CheckoutService) Submit(ctx context.Context, sessionID, token string, input SubmitInput) (*checkout.Result, error) {
	store, err := s.carts.Store(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	sess := s.Session(sessionID)
	return s.submitter.Submit(ctx, sess, store, token, checkout.SubmitInput{
		ShippingAddress: input.ShippingAddress,
		PaymentMethod:   domain.PaymentMethod(input.PaymentMethod),
		ShipmentMethod:  domain.ShipmentMethod(input.ShipmentMethod),
		Note:            input.Note,
	})
}

// Sweep forgets idle checkout sessions that have nothing in flight.
func (s *CheckoutService) Sweep() int {
	cutoff := s.now().Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.sessions {
		if e.lastUsed.Before(cutoff) && !e.session.State().InFlight() {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}
