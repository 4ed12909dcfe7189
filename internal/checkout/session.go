package checkout

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gearvn/storefront/internal/domain"
)

var (
	// ErrSubmissionInFlight is returned when a submission or discount apply
	// is attempted while an order submission for the session is pending.
	ErrSubmissionInFlight = errors.New("an order submission is already in progress")

	// ErrDiscountPending is returned when a submission or another discount
	// apply is attempted while a discount apply is pending.
	ErrDiscountPending = errors.New("a discount code is still being applied")
)

// Session is the checkout state of one browser session: the state machine of
// the current attempt and the applied discount. All methods are safe for
// concurrent use.
type Session struct {
	mu              sync.Mutex
	state           State
	applied         *domain.AppliedDiscount
	discountPending bool
}

// NewSession returns an idle session without a discount.
func NewSession() *Session {
	return &Session{state: StateIdle}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Applied returns a copy of the applied discount, or nil.
func (s *Session) Applied() *domain.AppliedDiscount {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.applied == nil {
		return nil
	}
	cp := *s.applied
	return &cp
}

// beginSubmit moves the session to VALIDATING. A finished attempt is reset to
// IDLE first.
func (s *Session) beginSubmit() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.InFlight() {
		return ErrSubmissionInFlight
	}
	if s.discountPending {
		return ErrDiscountPending
	}
	if s.state.Terminal() {
		s.state = StateIdle
	}
	return s.transitionLocked(StateValidating)
}

func (s *Session) transition(next State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transitionLocked(next)
}

func (s *Session) transitionLocked(next State) error {
	if !s.state.CanTransition(next) {
		return fmt.Errorf("invalid checkout transition %s -> %s", s.state, next)
	}
	s.state = next
	return nil
}

// succeed records a placed order and drops the applied discount.
func (s *Session) succeed() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.transitionLocked(StateSuccess); err != nil {
		return err
	}
	s.applied = nil
	return nil
}

// beginDiscount marks a discount apply as pending.
func (s *Session) beginDiscount() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.InFlight() {
		return ErrSubmissionInFlight
	}
	if s.discountPending {
		return ErrDiscountPending
	}
	s.discountPending = true
	return nil
}

// endDiscount finishes a pending apply. A nil applied keeps the prior
// discount.
func (s *Session) endDiscount(applied *domain.AppliedDiscount) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.discountPending = false
	if applied != nil {
		s.applied = applied
	}
}

// ClearDiscount unsets the applied discount.
func (s *Session) ClearDiscount() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.InFlight() {
		return ErrSubmissionInFlight
	}
	s.applied = nil
	return nil
}
