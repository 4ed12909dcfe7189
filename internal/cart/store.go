// Package cart holds the shopping cart of one browser session and keeps its
// durable copy in sync after every mutation.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gearvn/storefront/internal/domain"
	"github.com/gearvn/storefront/internal/repository"
	apperrors "github.com/gearvn/storefront/pkg/errors"
)

// Store is the cart of a single session. All methods are safe for
// concurrent use.
type Store struct {
	mu        sync.Mutex
	sessionID string
	repo      repository.CartRepository
	logger    *slog.Logger
	items     []domain.CartLineItem
}

// Open hydrates the cart of sessionID from repo. A stored value that fails
// validation is deleted and the cart starts empty; storage errors are
// returned.
func Open(ctx context.Context, sessionID string, repo repository.CartRepository, logger *slog.Logger) (*Store, error) {
	s := &Store{
		sessionID: sessionID,
		repo:      repo,
		logger:    logger,
	}

	data, err := repo.GetCart(ctx, sessionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return s, nil
		}
		return nil, fmt.Errorf("load cart: %w", err)
	}

	items, err := Decode(data)
	if err != nil {
		logger.WarnContext(ctx, "discarding malformed stored cart",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
		if delErr := repo.DeleteCart(ctx, sessionID); delErr != nil {
			return nil, fmt.Errorf("discard malformed cart: %w", delErr)
		}
		return s, nil
	}

	s.items = items
	return s, nil
}

// SessionID returns the session the cart belongs to.
func (s *Store) SessionID() string {
	return s.sessionID
}

// Add merges quantity into the line for product.ID, or appends a new line.
// No upper bound is enforced; see AddWithinStock.
func (s *Store) Add(ctx context.Context, product domain.Product, quantity int) error {
	return s.add(ctx, product, quantity, -1)
}

// AddWithinStock is Add with the stock bound checked under the cart lock:
// it returns domain.ErrExceedsStock, leaving the cart unchanged, when the
// merged line quantity would exceed available.
func (s *Store) AddWithinStock(ctx context.Context, product domain.Product, quantity, available int) error {
	if available < 0 {
		available = 0
	}
	return s.add(ctx, product, quantity, available)
}

// add merges quantity into the cart. A negative limit means unbounded.
func (s *Store) add(ctx context.Context, product domain.Product, quantity, limit int) error {
	if product.ID == "" {
		return domain.ErrInvalidProduct
	}
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.clone()
	i := indexOf(next, product.ID)
	inCart := 0
	if i >= 0 {
		inCart = next[i].Quantity
	}
	if limit >= 0 && inCart+quantity > limit {
		return domain.ErrExceedsStock
	}
	if i >= 0 {
		next[i].Quantity += quantity
	} else {
		next = append(next, domain.CartLineItem{Product: product, Quantity: quantity})
	}
	return s.commit(ctx, next)
}

// Remove deletes the line for productID. Removing an absent product is a no-op.
func (s *Store) Remove(ctx context.Context, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.remove(ctx, productID)
}

// UpdateQuantity sets the quantity of productID exactly. A quantity of zero
// or less removes the line.
func (s *Store) UpdateQuantity(ctx context.Context, productID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if quantity <= 0 {
		return s.remove(ctx, productID)
	}

	i := indexOf(s.items, productID)
	if i < 0 {
		return apperrors.NotFound("cart item", productID)
	}
	next := s.clone()
	next[i].Quantity = quantity
	return s.commit(ctx, next)
}

// Clear empties the cart and deletes its durable copy. The durable copy is
// removed first so that a failed delete leaves the cart untouched.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.DeleteCart(ctx, s.sessionID); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	s.items = nil
	return nil
}

// TotalItems is the sum of all line quantities.
func (s *Store) TotalItems() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for _, l := range s.items {
		total += l.Quantity
	}
	return total
}

// TotalPrice is the sum of snapshot price times quantity over all lines.
func (s *Store) TotalPrice() domain.Money {
	s.mu.Lock()
	defer s.mu.Unlock()

	return totalPrice(s.items)
}

// Items returns a copy of the lines in insertion order.
func (s *Store) Items() []domain.CartLineItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.clone()
}

// View returns the lines together with both totals, taken atomically.
func (s *Store) View() domain.CartView {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.clone()
	if items == nil {
		items = []domain.CartLineItem{}
	}
	total := 0
	for _, l := range items {
		total += l.Quantity
	}
	return domain.CartView{
		Items:      items,
		TotalItems: total,
		TotalPrice: totalPrice(items),
	}
}

func (s *Store) remove(ctx context.Context, productID string) error {
	i := indexOf(s.items, productID)
	if i < 0 {
		return nil
	}
	next := s.clone()
	next = append(next[:i], next[i+1:]...)
	return s.commit(ctx, next)
}

// commit persists next and only then makes it the in-memory state, so the
// two never diverge.
func (s *Store) commit(ctx context.Context, next []domain.CartLineItem) error {
	data, err := Encode(next)
	if err != nil {
		return err
	}
	if err := s.repo.SaveCart(ctx, s.sessionID, data); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	s.items = next
	return nil
}

func (s *Store) clone() []domain.CartLineItem {
	if s.items == nil {
		return nil
	}
	out := make([]domain.CartLineItem, len(s.items))
	copy(out, s.items)
	return out
}

func indexOf(items []domain.CartLineItem, productID string) int {
	for i := range items {
		if items[i].Product.ID == productID {
			return i
		}
	}
	return -1
}

func totalPrice(items []domain.CartLineItem) domain.Money {
	var total domain.Money
	for _, l := range items {
		total += l.LineTotal()
	}
	return total
}

// Encode serializes lines as the stored JSON array.
func Encode(items []domain.CartLineItem) ([]byte, error) {
	if items == nil {
		items = []domain.CartLineItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("marshal cart: %w", err)
	}
	return data, nil
}
