package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/gearvn/storefront/internal/cart"
	"github.com/gearvn/storefront/internal/domain"
	"github.com/gearvn/storefront/internal/event"
	"github.com/gearvn/storefront/internal/metrics"
	"github.com/gearvn/storefront/internal/repository"
	apperrors "github.com/gearvn/storefront/pkg/errors"
)

// Catalog looks up live products.
type Catalog interface {
	Products(ctx context.Context) ([]domain.Product, error)
}

// AddItemInput holds the parameters for adding a product to the cart.
type AddItemInput struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type cartEntry struct {
	store    *cart.Store
	lastUsed time.Time
}

// CartService keeps one hydrated cart per session. Storage is read the
// first time a session is seen; afterwards the in-memory cart is
// authoritative and every mutation is written through.
type CartService struct {
	repo    repository.CartRepository
	catalog Catalog
	events  event.Publisher
	logger  *slog.Logger
	idleTTL time.Duration
	now     func() time.Time

	group singleflight.Group

	mu      sync.Mutex
	entries map[string]*cartEntry
}

// NewCartService creates a new cart service. Carts unused for idleTTL are
// dropped from memory by Sweep; their durable copy stays.
func NewCartService(repo repository.CartRepository, catalog Catalog, events event.Publisher, logger *slog.Logger, idleTTL time.Duration) *CartService {
	return &CartService{
		repo:    repo,
		catalog: catalog,
		events:  events,
		logger:  logger,
		idleTTL: idleTTL,
		now:     time.Now,
		entries: make(map[string]*cartEntry),
	}
}

// Store returns the session's cart, hydrating it on first use.
func (s *CartService) Store(ctx context.Context, sessionID string) (*cart.Store, error) {
	if sessionID == "" {
		return nil, apperrors.InvalidInput("session id is required")
	}

	s.mu.Lock()
	if e, ok := s.entries[sessionID]; ok {
		e.lastUsed = s.now()
		s.mu.Unlock()
		return e.store, nil
	}
	s.mu.Unlock()

	v, err, _ := s.group.Do(sessionID, func() (any, error) {
		s.mu.Lock()
		if e, ok := s.entries[sessionID]; ok {
			s.mu.Unlock()
			return e.store, nil
		}
		s.mu.Unlock()

		store, err := cart.Open(ctx, sessionID, s.repo, s.logger)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		s.entries[sessionID] = &cartEntry{store: store, lastUsed: s.now()}
		n := len(s.entries)
		s.mu.Unlock()
		metrics.SetActiveCarts(n)
		return store, nil
	})
	if err != nil {
		return nil, fmt.Errorf("open cart: %w", err)
	}
	return v.(*cart.Store), nil
}

// GetCart returns the session's cart with its totals.
func (s *CartService) GetCart(ctx context.Context, sessionID string) (domain.CartView, error) {
	store, err := s.Store(ctx, sessionID)
	if err != nil {
		return domain.CartView{}, err
	}
	return store.View(), nil
}

// AddItem snapshots the live product and merges it into the cart. The
// combined quantity may not exceed the stock on hand.
func (s *CartService) AddItem(ctx context.Context, sessionID string, input AddItemInput) (domain.CartView, error) {
	if input.Quantity < 0 {
		return domain.CartView{}, apperrors.FieldError("quantity", "quantity must be at least 1")
	}
	if input.Quantity == 0 {
		input.Quantity = 1
	}

	store, err := s.Store(ctx, sessionID)
	if err != nil {
		return domain.CartView{}, err
	}

	product, err := s.lookup(ctx, input.ProductID)
	if err != nil {
		return domain.CartView{}, err
	}

	// The catalog stock may be up to the catalog TTL old; checkout
	// re-checks live stock before placing the order.
	if err := store.AddWithinStock(ctx, product, input.Quantity, product.Quantity); err != nil {
		if errors.Is(err, domain.ErrExceedsStock) {
			return domain.CartView{}, apperrors.Rejected("OUT_OF_STOCK",
				fmt.Sprintf("Only %d of %s left in stock.", product.Quantity, displayName(product)), nil)
		}
		return domain.CartView{}, mapCartError(err)
	}

	s.logger.InfoContext(ctx, "item added to cart",
		slog.String("session_id", sessionID),
		slog.String("product_id", product.ID),
		slog.Int("quantity", input.Quantity),
	)
	return store.View(), nil
}

// UpdateItemQuantity sets the quantity of a line exactly; zero or less
// removes it.
func (s *CartService) UpdateItemQuantity(ctx context.Context, sessionID, productID string, quantity int) (domain.CartView, error) {
	store, err := s.Store(ctx, sessionID)
	if err != nil {
		return domain.CartView{}, err
	}
	if err := store.UpdateQuantity(ctx, productID, quantity); err != nil {
		return domain.CartView{}, mapCartError(err)
	}
	return store.View(), nil
}

// RemoveItem removes a line. Removing an absent product is not an error.
func (s *CartService) RemoveItem(ctx context.Context, sessionID, productID string) (domain.CartView, error) {
	store, err := s.Store(ctx, sessionID)
	if err != nil {
		return domain.CartView{}, err
	}
	if err := store.Remove(ctx, productID); err != nil {
		return domain.CartView{}, mapCartError(err)
	}
	return store.View(), nil
}

// ClearCart empties the cart at the shopper's request.
func (s *CartService) ClearCart(ctx context.Context, sessionID string) error {
	store, err := s.Store(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := store.Clear(ctx); err != nil {
		return mapCartError(err)
	}

	if err := s.events.PublishCartCleared(ctx, sessionID, event.ClearReasonShopper); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.cleared event",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

// Sweep drops carts idle for longer than the idle TTL from memory.
func (s *CartService) Sweep() int {
	cutoff := s.now().Add(-s.idleTTL)

	s.mu.Lock()
	removed := 0
	for id, e := range s.entries {
		if e.lastUsed.Before(cutoff) {
			delete(s.entries, id)
			removed++
		}
	}
	n := len(s.entries)
	s.mu.Unlock()

	metrics.SetActiveCarts(n)
	return removed
}

// Active returns the number of carts held in memory.
func (s *CartService) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *CartService) lookup(ctx context.Context, productID string) (domain.Product, error) {
	products, err := s.catalog.Products(ctx)
	if err != nil {
		return domain.Product{}, err
	}
	for _, p := range products {
		if p.ID == productID {
			return p, nil
		}
	}
	return domain.Product{}, apperrors.NotFound("product", productID)
}

func displayName(p domain.Product) string {
	if p.Name != "" {
		return p.Name
	}
	return p.ID
}

// mapCartError wraps domain errors into AppErrors at the service edge.
func mapCartError(err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidQuantity):
		return apperrors.FieldError("quantity", err.Error())
	case errors.Is(err, domain.ErrInvalidProduct):
		return apperrors.FieldError("productId", err.Error())
	default:
		return err
	}
}
