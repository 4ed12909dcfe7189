// Package search matches shopper queries against the product catalog and
// serves debounced as-you-type suggestions.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/gearvn/storefront/internal/domain"
	"github.com/gearvn/storefront/pkg/pagination"
)

// Sort orders for the listing page.
const (
	SortRelevance = "relevance"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortNameAsc   = "name_asc"
)

// refreshTimeout bounds one catalog fetch, independent of the caller.
const refreshTimeout = 15 * time.Second

// ProductSource lists the live catalog.
type ProductSource interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
}

// Catalog is an in-memory copy of the product list, refreshed from the
// backend once it is older than the TTL. Concurrent refreshes are collapsed
// into one fetch.
type Catalog struct {
	src    ProductSource
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time

	group singleflight.Group

	mu        sync.RWMutex
	products  []domain.Product
	fetchedAt time.Time
}

// NewCatalog creates a catalog over src.
func NewCatalog(src ProductSource, ttl time.Duration, logger *slog.Logger) *Catalog {
	return &Catalog{
		src:    src,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// Products returns the catalog, fetching it when stale. If a refresh fails
// and an older copy exists, the older copy is served.
func (c *Catalog) Products(ctx context.Context) ([]domain.Product, error) {
	c.mu.RLock()
	products, fetchedAt := c.products, c.fetchedAt
	c.mu.RUnlock()

	if !fetchedAt.IsZero() && c.now().Sub(fetchedAt) < c.ttl {
		return products, nil
	}

	ch := c.group.DoChan("products", func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		return c.refresh(fetchCtx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			if !fetchedAt.IsZero() {
				c.logger.WarnContext(ctx, "serving stale catalog after refresh failure",
					slog.String("error", res.Err.Error()),
					slog.Time("fetched_at", fetchedAt),
				)
				return products, nil
			}
			return nil, fmt.Errorf("load catalog: %w", res.Err)
		}
		return res.Val.([]domain.Product), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Catalog) refresh(ctx context.Context) ([]domain.Product, error) {
	products, err := c.src.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []domain.Product{}
	}

	c.mu.Lock()
	c.products = products
	c.fetchedAt = c.now()
	c.mu.Unlock()

	c.logger.DebugContext(ctx, "catalog refreshed", slog.Int("products", len(products)))
	return products, nil
}

// Invalidate forces the next call to refetch.
func (c *Catalog) Invalidate() {
	c.mu.Lock()
	c.fetchedAt = time.Time{}
	c.mu.Unlock()
}

// Matches reports whether p's name or code contains query, ignoring case.
// query must already be lower-cased.
func Matches(p domain.Product, query string) bool {
	return strings.Contains(strings.ToLower(p.Name), query) ||
		strings.Contains(strings.ToLower(p.Code), query)
}

// Filter returns the products matching query in catalog order. A blank query
// matches everything.
func Filter(products []domain.Product, query string) []domain.Product {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if q == "" || Matches(p, q) {
			out = append(out, p)
		}
	}
	return out
}

// ValidSort reports whether s names a supported sort order.
func ValidSort(s string) bool {
	switch s {
	case SortRelevance, SortPriceAsc, SortPriceDesc, SortNameAsc:
		return true
	}
	return false
}

// Sort orders products in place. Relevance ranks name prefix matches first,
// then other name matches, then code-only matches; ties keep catalog order.
func Sort(products []domain.Product, order, query string) {
	switch order {
	case SortPriceAsc:
		sort.SliceStable(products, func(i, j int) bool { return products[i].Price() < products[j].Price() })
	case SortPriceDesc:
		sort.SliceStable(products, func(i, j int) bool { return products[i].Price() > products[j].Price() })
	case SortNameAsc:
		sort.SliceStable(products, func(i, j int) bool {
			return strings.ToLower(products[i].Name) < strings.ToLower(products[j].Name)
		})
	default:
		q := strings.ToLower(strings.TrimSpace(query))
		if q == "" {
			return
		}
		sort.SliceStable(products, func(i, j int) bool { return rank(products[i], q) < rank(products[j], q) })
	}
}

func rank(p domain.Product, q string) int {
	name := strings.ToLower(p.Name)
	switch {
	case strings.HasPrefix(name, q):
		return 0
	case strings.Contains(name, q):
		return 1
	default:
		return 2
	}
}

// Query is a listing page request.
type Query struct {
	Text   string
	Sort   string
	Params pagination.Params
}

// Search filters, sorts and paginates the catalog.
func (c *Catalog) Search(ctx context.Context, q Query) (pagination.Result[domain.Product], error) {
	products, err := c.Products(ctx)
	if err != nil {
		return pagination.Result[domain.Product]{}, err
	}
	matched := Filter(products, q.Text)
	Sort(matched, q.Sort, q.Text)
	return pagination.Paginate(matched, q.Params), nil
}
