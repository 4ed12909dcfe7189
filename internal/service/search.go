package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/gearvn/storefront/internal/domain"
	"github.com/gearvn/storefront/internal/search"
	apperrors "github.com/gearvn/storefront/pkg/errors"
	"github.com/gearvn/storefront/pkg/pagination"
)

// SelectInput is a suggestion the shopper clicked.
type SelectInput struct {
	ProductID string `json:"productId"`
}

// SubmitQueryInput is the raw header search box content.
type SubmitQueryInput struct {
	Query string `json:"query"`
}

// ListInput is a product listing page request.
type ListInput struct {
	Search string
	Sort   string
	Params pagination.Params
}

// SearchService serves header suggestions and the product listing.
type SearchService struct {
	catalog   *search.Catalog
	suggester *search.Suggester
	logger    *slog.Logger
}

// NewSearchService creates a new search service.
func NewSearchService(catalog *search.Catalog, suggester *search.Suggester, logger *slog.Logger) *SearchService {
	return &SearchService{catalog: catalog, suggester: suggester, logger: logger}
}

// Suggest registers a keystroke and waits for the debounced suggestions. It
// returns search.ErrSuperseded when a newer keystroke took over.
func (s *SearchService) Suggest(ctx context.Context, sessionID, query string) ([]search.Suggestion, error) {
	suggestions, err := s.suggester.Suggest(ctx, sessionID, query)
	if err != nil && !errors.Is(err, search.ErrSuperseded) && ctx.Err() == nil {
		s.logger.WarnContext(ctx, "suggestions unavailable",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
	}
	return suggestions, err
}

// Select returns the navigation to a picked product.
func (s *SearchService) Select(ctx context.Context, input SelectInput) (search.Navigation, error) {
	id := strings.TrimSpace(input.ProductID)
	if id == "" {
		return search.Navigation{}, apperrors.FieldError("productId", "product id is required")
	}
	return search.SelectPath(id), nil
}

// Submit returns the navigation to the listing page for the raw query.
func (s *SearchService) Submit(_ context.Context, input SubmitQueryInput) search.Navigation {
	return search.SubmitPath(input.Query)
}

// List returns one page of products matching the search text.
func (s *SearchService) List(ctx context.Context, input ListInput) (pagination.Result[domain.Product], error) {
	if input.Sort == "" {
		input.Sort = search.SortRelevance
	}
	if !search.ValidSort(input.Sort) {
		return pagination.Result[domain.Product]{}, apperrors.FieldError("sort",
			"sort must be one of relevance, price_asc, price_desc, name_asc")
	}
	return s.catalog.Search(ctx, search.Query{
		Text:   strings.TrimSpace(input.Search),
		Sort:   input.Sort,
		Params: input.Params,
	})
}
