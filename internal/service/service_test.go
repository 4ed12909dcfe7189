package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gearvn/storefront/internal/checkout"
	"github.com/gearvn/storefront/internal/domain"
	"github.com/gearvn/storefront/internal/event"
	"github.com/gearvn/storefront/internal/repository"
	redisrepo "github.com/gearvn/storefront/internal/repository/redis"
	"github.com/gearvn/storefront/internal/search"
	apperrors "github.com/gearvn/storefront/pkg/errors"
	"github.com/gearvn/storefront/pkg/logger"
	"github.com/gearvn/storefront/pkg/pagination"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type fakeBackend struct {
	mu        sync.Mutex
	products  []domain.Product
	discounts []domain.DiscountRecord
	user      *domain.UserInfo
	userErr   error
	orders    []domain.Order
}

func (f *fakeBackend) ListProducts(context.Context) ([]domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Product(nil), f.products...), nil
}

func (f *fakeBackend) ListDiscounts(context.Context) ([]domain.DiscountRecord, error) {
	return f.discounts, nil
}

func (f *fakeBackend) MyInfo(context.Context, string) (*domain.UserInfo, error) {
	if f.userErr != nil {
		return nil, f.userErr
	}
	return f.user, nil
}

func (f *fakeBackend) PlaceOrder(_ context.Context, _ string, order domain.Order) (*domain.PlacedOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = append(f.orders, order)
	return &domain.PlacedOrder{ID: "o-1", TotalAmount: order.TotalAmount}, nil
}

func (f *fakeBackend) setStock(id string, qty int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.products {
		if f.products[i].ID == id {
			f.products[i].Quantity = qty
		}
	}
}

type recordingPublisher struct {
	mu      sync.Mutex
	reasons []string
}

func (p *recordingPublisher) PublishOrderPlaced(context.Context, event.OrderPlacedData) error {
	return nil
}

func (p *recordingPublisher) PublishCartCleared(_ context.Context, _, reason string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reasons = append(p.reasons, reason)
	return nil
}

// countingRepo counts storage reads.
type countingRepo struct {
	repository.CartRepository
	reads atomic.Int32
}

func (r *countingRepo) GetCart(ctx context.Context, sessionID string) ([]byte, error) {
	r.reads.Add(1)
	return r.CartRepository.GetCart(ctx, sessionID)
}

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

var hcm = time.FixedZone("ICT", 7*3600)

var (
	productA = domain.Product{ID: "a", Name: "RAM 16GB", Code: "RAM16", SalePrice: 500_000, Quantity: 3}
	productB = domain.Product{ID: "b", Name: "SSD 1TB", Code: "SSD1T", SalePrice: 300_000, Quantity: 10}
)

type fixture struct {
	mr       *miniredis.Miniredis
	repo     *countingRepo
	sessions *redisrepo.SessionRepository
	backend  *fakeBackend
	events   *recordingPublisher
	catalog  *search.Catalog
	carts    *CartService
	checkout *CheckoutService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	sessions := redisrepo.NewSessionRepository(client, time.Hour)
	repo := &countingRepo{CartRepository: sessions}

	ten := decimal.NewFromInt(10)
	backend := &fakeBackend{
		products: []domain.Product{productA, productB},
		discounts: []domain.DiscountRecord{{
			ID: "d-1", Code: "SAVE10",
			StartDate: domain.MustDate("2025-01-01"), EndDate: domain.MustDate("2025-12-31"),
			Status: domain.DiscountStatusActive, Quantity: 5, IsGlobal: true,
			Type: domain.DiscountPercentage, DiscountPercent: &ten,
		}},
	}
	events := &recordingPublisher{}
	log := logger.Discard()

	catalog := search.NewCatalog(backend, 0, log)
	carts := NewCartService(repo, catalog, events, log, 30*time.Minute)
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, hcm)
	submitter := checkout.NewSubmitter(backend, events, log, hcm).WithClock(func() time.Time { return now })

	return &fixture{
		mr:       mr,
		repo:     repo,
		sessions: sessions,
		backend:  backend,
		events:   events,
		catalog:  catalog,
		carts:    carts,
		checkout: NewCheckoutService(carts, submitter, backend, log, 30*time.Minute),
	}
}

// ---------------------------------------------------------------------------
// CartService
// ---------------------------------------------------------------------------

func TestCartService_AddItemSnapshotsCatalogProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	view, err := f.carts.AddItem(ctx, "s1", AddItemInput{ProductID: "a"})
	require.NoError(t, err)

	require.Len(t, view.Items, 1)
	assert.Equal(t, productA, view.Items[0].Product)
	assert.Equal(t, 1, view.Items[0].Quantity, "missing quantity defaults to 1")
	assert.Equal(t, domain.Money(500_000), view.TotalPrice)

	raw, err := f.mr.Get(repository.CartKeyPrefix + "s1")
	require.NoError(t, err)
	assert.Contains(t, raw, `"id":"a"`)
}

func TestCartService_AddItemUnknownProduct(t *testing.T) {
	f := newFixture(t)

	_, err := f.carts.AddItem(context.Background(), "s1", AddItemInput{ProductID: "nope", Quantity: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCartService_AddItemRespectsStockAcrossAdds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.carts.AddItem(ctx, "s1", AddItemInput{ProductID: "a", Quantity: 2})
	require.NoError(t, err)

	_, err = f.carts.AddItem(ctx, "s1", AddItemInput{ProductID: "a", Quantity: 2})
	require.Error(t, err)
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "OUT_OF_STOCK", appErr.Code)

	view, err := f.carts.GetCart(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, view.TotalItems, "rejected add leaves the cart unchanged")
}

func TestCartService_ConcurrentAddsStayWithinStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const workers = 8
	var (
		wg       sync.WaitGroup
		rejected atomic.Int32
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.carts.AddItem(ctx, "s1", AddItemInput{ProductID: "a", Quantity: 1}); err != nil {
				assert.ErrorIs(t, err, apperrors.ErrRejected)
				rejected.Add(1)
			}
		}()
	}
	wg.Wait()

	view, err := f.carts.GetCart(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, productA.Quantity, view.TotalItems)
	assert.Equal(t, int32(workers-productA.Quantity), rejected.Load())
}

func TestCartService_AddItemNegativeQuantity(t *testing.T) {
	f := newFixture(t)

	_, err := f.carts.AddItem(context.Background(), "s1", AddItemInput{ProductID: "a", Quantity: -1})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestCartService_HydratesOncePerSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	stores := make(chan any, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := f.carts.Store(ctx, "s1")
			assert.NoError(t, err)
			stores <- s
		}()
	}
	wg.Wait()
	close(stores)

	first := <-stores
	for s := range stores {
		assert.Same(t, first, s)
	}
	assert.Equal(t, int32(1), f.repo.reads.Load())
	assert.Equal(t, 1, f.carts.Active())
}

func TestCartService_SurvivesRestart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.carts.AddItem(ctx, "s1", AddItemInput{ProductID: "b", Quantity: 4})
	require.NoError(t, err)

	restarted := NewCartService(f.sessions, f.catalog, f.events, logger.Discard(), time.Minute)
	view, err := restarted.GetCart(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 4, view.Items[0].Quantity)
	assert.Equal(t, domain.Money(1_200_000), view.TotalPrice)
}

func TestCartService_SweepEvictsIdleStores(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	clock := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	f.carts.now = func() time.Time { return clock }

	_, err := f.carts.AddItem(ctx, "s1", AddItemInput{ProductID: "b", Quantity: 1})
	require.NoError(t, err)
	_, err = f.carts.GetCart(ctx, "s2")
	require.NoError(t, err)

	clock = clock.Add(20 * time.Minute)
	_, err = f.carts.GetCart(ctx, "s2")
	require.NoError(t, err)

	clock = clock.Add(15 * time.Minute)
	assert.Equal(t, 1, f.carts.Sweep())
	assert.Equal(t, 1, f.carts.Active())

	view, err := f.carts.GetCart(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, view.TotalItems, "evicted cart is hydrated again from storage")
}

func TestCartService_UpdateAndRemove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.carts.AddItem(ctx, "s1", AddItemInput{ProductID: "b", Quantity: 1})
	require.NoError(t, err)

	view, err := f.carts.UpdateItemQuantity(ctx, "s1", "b", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, view.TotalItems)

	_, err = f.carts.UpdateItemQuantity(ctx, "s1", "nope", 2)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	view, err = f.carts.UpdateItemQuantity(ctx, "s1", "b", 0)
	require.NoError(t, err)
	assert.Empty(t, view.Items)

	_, err = f.carts.RemoveItem(ctx, "s1", "b")
	assert.NoError(t, err, "removing an absent item is a no-op")
}

func TestCartService_ClearCartPublishesShopperReason(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.carts.AddItem(ctx, "s1", AddItemInput{ProductID: "b", Quantity: 1})
	require.NoError(t, err)
	require.NoError(t, f.carts.ClearCart(ctx, "s1"))

	assert.False(t, f.mr.Exists(repository.CartKeyPrefix+"s1"))
	assert.Equal(t, []string{event.ClearReasonShopper}, f.events.reasons)
}

func TestCartService_RequiresSessionID(t *testing.T) {
	f := newFixture(t)
	_, err := f.carts.GetCart(context.Background(), "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

// ---------------------------------------------------------------------------
// CheckoutService
// ---------------------------------------------------------------------------

func TestCheckoutService_ViewPrefillsAddress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.backend.user = &domain.UserInfo{ID: "u-1", Address: "12 Le Loi, HCMC"}

	_, err := f.carts.AddItem(ctx, "s1", AddItemInput{ProductID: "a", Quantity: 2})
	require.NoError(t, err)

	view, err := f.checkout.View(ctx, "s1", "tok")
	require.NoError(t, err)
	assert.Equal(t, "12 Le Loi, HCMC", view.Prefill.ShippingAddress)
	assert.Equal(t, "COD", view.Prefill.PaymentMethod)
	assert.Equal(t, "STANDARD", view.Prefill.ShipmentMethod)
	assert.Equal(t, domain.Money(1_030_000), view.Totals.Total)
	assert.Equal(t, checkout.StateIdle, view.State)
	assert.Nil(t, view.Redirect)
	assert.Len(t, view.PaymentMethods, 3)
	assert.Len(t, view.ShipmentMethods, 2)
}

func TestCheckoutService_ViewWithoutTokenSkipsPrefill(t *testing.T) {
	f := newFixture(t)
	f.backend.userErr = errors.New("must not be called")

	view, err := f.checkout.View(context.Background(), "s1", "")
	require.NoError(t, err)
	assert.Empty(t, view.Prefill.ShippingAddress)
}

func TestCheckoutService_ViewProfileFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.backend.userErr = apperrors.Unauthorized("session expired")

	view, err := f.checkout.View(context.Background(), "s1", "tok")
	require.NoError(t, err)
	assert.Empty(t, view.Prefill.ShippingAddress)
}

func TestCheckoutService_ViewRedirectsOnStockViolation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.carts.AddItem(ctx, "s1", AddItemInput{ProductID: "a", Quantity: 3})
	require.NoError(t, err)
	f.backend.setStock("a", 1)

	view, err := f.checkout.View(ctx, "s1", "")
	require.NoError(t, err)
	require.NotNil(t, view.Redirect)
	assert.Equal(t, checkout.CartRedirectPath, view.Redirect.Path)
	require.Len(t, view.Violations, 1)
	assert.Equal(t, "a", view.Violations[0].ProductID)
	assert.Contains(t, view.Notice.Message, "RAM 16GB")
}

func TestCheckoutService_DiscountThenSubmit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.carts.AddItem(ctx, "s1", AddItemInput{ProductID: "a", Quantity: 2})
	require.NoError(t, err)
	_, err = f.carts.AddItem(ctx, "s1", AddItemInput{ProductID: "b", Quantity: 1})
	require.NoError(t, err)

	dr, err := f.checkout.ApplyDiscount(ctx, "s1", " save10 ")
	require.NoError(t, err)
	assert.Equal(t, domain.Money(1_170_000), dr.Totals.Discounted)

	res, err := f.checkout.Submit(ctx, "s1", "tok", SubmitInput{ShippingAddress: "12 Le Loi"})
	require.NoError(t, err)
	assert.Equal(t, checkout.StateSuccess, res.State)
	require.Len(t, f.backend.orders, 1)
	assert.Equal(t, domain.Money(1_200_000), f.backend.orders[0].TotalAmount)
	assert.Equal(t, "SAVE10", f.backend.orders[0].DiscountCode)

	assert.False(t, f.mr.Exists(repository.CartKeyPrefix+"s1"))
	view, err := f.carts.GetCart(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.Nil(t, f.checkout.Session("s1").Applied())
}

func TestCheckoutService_ClearDiscountRestoresSubtotal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.carts.AddItem(ctx, "s1", AddItemInput{ProductID: "b", Quantity: 1})
	require.NoError(t, err)
	_, err = f.checkout.ApplyDiscount(ctx, "s1", "SAVE10")
	require.NoError(t, err)

	totals, err := f.checkout.ClearDiscount(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.Money(300_000), totals.Discounted)
	assert.Nil(t, f.checkout.Session("s1").Applied())
}

func TestCheckoutService_SweepKeepsRecentSessions(t *testing.T) {
	f := newFixture(t)
	clock := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	f.checkout.now = func() time.Time { return clock }

	f.checkout.Session("old")
	clock = clock.Add(40 * time.Minute)
	f.checkout.Session("new")

	assert.Equal(t, 1, f.checkout.Sweep())
	assert.Equal(t, 0, f.checkout.Sweep())
}

// ---------------------------------------------------------------------------
// SessionService
// ---------------------------------------------------------------------------

func TestSessionService_Token(t *testing.T) {
	f := newFixture(t)
	svc := NewSessionService(f.sessions, logger.Discard())
	ctx := context.Background()

	tok, err := svc.Token(ctx, "s1", "")
	require.NoError(t, err)
	assert.Empty(t, tok, "no token is not an error")

	require.NoError(t, svc.SetToken(ctx, "s1", " stored "))
	tok, err = svc.Token(ctx, "s1", "")
	require.NoError(t, err)
	assert.Equal(t, "stored", tok)

	tok, err = svc.Token(ctx, "s1", "header")
	require.NoError(t, err)
	assert.Equal(t, "header", tok, "header token wins")

	require.NoError(t, svc.ClearToken(ctx, "s1"))
	tok, err = svc.Token(ctx, "s1", "")
	require.NoError(t, err)
	assert.Empty(t, tok)
}

func TestSessionService_SetBlankToken(t *testing.T) {
	f := newFixture(t)
	svc := NewSessionService(f.sessions, logger.Discard())
	assert.ErrorIs(t, svc.SetToken(context.Background(), "s1", "  "), apperrors.ErrInvalidInput)
}

// ---------------------------------------------------------------------------
// SearchService
// ---------------------------------------------------------------------------

func newSearchService(f *fixture) *SearchService {
	suggester := search.NewSuggester(f.catalog, 10*time.Millisecond, 8, logger.Discard())
	return NewSearchService(f.catalog, suggester, logger.Discard())
}

func TestSearchService_List(t *testing.T) {
	f := newFixture(t)
	svc := newSearchService(f)

	res, err := svc.List(context.Background(), ListInput{Search: " ssd ", Params: pagination.DefaultParams()})
	require.NoError(t, err)
	require.Len(t, res.Data, 1)
	assert.Equal(t, "b", res.Data[0].ID)

	_, err = svc.List(context.Background(), ListInput{Sort: "cheapest", Params: pagination.DefaultParams()})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestSearchService_Suggest(t *testing.T) {
	f := newFixture(t)
	svc := newSearchService(f)

	got, err := svc.Suggest(context.Background(), "s1", "ram")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
}

func TestSearchService_Navigation(t *testing.T) {
	f := newFixture(t)
	svc := newSearchService(f)

	nav, err := svc.Select(context.Background(), SelectInput{ProductID: "a"})
	require.NoError(t, err)
	assert.Equal(t, search.Navigation{Redirect: "/products/a", ClearQuery: true}, nav)

	_, err = svc.Select(context.Background(), SelectInput{ProductID: " "})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	assert.Equal(t, "/products?search=rtx+4070", svc.Submit(context.Background(), SubmitQueryInput{Query: "rtx 4070"}).Redirect)
}

// ---------------------------------------------------------------------------
// Janitor
// ---------------------------------------------------------------------------

func TestRunJanitor_SweepsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32

	done := make(chan struct{})
	go func() {
		RunJanitor(ctx, 5*time.Millisecond, logger.Discard(), SweepFunc{
			Label: "test",
			Fn:    func() int { calls.Add(1); return 1 },
		})
		close(done)
	}()

	require.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}
