// Package backend is a typed client for the shop's REST API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"github.com/gearvn/storefront/internal/domain"
	apperrors "github.com/gearvn/storefront/pkg/errors"
	"github.com/gearvn/storefront/pkg/httpclient"
	"github.com/gearvn/storefront/pkg/tracing"
)

const serviceName = "backend"

// Endpoint paths relative to the base URL.
const (
	PathProducts   = "/products"
	PathDiscounts  = "/discounts"
	PathMyInfo     = "/users/myInfo"
	PathPlaceOrder = "/orders/place"
)

// HTTPDoer is the interface for executing HTTP requests.
// Both httpclient.Client and httpclient.CircuitBreakerClient satisfy this.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// CircuitOpenFallback answers with a structured 503 instead of the raw
// breaker error while the backend is considered down.
func CircuitOpenFallback(_ context.Context, _ error) (*http.Response, error) {
	return nil, apperrors.ServiceUnavailable("the store is temporarily unavailable, please try again shortly")
}

// envelope is the response wrapper used by every backend endpoint. Code 0
// means success.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// Client calls the backend API.
type Client struct {
	http    HTTPDoer
	baseURL string
	logger  *slog.Logger
}

// NewClient creates a client for the API rooted at baseURL, e.g.
// http://localhost:8080/datn.
func NewClient(doer HTTPDoer, baseURL string, logger *slog.Logger) *Client {
	return &Client{
		http:    doer,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// ListProducts returns the full product catalog.
func (c *Client) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	if err := c.getList(ctx, PathProducts, &products); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// ListDiscounts returns every discount record known to the backend.
func (c *Client) ListDiscounts(ctx context.Context) ([]domain.DiscountRecord, error) {
	var discounts []domain.DiscountRecord
	if err := c.getList(ctx, PathDiscounts, &discounts); err != nil {
		return nil, fmt.Errorf("list discounts: %w", err)
	}
	return discounts, nil
}

// MyInfo returns the shopper the token belongs to.
func (c *Client) MyInfo(ctx context.Context, token string) (*domain.UserInfo, error) {
	var info domain.UserInfo
	if err := c.call(ctx, http.MethodGet, PathMyInfo, token, nil, &info); err != nil {
		return nil, fmt.Errorf("get user info: %w", err)
	}
	return &info, nil
}

// PlaceOrder submits order on behalf of the token's owner. It is sent at most
// once.
func (c *Client) PlaceOrder(ctx context.Context, token string, order domain.Order) (*domain.PlacedOrder, error) {
	var placed domain.PlacedOrder
	if err := c.call(ctx, http.MethodPost, PathPlaceOrder, token, order, &placed); err != nil {
		return nil, fmt.Errorf("place order: %w", err)
	}
	return &placed, nil
}

// getList decodes a list result. Paginated endpoints wrap the list in an
// object under "content", "data" or "items"; both shapes are accepted.
func (c *Client) getList(ctx context.Context, path string, out any) error {
	var raw json.RawMessage
	if err := c.call(ctx, http.MethodGet, path, "", nil, &raw); err != nil {
		return err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return json.Unmarshal([]byte("[]"), out)
	}
	if raw[0] == '[' {
		return decodeResult(raw, out)
	}

	var page map[string]json.RawMessage
	if err := json.Unmarshal(raw, &page); err != nil {
		return apperrors.Upstream("the store sent an unexpected response", fmt.Errorf("decode %s result: %w", path, err))
	}
	for _, key := range []string{"content", "data", "items"} {
		if list, ok := page[key]; ok {
			return decodeResult(list, out)
		}
	}
	return apperrors.Upstream("the store sent an unexpected response", fmt.Errorf("%s result has no list", path))
}

// call performs one request and decodes the envelope's result into out.
func (c *Client) call(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	ctx, span := tracing.StartClientSpan(ctx, req)
	defer span.End()

	err = c.roundTrip(ctx, req, out, func(status int) {
		span.SetAttributes(semconv.HTTPStatusCode(status))
	})
	tracing.RecordError(span, err)
	if err != nil {
		c.logger.DebugContext(ctx, "backend call failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, req *http.Request, out any, onStatus func(int)) error {
	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return transportError(ctx, err)
	}
	defer func() { _ = resp.Body.Close() }()
	onStatus(resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return httpclient.ParseResponseError(resp, serviceName)
	}

	var env envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, 16<<20)).Decode(&env); err != nil {
		return apperrors.Upstream("the store sent an unexpected response", fmt.Errorf("decode envelope: %w", err))
	}
	if env.Code != 0 {
		be := &httpclient.BackendError{Service: serviceName, Status: resp.StatusCode, Code: env.Code, Message: env.Message}
		message := env.Message
		if message == "" {
			message = "the store could not complete the request"
		}
		return apperrors.Rejected("BACKEND_REJECTED", message, be)
	}
	if out == nil {
		return nil
	}
	return decodeResult(env.Result, out)
}

func decodeResult(raw json.RawMessage, out any) error {
	if len(raw) == 0 {
		raw = json.RawMessage("null")
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return apperrors.Upstream("the store sent an unexpected response", fmt.Errorf("decode result: %w", err))
	}
	return nil
}

// transportError classifies a failure to obtain a response.
func transportError(ctx context.Context, err error) error {
	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr):
		return err
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, httpclient.ErrCircuitOpen):
		return apperrors.ServiceUnavailable("the store is temporarily unavailable, please try again shortly")
	}
	var se *httpclient.StatusError
	if errors.As(err, &se) {
		return httpclient.FromStatusError(err, serviceName)
	}
	return apperrors.Upstream("could not reach the store, please try again", err)
}
