package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker/v2"
)

// ErrCircuitOpen is returned when the breaker refuses to call the backend.
var ErrCircuitOpen = gobreaker.ErrOpenState

const maxStatusBody = 64 << 10

// CircuitBreakerConfig tunes a breaker guarding one backend.
type CircuitBreakerConfig struct {
	Name string

	// MaxRequests is how many probes pass while half-open.
	MaxRequests uint32

	// Interval clears the closed-state counts periodically. Zero never clears.
	Interval time.Duration

	// Timeout is how long the breaker stays open before probing.
	Timeout time.Duration

	// The breaker trips once at least MinRequests were seen and the failure
	// share reached FailureRatio.
	FailureRatio float64
	MinRequests  uint32
}

// DefaultCircuitBreakerConfig trips after half of at least five calls failed
// and probes again after thirty seconds.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

func (c CircuitBreakerConfig) readyToTrip(counts gobreaker.Counts) bool {
	if counts.Requests < c.MinRequests {
		return false
	}
	return float64(counts.TotalFailures)/float64(counts.Requests) >= c.FailureRatio
}

// FallbackFunc answers in place of the backend while the breaker is open.
type FallbackFunc func(ctx context.Context, err error) (*http.Response, error)

// StatusError reports a 5xx answer. Body keeps the start of the response so the
// backend's error envelope can still be read.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.StatusCode, e.Body)
}

var (
	breakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "storefront",
		Subsystem: "backend_breaker",
		Name:      "state",
		Help:      "Breaker state: 0 closed, 1 half-open, 2 open.",
	}, []string{"name"})

	breakerFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: "backend_breaker",
		Name:      "fallbacks_total",
		Help:      "Calls answered by the fallback instead of the backend.",
	}, []string{"name"})
)

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	}
	return -1
}

// CircuitBreakerClient sends requests through a Client guarded by a breaker.
// 5xx answers and transport errors count as failures, caller cancellation
// does not.
type CircuitBreakerClient struct {
	name     string
	client   *Client
	breaker  *gobreaker.CircuitBreaker[*http.Response]
	fallback FallbackFunc
	logger   *slog.Logger
}

// NewCircuitBreakerClient wraps client with a breaker configured by cfg.
func NewCircuitBreakerClient(client *Client, cfg CircuitBreakerConfig, logger *slog.Logger) *CircuitBreakerClient {
	breaker := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: cfg.readyToTrip,
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("backend breaker changed state",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			breakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})
	breakerState.WithLabelValues(cfg.Name).Set(stateValue(gobreaker.StateClosed))

	return &CircuitBreakerClient{
		name:    cfg.Name,
		client:  client,
		breaker: breaker,
		logger:  logger,
	}
}

// WithFallback returns a copy that calls fn instead of failing while open.
func (c *CircuitBreakerClient) WithFallback(fn FallbackFunc) *CircuitBreakerClient {
	out := *c
	out.fallback = fn
	return &out
}

// Do sends req. A 5xx answer is returned as *StatusError with the body
// already closed.
func (c *CircuitBreakerClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		resp, err := c.client.Do(ctx, req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, drainStatus(resp)
		}
		return resp, nil
	})
	if err == nil {
		return resp, nil
	}

	refused := errors.Is(err, ErrCircuitOpen) || errors.Is(err, gobreaker.ErrTooManyRequests)
	if refused && c.fallback != nil {
		breakerFallbacks.WithLabelValues(c.name).Inc()
		c.logger.WarnContext(ctx, "backend breaker open, using fallback", slog.String("breaker", c.name))
		return c.fallback(ctx, err)
	}
	return nil, err
}

func drainStatus(resp *http.Response) *StatusError {
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxStatusBody))
	if err != nil {
		body = nil
	}
	return &StatusError{StatusCode: resp.StatusCode, Body: body}
}

// Get sends a GET to url.
func (c *CircuitBreakerClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build GET %s: %w", url, err)
	}
	return c.Do(ctx, req)
}

// Post sends body to url with the given content type.
func (c *CircuitBreakerClient) Post(ctx context.Context, url, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("build POST %s: %w", url, err)
	}
	req.Header.Set("Content-Type", contentType)
	return c.Do(ctx, req)
}

// State reports the breaker state.
func (c *CircuitBreakerClient) State() gobreaker.State {
	return c.breaker.State()
}
