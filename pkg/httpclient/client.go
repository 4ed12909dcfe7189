package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// Config tunes the pooled transport and the retry policy.
type Config struct {
	Timeout         time.Duration
	MaxRetries      int
	RetryWaitMin    time.Duration
	RetryWaitMax    time.Duration
	MaxConnsPerHost int
}

// DefaultConfig has retries off: a failed call is surfaced to the shopper,
// who re-initiates it.
func DefaultConfig() Config {
	return Config{
		Timeout:         15 * time.Second,
		RetryWaitMin:    200 * time.Millisecond,
		RetryWaitMax:    2 * time.Second,
		MaxConnsPerHost: 50,
	}
}

// Client talks to the shop backend over a shared connection pool.
type Client struct {
	http *http.Client
	cfg  Config
}

// New builds a Client from cfg.
func New(cfg Config) *Client {
	dialer := &net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   cfg.MaxConnsPerHost,
		MaxConnsPerHost:       cfg.MaxConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
	return &Client{
		http: &http.Client{Transport: transport, Timeout: cfg.Timeout},
		cfg:  cfg,
	}
}

// Do sends req bound to ctx. Only GET and HEAD are retried, on network errors
// and on 5xx answers other than 501, so an order is posted at most once.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	req = req.WithContext(ctx)

	retries := 0
	if req.Method == http.MethodGet || req.Method == http.MethodHead {
		retries = c.cfg.MaxRetries
	}

	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, c.backoff(attempt)); err != nil {
				return nil, err
			}
		}
		last := attempt >= retries

		resp, err := c.http.Do(req)
		switch {
		case err != nil && (last || !isRetryableError(err)):
			return nil, fmt.Errorf("%s %s failed after %d attempt(s): %w", req.Method, req.URL.Path, attempt+1, err)
		case err != nil:
			continue
		case !last && retryableStatus(resp.StatusCode):
			_ = resp.Body.Close()
			continue
		}
		return resp, nil
	}
}

// backoff doubles from RetryWaitMin per attempt, capped at RetryWaitMax.
func (c *Client) backoff(attempt int) time.Duration {
	wait := c.cfg.RetryWaitMin << uint(attempt-1)
	if wait <= 0 || wait > c.cfg.RetryWaitMax {
		return c.cfg.RetryWaitMax
	}
	return wait
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func retryableStatus(code int) bool {
	return code >= http.StatusInternalServerError && code != http.StatusNotImplemented
}

// Get sends a GET to url.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build GET %s: %w", url, err)
	}
	return c.Do(ctx, req)
}

// Post sends body to url. It is never retried.
func (c *Client) Post(ctx context.Context, url, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("build POST %s: %w", url, err)
	}
	req.Header.Set("Content-Type", contentType)
	return c.Do(ctx, req)
}

// isRetryableError holds for network errors; cancellation and deadlines are
// final.
func isRetryableError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
