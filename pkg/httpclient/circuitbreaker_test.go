package httpclient

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testCBConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      1 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  3,
	}
}

func failingServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"code":9999,"message":"Uncategorized error"}`))
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestBreaker(name string, mutate func(*CircuitBreakerConfig)) *CircuitBreakerClient {
	cfg := testCBConfig(name)
	if mutate != nil {
		mutate(&cfg)
	}
	client := New(Config{Timeout: 5 * time.Second, MaxRetries: 0, MaxConnsPerHost: 10})
	return NewCircuitBreakerClient(client, cfg, testLogger())
}

func TestCircuitBreaker_ClosedState_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":0,"result":[]}`))
	}))
	defer server.Close()

	cb := newTestBreaker("test-closed", nil)

	resp, err := cb.Get(context.Background(), server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreaker_5xxReturnsStatusErrorWithBody(t *testing.T) {
	server := failingServer(t, nil)
	cb := newTestBreaker("test-status-error", nil)

	_, err := cb.Get(context.Background(), server.URL)
	require.Error(t, err)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
	assert.JSONEq(t, `{"code":9999,"message":"Uncategorized error"}`, string(se.Body))
}

func TestCircuitBreaker_TripsOnFailures(t *testing.T) {
	server := failingServer(t, nil)
	cb := newTestBreaker("test-trip", nil)

	for i := 0; i < 3; i++ {
		_, err := cb.Get(context.Background(), server.URL)
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, cb.State())

	_, err := cb.Get(context.Background(), server.URL)
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestCircuitBreaker_OpenStateDoesNotReachServer(t *testing.T) {
	var hits atomic.Int32
	server := failingServer(t, &hits)
	cb := newTestBreaker("test-open-reject", func(c *CircuitBreakerConfig) { c.Timeout = 5 * time.Second })

	for i := 0; i < 3; i++ {
		_, _ = cb.Get(context.Background(), server.URL)
	}
	before := hits.Load()

	for i := 0; i < 5; i++ {
		_, err := cb.Post(context.Background(), server.URL, "application/json", http.NoBody)
		assert.ErrorIs(t, err, ErrCircuitOpen)
	}
	assert.Equal(t, before, hits.Load())
}

func TestCircuitBreaker_HalfOpenToClosedRecovery(t *testing.T) {
	var failing atomic.Bool
	failing.Store(true)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failing.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"code":0}`))
	}))
	defer server.Close()

	cb := newTestBreaker("test-recovery", func(c *CircuitBreakerConfig) { c.Timeout = 100 * time.Millisecond })

	for i := 0; i < 3; i++ {
		_, _ = cb.Get(context.Background(), server.URL)
	}
	require.Equal(t, gobreaker.StateOpen, cb.State())

	time.Sleep(150 * time.Millisecond)
	failing.Store(false)

	resp, err := cb.Get(context.Background(), server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreaker_4xxNotCountedAsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"code":1006,"message":"Unauthenticated"}`))
	}))
	defer server.Close()

	cb := newTestBreaker("test-4xx", nil)

	for i := 0; i < 5; i++ {
		resp, err := cb.Get(context.Background(), server.URL)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		resp.Body.Close()
	}
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreaker_CallerCancellationNotCountedAsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	cb := newTestBreaker("test-cancel", nil)

	for i := 0; i < 4; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(20 * time.Millisecond)
			cancel()
		}()
		_, err := cb.Get(ctx, server.URL)
		require.Error(t, err)
		cancel()
	}
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreaker_DefaultConfig(t *testing.T) {
	cfg := DefaultCircuitBreakerConfig("backend")
	assert.Equal(t, "backend", cfg.Name)
	assert.Equal(t, uint32(1), cfg.MaxRequests)
	assert.Equal(t, 60*time.Second, cfg.Interval)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 0.5, cfg.FailureRatio)
	assert.Equal(t, uint32(5), cfg.MinRequests)
}

func TestCircuitBreaker_WithFallback_InvokedWhenOpen(t *testing.T) {
	server := failingServer(t, nil)
	cb := newTestBreaker("test-fallback", func(c *CircuitBreakerConfig) { c.Timeout = 5 * time.Second })

	var fallbackCalled atomic.Bool
	withFallback := cb.WithFallback(func(ctx context.Context, err error) (*http.Response, error) {
		fallbackCalled.Store(true)
		return &http.Response{StatusCode: http.StatusServiceUnavailable, Body: http.NoBody}, nil
	})

	for i := 0; i < 3; i++ {
		_, _ = withFallback.Get(context.Background(), server.URL)
	}
	assert.False(t, fallbackCalled.Load())

	resp, err := withFallback.Get(context.Background(), server.URL)
	require.NoError(t, err)
	assert.True(t, fallbackCalled.Load())
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
