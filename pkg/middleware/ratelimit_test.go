package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func limitedHandler(l *RateLimiter) http.Handler {
	return Session()(l.Middleware(newTestLogger(&bytes.Buffer{}))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))
}

func sessionRequest(sid string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set(SessionHeader, sid)
	return req
}

func TestRateLimiter_BurstThenRejects(t *testing.T) {
	l := NewRateLimiter(1, 2)
	frozen := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return frozen }
	h := limitedHandler(l)

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, sessionRequest("sess-a"))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, sessionRequest("sess-a"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "RATE_LIMITED")
}

func TestRateLimiter_SessionsAreIndependent(t *testing.T) {
	l := NewRateLimiter(1, 1)
	frozen := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return frozen }
	h := limitedHandler(l)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, sessionRequest("sess-a"))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, sessionRequest("sess-b"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, l.Len())
}

func TestRateLimiter_RefillsOverTime(t *testing.T) {
	l := NewRateLimiter(2, 1)
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	assert.True(t, l.allow("k"))
	assert.False(t, l.allow("k"))
	now = now.Add(500 * time.Millisecond)
	assert.True(t, l.allow("k"))
}

func TestRateLimiter_SweepDropsIdleBuckets(t *testing.T) {
	l := NewRateLimiter(5, 5)
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	l.allow("old")
	now = now.Add(20 * time.Minute)
	l.allow("fresh")

	assert.Equal(t, 1, l.Sweep(10*time.Minute))
	assert.Equal(t, 1, l.Len())
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.9:5555"
	assert.Equal(t, "10.0.0.9", clientIP(req))

	req.Header.Set("X-Real-IP", "192.0.2.7")
	assert.Equal(t, "192.0.2.7", clientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
	assert.Equal(t, "203.0.113.5", clientIP(req))
}
