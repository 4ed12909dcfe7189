package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func corsHandler(cfg CORSConfig) http.Handler {
	return CORS(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func corsRequest(method, origin string) *http.Request {
	req := httptest.NewRequest(method, "/api/v1/cart", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	return req
}

func TestCORS_Wildcard(t *testing.T) {
	rr := httptest.NewRecorder()
	corsHandler(CORSConfig{AllowedOrigins: []string{"*"}, AllowCredentials: true}).
		ServeHTTP(rr, corsRequest(http.MethodGet, "https://anything.example"))

	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORS_AllowedOrigin(t *testing.T) {
	rr := httptest.NewRecorder()
	corsHandler(CORSConfig{AllowedOrigins: []string{"https://gearvn.example", "http://localhost:5173"}, AllowCredentials: true}).
		ServeHTTP(rr, corsRequest(http.MethodGet, "http://localhost:5173"))

	assert.Equal(t, "http://localhost:5173", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Origin", rr.Header().Get("Vary"))
	assert.Equal(t, "true", rr.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORS_RejectedOrigin(t *testing.T) {
	rr := httptest.NewRecorder()
	corsHandler(CORSConfig{AllowedOrigins: []string{"https://gearvn.example"}, AllowCredentials: true}).
		ServeHTTP(rr, corsRequest(http.MethodGet, "https://evil.example"))

	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestCORS_PreflightReturns204(t *testing.T) {
	called := false
	handler := CORS(DefaultCORSConfig())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, corsRequest(http.MethodOptions, "http://localhost:5173"))

	assert.False(t, called)
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestCORS_Defaults(t *testing.T) {
	rr := httptest.NewRecorder()
	corsHandler(CORSConfig{AllowedOrigins: []string{"*"}}).ServeHTTP(rr, corsRequest(http.MethodGet, ""))

	assert.Equal(t, "GET, POST, PUT, DELETE, OPTIONS", rr.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Accept, Authorization, Content-Type, X-Correlation-ID, X-Session-ID", rr.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "3600", rr.Header().Get("Access-Control-Max-Age"))
}

func TestDefaultCORSConfig(t *testing.T) {
	cfg := DefaultCORSConfig()
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.AllowedOrigins)
	assert.Contains(t, cfg.AllowedHeaders, SessionHeader)
	assert.Equal(t, []string{CorrelationIDHeader}, cfg.ExposedHeaders)
}
