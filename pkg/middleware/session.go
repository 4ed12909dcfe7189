package middleware

import (
	"context"
	"net/http"
	"strings"

	apperrors "github.com/gearvn/storefront/pkg/errors"
	"github.com/gearvn/storefront/pkg/httputil"
	"github.com/gearvn/storefront/pkg/logger"
)

// SessionHeader identifies the shopper's browser session.
const SessionHeader = "X-Session-ID"

const maxSessionIDLen = 128

type contextKeyType string

const bearerTokenKey contextKeyType = "bearer_token"

// Session rejects requests without a well-formed X-Session-ID header and
// stores the id in the context.
func Session() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid := r.Header.Get(SessionHeader)
			if !validSessionID(sid) {
				status, body := httputil.ErrorEnvelope(apperrors.Unauthorized("missing or malformed " + SessionHeader + " header"))
				httputil.WriteJSON(w, status, body)
				return
			}

			ctx := logger.WithSessionID(r.Context(), sid)
			if token := bearerFromHeader(r.Header.Get("Authorization")); token != "" {
				ctx = context.WithValue(ctx, bearerTokenKey, token)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionIDFromContext returns the session id set by Session.
func SessionIDFromContext(ctx context.Context) string {
	return logger.SessionIDFromContext(ctx)
}

// BearerTokenFromContext returns the token from the Authorization header, if any.
func BearerTokenFromContext(ctx context.Context) string {
	if token, ok := ctx.Value(bearerTokenKey).(string); ok {
		return token
	}
	return ""
}

func bearerFromHeader(h string) string {
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func validSessionID(sid string) bool {
	if sid == "" || len(sid) > maxSessionIDLen {
		return false
	}
	for _, c := range sid {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}

// NoStore marks responses as session specific so shared caches never keep them.
func NoStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Add("Vary", SessionHeader)
		next.ServeHTTP(w, r)
	})
}
