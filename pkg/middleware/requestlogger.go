package middleware

import (
	"log/slog"
	"net/http"

	"github.com/gearvn/storefront/pkg/logger"
)

// RequestLogger builds a request-scoped logger enriched with correlation_id,
// session_id, trace_id and span_id and stores it in the context. Downstream
// handlers retrieve it with logger.FromContext(ctx).
//
// Mount it after RequestLogging and Tracing.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if logger.SessionIDFromContext(ctx) == "" {
				if sid := r.Header.Get(SessionHeader); validSessionID(sid) {
					ctx = logger.WithSessionID(ctx, sid)
				}
			}

			enriched := logger.WithContext(ctx, base)
			ctx = logger.NewContext(ctx, enriched)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
