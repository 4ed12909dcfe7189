package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gearvn/storefront/pkg/logger"
)

// CorrelationIDHeader carries the request correlation id in and out.
const CorrelationIDHeader = "X-Correlation-ID"

// RequestLogging assigns a correlation id (reusing the caller's when it sent
// one) and writes one access log line per request. Probe traffic is logged at
// debug, server errors at error.
func RequestLogging(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			cid := r.Header.Get(CorrelationIDHeader)
			if cid == "" {
				cid = uuid.NewString()
			}
			ctx := logger.WithCorrelationID(r.Context(), cid)
			w.Header().Set(CorrelationIDHeader, cid)

			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r.WithContext(ctx))

			attrs := []any{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.status),
				slog.Int("bytes", rec.bytes),
				slog.Duration("duration", time.Since(start)),
				slog.String("remote_addr", r.RemoteAddr),
				slog.String("correlation_id", cid),
			}
			if sid := r.Header.Get(SessionHeader); sid != "" {
				attrs = append(attrs, slog.String("session_id", sid))
			}

			level := slog.LevelInfo
			switch {
			case rec.status >= http.StatusInternalServerError:
				level = slog.LevelError
			case strings.HasPrefix(r.URL.Path, "/health/"):
				level = slog.LevelDebug
			}
			l.Log(ctx, level, "http request", attrs...)
		})
	}
}
