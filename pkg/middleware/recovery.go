package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	apperrors "github.com/gearvn/storefront/pkg/errors"
	"github.com/gearvn/storefront/pkg/httputil"
	"github.com/gearvn/storefront/pkg/logger"
)

var panicsRecovered = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "storefront",
	Subsystem: "http",
	Name:      "panics_recovered_total",
	Help:      "Handler panics turned into 500 responses.",
})

// Recovery turns a handler panic into a 500 error envelope. http.ErrAbortHandler
// is re-raised so net/http can abort the connection.
func Recovery(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if v == http.ErrAbortHandler {
					panic(v)
				}
				panicsRecovered.Inc()

				ctx := r.Context()
				logger.WithContext(ctx, l).ErrorContext(ctx, "handler panicked",
					slog.Any("panic", v),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("stack", string(debug.Stack())),
				)
				status, body := httputil.ErrorEnvelope(apperrors.Internal(nil))
				httputil.WriteJSON(w, status, body)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
