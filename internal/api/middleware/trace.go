package middleware

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/taskd/internal/api/shared"
	"github.com/phrazzld/taskd/internal/platform/logger"
)

// NewTraceMiddleware returns middleware that assigns every request a trace
// ID and stores a logger tagged with it in the request context. Apply it
// early so later handlers and stores log with the same trace_id.
func NewTraceMiddleware(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := shared.SetTraceID(r.Context())
			traceID := shared.GetTraceID(ctx)

			log := base.With(slog.String("trace_id", traceID))
			ctx = logger.WithLogger(ctx, log)

			log.Debug("request started",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
