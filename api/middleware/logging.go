package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/cakeverse/cakeverse-backend/pkg/logger"
)

// Logging writes one access line per request once the handler returns. The
// route field carries the matched chi pattern so ids do not explode cardinality.
func Logging(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if logg == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := logg.WithFields(r.Context(), map[string]any{
				"method": r.Method,
				"path":   r.URL.Path,
				"remote": clientIP(r),
			})
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			started := time.Now()

			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := map[string]any{
				"status":      status,
				"bytes":       ww.BytesWritten(),
				"duration_ms": time.Since(started).Milliseconds(),
			}
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					fields["route"] = pattern
				}
			}
			ctx = logg.WithFields(ctx, fields)
			switch {
			case status >= http.StatusInternalServerError:
				logg.Warn(ctx, "request completed with server error")
			case r.URL.Path == "/health/live" || r.URL.Path == "/health/ready":
				logg.Debug(ctx, "request completed")
			default:
				logg.Info(ctx, "request completed")
			}
		})
	}
}
