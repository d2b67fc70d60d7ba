package middleware

import (
	"fmt"
	"net/http"
	"regexp"

	"github.com/google/uuid"

	"github.com/cakeverse/cakeverse-backend/api/responses"
	pkgerrors "github.com/cakeverse/cakeverse-backend/pkg/errors"
	"github.com/cakeverse/cakeverse-backend/pkg/logger"
)

const requestIDHeader = "X-Request-Id"

// Client supplied ids are echoed only when they look like ids.
var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{8,64}$`)

// RequestID tags the request context and the response with an id, reusing a
// well-formed X-Request-Id from the caller.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(requestIDHeader)
			if !requestIDPattern.MatchString(id) {
				id = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, id)
			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithRequestID(ctx, id)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Recoverer turns a handler panic into a 500 envelope. http.ErrAbortHandler is
// re-raised so net/http can drop the connection.
func Recoverer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				err := pkgerrors.Wrap(pkgerrors.CodeInternal, fmt.Errorf("panic: %v", rec), "handler panicked").
					WithDetails(map[string]any{"step": r.Method + " " + r.URL.Path})
				responses.WriteError(r.Context(), logg, w, err)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
