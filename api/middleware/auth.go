package middleware

import (
	"net/http"
	"strings"

	"github.com/cakeverse/cakeverse-backend/api/responses"
	pkgAuth "github.com/cakeverse/cakeverse-backend/pkg/auth"
	"github.com/cakeverse/cakeverse-backend/pkg/enums"
	pkgerrors "github.com/cakeverse/cakeverse-backend/pkg/errors"
	"github.com/cakeverse/cakeverse-backend/pkg/logger"
)

// Auth requires a bearer token and puts the verified caller on the context.
func Auth(tokens *pkgAuth.Tokens, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearer(r.Header.Get("Authorization"))
			if !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}
			actor, err := tokens.Verify(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			ctx := WithActor(r.Context(), actor)
			if logg != nil {
				ctx = logg.WithActorRole(logg.WithUserID(ctx, actor.UserID.String()), string(actor.Role))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireCapability runs after Auth and rejects roles lacking capability.
func RequireCapability(capability enums.Capability, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			switch {
			case !ok:
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			case !actor.Can(capability):
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "capability required").
					WithDetails(map[string]any{"capability": string(capability)}))
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

// bearer accepts "Bearer <token>" in any case, or a bare token.
func bearer(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		header = strings.TrimSpace(header[7:])
	}
	return header, header != ""
}
