package middleware

import (
	"context"

	"github.com/google/uuid"

	pkgAuth "github.com/cakeverse/cakeverse-backend/pkg/auth"
)

type actorKey struct{}

// WithActor stores the authenticated caller the way Auth does.
func WithActor(ctx context.Context, actor pkgAuth.Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorKey{}, actor)
}

func ActorFromContext(ctx context.Context) (pkgAuth.Actor, bool) {
	if ctx == nil {
		return pkgAuth.Actor{}, false
	}
	actor, ok := ctx.Value(actorKey{}).(pkgAuth.Actor)
	return actor, ok && actor.UserID != uuid.Nil
}

// UserIDFromContext is empty for anonymous requests.
func UserIDFromContext(ctx context.Context) string {
	if actor, ok := ActorFromContext(ctx); ok {
		return actor.UserID.String()
	}
	return ""
}

func RoleFromContext(ctx context.Context) string {
	if actor, ok := ActorFromContext(ctx); ok {
		return string(actor.Role)
	}
	return ""
}
