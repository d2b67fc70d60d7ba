package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/cakeverse/cakeverse-backend/api/middleware"
	pkgAuth "github.com/cakeverse/cakeverse-backend/pkg/auth"
	pkgerrors "github.com/cakeverse/cakeverse-backend/pkg/errors"
)

func requireActor(r *http.Request) (pkgAuth.Actor, error) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok || actor.UserID == uuid.Nil {
		return pkgAuth.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	return actor, nil
}
