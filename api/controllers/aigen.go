package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/cakeverse/cakeverse-backend/api/responses"
	"github.com/cakeverse/cakeverse-backend/api/validators"
	"github.com/cakeverse/cakeverse-backend/internal/aigen"
	pkgerrors "github.com/cakeverse/cakeverse-backend/pkg/errors"
	"github.com/cakeverse/cakeverse-backend/pkg/logger"
)

type chargeGenerationRequest struct {
	ImageID string `json:"image_id" validate:"omitempty,uuid"`
}

// AIGenerationCharge bills one image generation to the caller's wallet. The
// image id is optional; a fresh one is assigned when absent.
func AIGenerationCharge(svc aigen.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "generation billing unavailable"))
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var body chargeGenerationRequest
		if err := validators.DecodeOptionalJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		imageID := uuid.Nil
		if body.ImageID != "" {
			if imageID, err = uuid.Parse(body.ImageID); err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid image id"))
				return
			}
		}

		charge, err := svc.Charge(ctx, actor.UserID, imageID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, charge)
	}
}
