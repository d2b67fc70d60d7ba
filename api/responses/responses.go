package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	pkgerrors "github.com/cakeverse/cakeverse-backend/pkg/errors"
	"github.com/cakeverse/cakeverse-backend/pkg/logger"
)

// SuccessEnvelope wraps every 2xx payload.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, SuccessEnvelope{Data: data})
}

// WriteError renders err as an ErrorEnvelope. Untyped errors become
// INTERNAL_ERROR and their text never reaches the client; typed 4xx errors
// keep their own message.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	meta := pkgerrors.MetadataFor(typed.Code())

	body := APIError{Code: string(typed.Code()), Message: meta.PublicMessage}
	if meta.HTTPStatus < http.StatusInternalServerError && typed.Message() != "" {
		body.Message = typed.Message()
	}
	if meta.DetailsAllowed {
		body.Details = typed.Details()
	}

	if logg != nil {
		logCtx := logg.WithFields(ctx, pkgerrors.LogFields(err))
		logCtx = logg.WithField(logCtx, "status", meta.HTTPStatus)
		if meta.HTTPStatus >= http.StatusInternalServerError {
			logg.Error(logCtx, "request failed", err)
		} else {
			logg.Warn(logCtx, "request rejected")
		}
	}
	writeJSON(w, meta.HTTPStatus, ErrorEnvelope{Error: body})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
