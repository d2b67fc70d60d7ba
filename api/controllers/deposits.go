package controllers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cakeverse/cakeverse-backend/api/responses"
	"github.com/cakeverse/cakeverse-backend/api/validators"
	"github.com/cakeverse/cakeverse-backend/internal/deposits"
	pkgerrors "github.com/cakeverse/cakeverse-backend/pkg/errors"
	"github.com/cakeverse/cakeverse-backend/pkg/logger"
	"github.com/cakeverse/cakeverse-backend/pkg/payos"
)

// PaymentLinker creates hosted checkout pages for deposits.
type PaymentLinker interface {
	CreatePaymentLink(ctx context.Context, req payos.PaymentLinkRequest) (*payos.PaymentLink, error)
}

// CheckoutURLs are the pages the gateway redirects back to.
type CheckoutURLs struct {
	ReturnURL string
	CancelURL string
}

type createDepositRequest struct {
	Amount string `json:"amount" validate:"required,money"`
}

// DepositCreate opens a pending deposit and, when the gateway is configured,
// attaches its hosted checkout URL. A gateway failure cancels the deposit.
func DepositCreate(svc deposits.Service, linker PaymentLinker, urls CheckoutURLs, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "deposit service unavailable"))
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var body createDepositRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		amount, err := validators.ParseAmount("amount", body.Amount)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		record, err := svc.RequestDeposit(ctx, actor.UserID, amount)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if linker != nil {
			link, err := linker.CreatePaymentLink(ctx, payos.PaymentLinkRequest{
				OrderCode:   record.Code,
				Amount:      record.Amount,
				Description: fmt.Sprintf("NAP %d", record.Code),
				ReturnURL:   urls.ReturnURL,
				CancelURL:   urls.CancelURL,
			})
			if err != nil {
				if _, cancelErr := svc.CancelDeposit(ctx, record.ID, actor.UserID); cancelErr != nil && logg != nil {
					logg.Error(logg.WithField(ctx, "deposit_id", record.ID.String()), "cancel deposit after gateway failure", cancelErr)
				}
				responses.WriteError(ctx, logg, w, err)
				return
			}
			record, err = svc.AttachCheckoutURL(ctx, record.ID, link.CheckoutURL)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, deposits.NewDepositView(*record))
	}
}

func DepositList(svc deposits.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "deposit service unavailable"))
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		list, err := svc.ListForUser(ctx, actor.UserID, params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func DepositCancel(svc deposits.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "deposit service unavailable"))
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		depositID, err := validators.ParseUUIDParam(r, "depositId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		record, err := svc.CancelDeposit(ctx, depositID, actor.UserID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, deposits.NewDepositView(*record))
	}
}
