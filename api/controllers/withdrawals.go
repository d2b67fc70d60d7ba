package controllers

import (
	"net/http"

	"github.com/cakeverse/cakeverse-backend/api/responses"
	"github.com/cakeverse/cakeverse-backend/api/validators"
	"github.com/cakeverse/cakeverse-backend/internal/withdrawals"
	pkgerrors "github.com/cakeverse/cakeverse-backend/pkg/errors"
	"github.com/cakeverse/cakeverse-backend/pkg/logger"
)

type createWithdrawalRequest struct {
	Amount        string `json:"amount" validate:"required,money"`
	BankName      string `json:"bank_name" validate:"required,max=128"`
	AccountNumber string `json:"account_number" validate:"required,min=4,max=64"`
	AccountHolder string `json:"account_holder" validate:"required,max=128"`
}

type resolveWithdrawalRequest struct {
	Note string `json:"note" validate:"max=500"`
}

// WithdrawalCreate debits the caller's wallet and queues a payout for review.
func WithdrawalCreate(svc withdrawals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "withdrawal service unavailable"))
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var body createWithdrawalRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		amount, err := validators.ParseAmount("amount", body.Amount)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		record, err := svc.Request(ctx, withdrawals.RequestInput{
			UserID:        actor.UserID,
			Amount:        amount,
			BankName:      validators.CleanText(body.BankName, 128),
			AccountNumber: validators.CleanText(body.AccountNumber, 64),
			AccountHolder: validators.CleanText(body.AccountHolder, 128),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, withdrawals.NewWithdrawalView(*record))
	}
}

func WithdrawalList(svc withdrawals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "withdrawal service unavailable"))
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

// WithdrawalCancel withdraws a pending request and refunds the hold.
func WithdrawalCancel(svc withdrawals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "withdrawal service unavailable"))
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		withdrawalID, err := validators.ParseUUIDParam(r, "withdrawalId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		record, err := svc.Cancel(ctx, withdrawalID, actor.UserID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, withdrawals.NewWithdrawalView(*record))
	}
}

func AdminWithdrawalList(svc withdrawals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "withdrawal service unavailable"))
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		list, err := svc.ListPending(ctx, params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func AdminWithdrawalConfirm(svc withdrawals.Service, logg *logger.Logger) http.HandlerFunc {
	return resolveWithdrawal(svc, logg, true)
}

func AdminWithdrawalReject(svc withdrawals.Service, logg *logger.Logger) http.HandlerFunc {
	return resolveWithdrawal(svc, logg, false)
}

func resolveWithdrawal(svc withdrawals.Service, logg *logger.Logger, confirm bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "withdrawal service unavailable"))
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		withdrawalID, err := validators.ParseUUIDParam(r, "withdrawalId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var body resolveWithdrawalRequest
		if err := validators.DecodeOptionalJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		note := validators.CleanText(body.Note, 500)

		resolve := svc.Reject
		if confirm {
			resolve = svc.Confirm
		}
		record, err := resolve(ctx, withdrawalID, actor.UserID, note)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, withdrawals.NewWithdrawalView(*record))
	}
}
