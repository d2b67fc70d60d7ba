package controllers

import (
	"net/http"

	"github.com/cakeverse/cakeverse-backend/api/responses"
	"github.com/cakeverse/cakeverse-backend/api/validators"
	"github.com/cakeverse/cakeverse-backend/internal/ledger"
	"github.com/cakeverse/cakeverse-backend/internal/wallet"
	pkgerrors "github.com/cakeverse/cakeverse-backend/pkg/errors"
	"github.com/cakeverse/cakeverse-backend/pkg/logger"
)

// WalletGet returns the caller's wallet, opening one on first access.
func WalletGet(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wallet service unavailable"))
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		record, err := svc.GetOrCreate(ctx, actor.UserID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, wallet.NewWalletView(*record))
	}
}

// WalletTransactions pages through the caller's ledger history, newest first.
func WalletTransactions(wallets wallet.Service, history ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if wallets == nil || history == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
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

		record, err := wallets.GetOrCreate(ctx, actor.UserID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		page, err := history.History(ctx, record.ID, params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, ledger.NewTransactionList(page))
	}
}
