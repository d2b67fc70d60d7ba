package wallet

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cakeverse/cakeverse-backend/pkg/db/models"
)

type WalletView struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	Balance   decimal.Decimal `json:"balance"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func NewWalletView(w models.Wallet) WalletView {
	return WalletView{ID: w.ID, UserID: w.UserID, Balance: w.Balance, UpdatedAt: w.UpdatedAt}
}
