package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cakeverse/cakeverse-backend/pkg/db/models"
	"github.com/cakeverse/cakeverse-backend/pkg/enums"
)

// TransactionView is the API representation of a ledger row.
type TransactionView struct {
	ID          uuid.UUID               `json:"id"`
	WalletID    *uuid.UUID              `json:"wallet_id,omitempty"`
	OrderID     *uuid.UUID              `json:"order_id,omitempty"`
	AIImageID   *uuid.UUID              `json:"ai_image_id,omitempty"`
	Amount      decimal.Decimal         `json:"amount"`
	Type        enums.TransactionType   `json:"type"`
	Status      enums.TransactionStatus `json:"status"`
	Description string                  `json:"description"`
	CreatedAt   time.Time               `json:"created_at"`
	UpdatedAt   time.Time               `json:"updated_at"`
}

func NewTransactionView(txn models.Transaction) TransactionView {
	return TransactionView{
		ID:          txn.ID,
		WalletID:    txn.WalletID,
		OrderID:     txn.OrderID,
		AIImageID:   txn.AIImageID,
		Amount:      txn.Amount,
		Type:        txn.Type,
		Status:      txn.Status,
		Description: txn.Description,
		CreatedAt:   txn.CreatedAt,
		UpdatedAt:   txn.UpdatedAt,
	}
}

// TransactionList wraps a page of history plus the next page cursor.
type TransactionList struct {
	Transactions []TransactionView `json:"transactions"`
	NextCursor   string            `json:"next_cursor,omitempty"`
}

func NewTransactionList(page *HistoryPage) TransactionList {
	list := TransactionList{Transactions: []TransactionView{}}
	if page == nil {
		return list
	}
	for _, txn := range page.Items {
		list.Transactions = append(list.Transactions, NewTransactionView(txn))
	}
	list.NextCursor = page.Cursor
	return list
}
