package withdrawals

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cakeverse/cakeverse-backend/pkg/db/models"
	"github.com/cakeverse/cakeverse-backend/pkg/enums"
)

// RequestInput carries a payout request and the destination account.
type RequestInput struct {
	UserID        uuid.UUID
	Amount        decimal.Decimal
	BankName      string
	AccountNumber string
	AccountHolder string
}

// WithdrawalView is the API representation of a withdraw record. The account
// number is masked.
type WithdrawalView struct {
	ID            uuid.UUID            `json:"id"`
	UserID        uuid.UUID            `json:"user_id"`
	Amount        decimal.Decimal      `json:"amount"`
	BankName      string               `json:"bank_name"`
	AccountNumber string               `json:"account_number"`
	AccountHolder string               `json:"account_holder"`
	Status        enums.WithdrawStatus `json:"status"`
	AdminNote     *string              `json:"admin_note,omitempty"`
	ProcessedAt   *time.Time           `json:"processed_at,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
}

func NewWithdrawalView(record models.WithdrawRecord) WithdrawalView {
	return WithdrawalView{
		ID:            record.ID,
		UserID:        record.UserID,
		Amount:        record.Amount,
		BankName:      record.BankName,
		AccountNumber: maskAccount(record.AccountNumber),
		AccountHolder: record.AccountHolder,
		Status:        record.Status,
		AdminNote:     record.AdminNote,
		ProcessedAt:   record.ProcessedAt,
		CreatedAt:     record.CreatedAt,
	}
}

func maskAccount(number string) string {
	runes := []rune(number)
	if len(runes) <= 4 {
		return number
	}
	masked := make([]rune, len(runes))
	for i := range runes {
		if i < len(runes)-4 {
			masked[i] = '*'
			continue
		}
		masked[i] = runes[i]
	}
	return string(masked)
}

// WithdrawalList wraps a page of withdrawals plus the next page cursor.
type WithdrawalList struct {
	Withdrawals []WithdrawalView `json:"withdrawals"`
	NextCursor  string           `json:"next_cursor,omitempty"`
}

// WithdrawalRequestedEvent is emitted when funds are held for a payout.
type WithdrawalRequestedEvent struct {
	WithdrawalID  uuid.UUID       `json:"withdrawal_id"`
	UserID        uuid.UUID       `json:"user_id"`
	Amount        decimal.Decimal `json:"amount"`
	TransactionID uuid.UUID       `json:"transaction_id"`
}

// WithdrawalResolvedEvent is emitted when a payout leaves the pending state.
type WithdrawalResolvedEvent struct {
	WithdrawalID uuid.UUID            `json:"withdrawal_id"`
	UserID       uuid.UUID            `json:"user_id"`
	Amount       decimal.Decimal      `json:"amount"`
	Status       enums.WithdrawStatus `json:"status"`
	ProcessedBy  uuid.UUID            `json:"processed_by"`
	Refunded     bool                 `json:"refunded"`
}
