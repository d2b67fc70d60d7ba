package deposits

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cakeverse/cakeverse-backend/pkg/db/models"
	"github.com/cakeverse/cakeverse-backend/pkg/enums"
)

// Notification is the canonical gateway callback after payload normalization.
type Notification struct {
	OrderCode  int64
	Amount     decimal.Decimal
	Successful bool
	// Probe marks a payload that carried none of the identifying fields.
	Probe bool
}

// Outcome describes how a notification was handled.
type Outcome string

const (
	OutcomeProbe     Outcome = "probe"
	OutcomeCredited  Outcome = "credited"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeIgnored   Outcome = "ignored"
	OutcomeRejected  Outcome = "rejected"
)

// DepositView is the API representation of a deposit record.
type DepositView struct {
	ID          uuid.UUID           `json:"id"`
	Code        int64               `json:"code"`
	Amount      decimal.Decimal     `json:"amount"`
	Status      enums.DepositStatus `json:"status"`
	CheckoutURL *string             `json:"checkout_url,omitempty"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
}

// NewDepositView maps the stored record to its API shape.
func NewDepositView(record models.DepositRecord) DepositView {
	return DepositView{
		ID:          record.ID,
		Code:        record.Code,
		Amount:      record.Amount,
		Status:      record.Status,
		CheckoutURL: record.CheckoutURL,
		CompletedAt: record.CompletedAt,
		CreatedAt:   record.CreatedAt,
	}
}

// DepositList wraps a page of deposits plus the next page cursor.
type DepositList struct {
	Deposits   []DepositView `json:"deposits"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

// DepositCompletedEvent is emitted when a deposit credits the wallet.
type DepositCompletedEvent struct {
	DepositID     uuid.UUID       `json:"deposit_id"`
	UserID        uuid.UUID       `json:"user_id"`
	Code          int64           `json:"code"`
	Amount        decimal.Decimal `json:"amount"`
	TransactionID uuid.UUID       `json:"transaction_id"`
}
