package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/cakeverse/cakeverse-backend/pkg/enums"
)

// WithdrawRecord is a payout request. The amount is held from the wallet
// while the record is pending.
type WithdrawRecord struct {
	ID            uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	UserID        uuid.UUID            `gorm:"column:user_id;type:uuid;not null;index:ix_withdraw_records_user_id"`
	WalletID      uuid.UUID            `gorm:"column:wallet_id;type:uuid;not null"`
	TransactionID *uuid.UUID           `gorm:"column:transaction_id;type:uuid"`
	Amount        decimal.Decimal      `gorm:"column:amount;type:numeric(14,2);not null"`
	BankName      string               `gorm:"column:bank_name;type:text;not null"`
	AccountNumber string               `gorm:"column:account_number;type:text;not null"`
	AccountHolder string               `gorm:"column:account_holder;type:text;not null"`
	Status        enums.WithdrawStatus `gorm:"column:status;type:text;not null"`
	AdminNote     *string              `gorm:"column:admin_note;type:text"`
	ProcessedAt   *time.Time           `gorm:"column:processed_at"`
	ProcessedBy   *uuid.UUID           `gorm:"column:processed_by;type:uuid"`
	CreatedAt     time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (w *WithdrawRecord) BeforeCreate(*gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}
