package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/cakeverse/cakeverse-backend/pkg/enums"
)

// Transaction is an audit entry for a wallet movement. Rows are never
// deleted; only the status moves forward.
type Transaction struct {
	ID          uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	WalletID    *uuid.UUID              `gorm:"column:wallet_id;type:uuid;index:ix_transactions_wallet_id"`
	OrderID     *uuid.UUID              `gorm:"column:order_id;type:uuid;index:ix_transactions_order_id"`
	AIImageID   *uuid.UUID              `gorm:"column:ai_image_id;type:uuid"`
	Amount      decimal.Decimal         `gorm:"column:amount;type:numeric(14,2);not null"`
	Type        enums.TransactionType   `gorm:"column:type;type:text;not null"`
	Status      enums.TransactionStatus `gorm:"column:status;type:text;not null"`
	Description string                  `gorm:"column:description;type:text;not null;default:''"`
	CreatedAt   time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (t *Transaction) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
