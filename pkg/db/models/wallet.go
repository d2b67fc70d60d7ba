package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Wallet holds a user's spendable balance. One wallet per user.
type Wallet struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID       `gorm:"column:user_id;type:uuid;not null;uniqueIndex:ux_wallets_user_id"`
	Balance   decimal.Decimal `gorm:"column:balance;type:numeric(14,2);not null;default:0"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (w *Wallet) BeforeCreate(*gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}
