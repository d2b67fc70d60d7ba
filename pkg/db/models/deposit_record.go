package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/cakeverse/cakeverse-backend/pkg/enums"
)

// DepositRecord tracks a top-up request; Code is the gateway order code.
type DepositRecord struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	UserID      uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index:ix_deposit_records_user_id"`
	Code        int64               `gorm:"column:code;not null;uniqueIndex:ux_deposit_records_code"`
	Amount      decimal.Decimal     `gorm:"column:amount;type:numeric(14,2);not null"`
	Status      enums.DepositStatus `gorm:"column:status;type:text;not null"`
	CheckoutURL *string             `gorm:"column:checkout_url;type:text"`
	CompletedAt *time.Time          `gorm:"column:completed_at"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (d *DepositRecord) BeforeCreate(*gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
