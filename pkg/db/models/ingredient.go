package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Ingredient is a priced add-on a shop offers for custom cakes.
type Ingredient struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ShopID    uuid.UUID       `gorm:"column:shop_id;type:uuid;not null;index:ix_ingredients_shop_id"`
	Name      string          `gorm:"column:name;type:text;not null"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(14,2);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *Ingredient) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
