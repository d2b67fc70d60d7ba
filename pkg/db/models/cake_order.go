package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/cakeverse/cakeverse-backend/pkg/enums"
)

// CakeOrder is a customer's custom cake order. TotalPrice is frozen at
// creation as BasePrice plus IngredientTotal.
type CakeOrder struct {
	ID                  uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	CustomerID          uuid.UUID         `gorm:"column:customer_id;type:uuid;not null;index:ix_cake_orders_customer_id"`
	ShopID              uuid.UUID         `gorm:"column:shop_id;type:uuid;not null;index:ix_cake_orders_shop_id"`
	ListingID           *uuid.UUID        `gorm:"column:listing_id;type:uuid"`
	BasePrice           decimal.Decimal   `gorm:"column:base_price;type:numeric(14,2);not null"`
	IngredientTotal     decimal.Decimal   `gorm:"column:ingredient_total;type:numeric(14,2);not null"`
	TotalPrice          decimal.Decimal   `gorm:"column:total_price;type:numeric(14,2);not null"`
	Size                string            `gorm:"column:size;type:text;not null;default:''"`
	Status              enums.OrderStatus `gorm:"column:status;type:text;not null;index:ix_cake_orders_status"`
	SpecialInstructions string            `gorm:"column:special_instructions;type:text;not null;default:''"`
	DeliveryTime        *time.Time        `gorm:"column:delivery_time"`
	ShippedAt           *time.Time        `gorm:"column:shipped_at"`
	CreatedAt           time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time         `gorm:"column:updated_at;autoUpdateTime"`

	Details []OrderDetail `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

func (o *CakeOrder) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
